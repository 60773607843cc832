package instance

import "os"

// GetID returns the process identifier used in logs: WORKER_ID, then the
// Heroku dyno name, then the hostname.
func GetID() string {
	for _, key := range []string{"WORKER_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
