package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one scheduled task of the cron worker. Name labels logs and metrics,
// so it must be unique within a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs of one cycle in run order. Payment release runs
// before the cleanup jobs so a slow prune never delays supplier payouts.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order; nil entries are skipped.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends a job. Blank and repeated names are rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("nil cron job")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job %T has no name", job)
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
