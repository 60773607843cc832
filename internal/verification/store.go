package verification

import (
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type entry struct {
	hash      string
	attempts  int
	expiresAt time.Time
}

// codeStore keeps one pending code per email. Entries expire on their own and
// the janitor evicts them, so abandoned requests never accumulate.
type codeStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func newCodeStore(ttl time.Duration) *codeStore {
	return &codeStore{cache: cache.New(ttl, ttl)}
}

func storeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *codeStore) put(email, hash string, ttl time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(storeKey(email), &entry{hash: hash, expiresAt: now.Add(ttl)}, ttl)
}

func (s *codeStore) remove(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(storeKey(email))
}

// attempt runs check against the stored hash under the store lock. A failed
// check burns one attempt; the entry is dropped on success or once
// maxAttempts failures have been recorded.
func (s *codeStore) attempt(email string, maxAttempts int, now time.Time, check func(hash string) (bool, error)) (attemptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(email)
	raw, found := s.cache.Get(key)
	if !found {
		return attemptMissing, nil
	}
	e := raw.(*entry)
	if !now.Before(e.expiresAt) {
		s.cache.Delete(key)
		return attemptMissing, nil
	}
	if e.attempts >= maxAttempts {
		s.cache.Delete(key)
		return attemptExhausted, nil
	}

	ok, err := check(e.hash)
	if err != nil {
		return attemptMissing, err
	}
	if ok {
		s.cache.Delete(key)
		return attemptMatched, nil
	}

	e.attempts++
	if e.attempts >= maxAttempts {
		s.cache.Delete(key)
		return attemptExhausted, nil
	}
	s.cache.Set(key, e, e.expiresAt.Sub(now))
	return attemptMismatch, nil
}

func (s *codeStore) len() int {
	return s.cache.ItemCount()
}

type attemptResult int

const (
	attemptMissing attemptResult = iota
	attemptMismatch
	attemptExhausted
	attemptMatched
)
