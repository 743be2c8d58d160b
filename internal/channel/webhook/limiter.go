package webhook

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterStore keeps one token bucket per conversation.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLimiterStore(perSecond float64, burst int) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (s *limiterStore) allow(key string) bool {
	if s == nil || s.limit <= 0 {
		return true
	}
	s.mu.Lock()
	limiter, ok := s.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[key] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}
