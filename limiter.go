package spacetraveling

import (
	"sync"
	"time"
)

// LoadLimiter rate-limits "load more" requests per IP address.
type LoadLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
}

// NewLoadLimiter creates a LoadLimiter that allows max requests per window.
func NewLoadLimiter(max int, window time.Duration) *LoadLimiter {
	return &LoadLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
	}
}

// StartCleanup drops idle IPs every window until stop is called.
func (l *LoadLimiter) StartCleanup() (stop func()) {
	ticker := time.NewTicker(l.window)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				l.cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (l *LoadLimiter) cleanup() {
	cutoff := time.Now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, hits := range l.attempts {
		kept := hits[:0]
		for _, t := range hits {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(l.attempts, ip)
		} else {
			l.attempts[ip] = kept
		}
	}
}

// Allow reports whether ip is under the limit and records the request.
func (l *LoadLimiter) Allow(ip string) bool {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.attempts[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.attempts[ip] = kept
		return false
	}
	l.attempts[ip] = append(kept, time.Now())
	return true
}
