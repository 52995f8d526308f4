// Package ratelimit throttles credential attempts per client key.
package ratelimit

import (
	"sync"
	"time"
)

// window holds the attempt times of one key
type window struct {
	minute []time.Time
	hour   []time.Time
}

// Limiter enforces sliding per-minute and per-hour limits for each key
type Limiter struct {
	perMinute int
	perHour   int
	enabled   bool

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewLimiter creates a limiter. A limit of 0 disables that window.
func NewLimiter(perMinute, perHour int, enabled bool) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		enabled:   enabled,
		windows:   make(map[string]*window),
		now:       time.Now,
	}
}

// Allow records an attempt for key when it is within the limits.
// When it is not, retryAfter tells how long until the oldest attempt expires.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	if !l.enabled {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}

	if l.perMinute > 0 && len(w.minute) >= l.perMinute {
		return false, w.minute[0].Add(time.Minute).Sub(now)
	}
	if l.perHour > 0 && len(w.hour) >= l.perHour {
		return false, w.hour[0].Add(time.Hour).Sub(now)
	}

	w.minute = append(w.minute, now)
	w.hour = append(w.hour, now)
	return true, 0
}

// prune drops expired attempts and forgets idle keys
func (l *Limiter) prune(now time.Time) {
	for key, w := range l.windows {
		w.minute = filterTimes(w.minute, now.Add(-time.Minute))
		w.hour = filterTimes(w.hour, now.Add(-time.Hour))
		if len(w.hour) == 0 && len(w.minute) == 0 {
			delete(l.windows, key)
		}
	}
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// Stats contains the counters of one key
type Stats struct {
	Enabled             bool `json:"enabled"`
	RequestsLastMinute  int  `json:"requests_last_minute"`
	RequestsLastHour    int  `json:"requests_last_hour"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
	TrackedKeys         int  `json:"tracked_keys"`
}

// GetStats returns the current counters for key
func (l *Limiter) GetStats(key string) Stats {
	if !l.enabled {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())

	s := Stats{
		Enabled:        true,
		LimitPerMinute: l.perMinute,
		LimitPerHour:   l.perHour,
		TrackedKeys:    len(l.windows),
	}
	if w, ok := l.windows[key]; ok {
		s.RequestsLastMinute = len(w.minute)
		s.RequestsLastHour = len(w.hour)
	}
	s.RemainingThisMinute = max(0, l.perMinute-s.RequestsLastMinute)
	s.RemainingThisHour = max(0, l.perHour-s.RequestsLastHour)
	return s
}

// Reset clears all tracked attempts
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.windows = make(map[string]*window)
}
