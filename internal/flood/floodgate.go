// Package flood throttles repeated user actions, such as a held-down key
// firing the same command faster than Spotify accepts it.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the sliding window actions are counted in
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle actions are forgotten
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long an action may go unused before it is forgotten
	idleTimeout = 10 * time.Minute
)

// Floodgate allows each action at most limitPerMinute times per sliding minute.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*actionEntry
	mutex          sync.Mutex
	stopCleanup    chan struct{}
	stopOnce       sync.Once
	now            func() time.Time
}

type actionEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Floodgate. A limit of zero or less lets every action through.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*actionEntry),
		stopCleanup:    make(chan struct{}),
		now:            time.Now,
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Allow records one attempt of action and reports whether it may run.
// Rejected attempts are not counted.
func (fg *Floodgate) Allow(action string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[action]
	if !exists {
		entry = &actionEntry{timestamps: make([]time.Time, 0, fg.limitPerMinute+1)}
		fg.entries[action] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// Stats returns statistics about the floodgate for the status endpoint
func (fg *Floodgate) Stats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	return Stats{
		TrackedActions: len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

type Stats struct {
	TrackedActions int `json:"tracked_actions"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
