package scan

import (
	"sync"
	"time"
)

// DefaultCooldown suppresses scanner double reads of the same label.
const DefaultCooldown = 2 * time.Second

// Deduper remembers recent raw scans per station.
type Deduper struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewDeduper creates a Deduper. A non-positive cooldown uses DefaultCooldown.
func NewDeduper(cooldown time.Duration) *Deduper {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Deduper{
		seen:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Seen reports whether key was observed within the cooldown and records it otherwise.
func (d *Deduper) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.cooldown {
		return true
	}
	d.seen[key] = now
	d.evict(now)
	return false
}

// evict drops entries older than twice the cooldown.
func (d *Deduper) evict(now time.Time) {
	for key, last := range d.seen {
		if now.Sub(last) > 2*d.cooldown {
			delete(d.seen, key)
		}
	}
}

// Len returns the number of remembered keys.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
