package query

import (
	"strings"
	"sync"
)

// CueCache accumulates complexity cues observed at runtime. It is a bounded
// ring buffer: once full, new cues overwrite the oldest. The cache only
// improves classifier hit rate; classification stays correct with a nil
// cache, so tests can disable it entirely.
type CueCache struct {
	mu   sync.RWMutex
	max  int
	cues []string
	next int
}

// NewCueCache returns a cache holding at most max cues. max <= 0 returns
// nil, which disables learning; all CueCache methods are nil-safe.
func NewCueCache(max int) *CueCache {
	if max <= 0 {
		return nil
	}
	return &CueCache{max: max}
}

// Add records a cue. Duplicates are dropped. Lost updates under contention
// are acceptable.
func (c *CueCache) Add(cue string) {
	if c == nil {
		return
	}
	cue = strings.ToLower(strings.TrimSpace(cue))
	if cue == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, have := range c.cues {
		if have == cue {
			return
		}
	}
	if len(c.cues) < c.max {
		c.cues = append(c.cues, cue)
		return
	}
	c.cues[c.next] = cue
	c.next = (c.next + 1) % c.max
}

// Matches reports whether the text contains any learned cue.
func (c *CueCache) Matches(text string) bool {
	if c == nil {
		return false
	}
	text = strings.ToLower(text)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cue := range c.cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

// Len reports the number of stored cues.
func (c *CueCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cues)
}
