package enrich

import "sync"

// State of a cached enrichment entry. Pending is modeled explicitly; an
// analyzer that never completes leaves its entry pending forever, which is an
// accepted limitation rather than a timeout concern of the cache.
type State int

const (
	// StateUnknown means the id was never submitted or has been evicted.
	StateUnknown State = iota
	// StatePending means the analysis was submitted but has not finished.
	StatePending
	// StateDone means the analysis result is available.
	StateDone
)

// Cache is a bounded, process-local store of enrichment results keyed by
// correlation id. When the capacity is exceeded the oldest entry is evicted
// first (FIFO), regardless of whether it is still pending. Nothing is
// persisted; losing entries on restart is acceptable.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string]*cacheEntry
}

type cacheEntry struct {
	state    State
	analysis *Analysis
}

// NewCache returns a cache holding at most capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 50
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*cacheEntry),
	}
}

// Begin registers id as pending, evicting the oldest entries if the cache is
// full.
func (c *Cache) Begin(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
	}
	c.entries[id] = &cacheEntry{state: StatePending}

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Resolve stores the finished analysis for id. A resolve after eviction is
// dropped silently; the caller already lost interest.
func (c *Cache) Resolve(id string, a *Analysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		e.state = StateDone
		e.analysis = a
	}
}

// Get returns the entry state and, when done, the analysis.
func (c *Cache) Get(id string) (*Analysis, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, StateUnknown
	}
	return e.analysis, e.state
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
