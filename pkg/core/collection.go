package core

import (
	"context"
	"sync"
	"time"

	"github.com/EagleChen/mapmutex"
)

// Collection is the per-resource aggregate of records plus change-tracking maps.
// records, saved, modified and previous are keyed identically; removing a key
// removes it from all four.
type Collection struct {
	name string

	mu       sync.RWMutex
	records  map[string]*Record
	order    []string
	saved    map[string]int64
	modified map[string]int64
	previous map[string]Attributes

	// locks serializes commits (inject + snapshot + saved) per key.
	locks *mapmutex.Mutex
	now   func() time.Time
}

func newCollection(name string, now func() time.Time) *Collection {
	return &Collection{
		name:     name,
		records:  make(map[string]*Record),
		saved:    make(map[string]int64),
		modified: make(map[string]int64),
		previous: make(map[string]Attributes),
		locks:    mapmutex.NewMapMutex(),
		now:      now,
	}
}

// lock acquires the commit lock of key, waiting until ctx is done.
func (c *Collection) lock(ctx context.Context, key string) (func(), error) {
	for !c.locks.TryLock(key) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return func() { c.locks.Unlock(key) }, nil
}

// stamp returns a millisecond timestamp strictly greater than prev.
func (c *Collection) stamp(prev int64) int64 {
	ts := c.now().UnixMilli()
	if ts <= prev {
		return prev + 1
	}
	return ts
}

func (c *Collection) get(key string) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[key]
	return r, ok
}

// all returns the records in insertion order.
func (c *Collection) all() []*Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Record, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.records[key])
	}
	return out
}

func (c *Collection) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// upsert inserts a new record or merges attrs into the existing one in place.
// attrs must be a private copy owned by the collection from now on.
func (c *Collection) upsert(key string, id any, attrs Attributes) (rec *Record, created, changed bool) {
	c.mu.Lock()
	existing, ok := c.records[key]
	if !ok {
		rec = newRecord(c.name, key, id, attrs)
		c.records[key] = rec
		c.order = append(c.order, key)
		c.modified[key] = c.stamp(c.modified[key])
		c.mu.Unlock()
		return rec, true, true
	}
	c.mu.Unlock()

	if existing.merge(attrs) {
		c.touch(key)
		return existing, false, true
	}
	return existing, false, false
}

// touch advances the modification timestamp of key.
func (c *Collection) touch(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.stamp(c.modified[key])
	c.modified[key] = ts
	return ts
}

// markSaved records a confirmed save: snapshot becomes the previous attributes
// and the saved timestamp advances.
func (c *Collection) markSaved(key string, snapshot Attributes) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous[key] = snapshot
	ts := c.stamp(c.saved[key])
	c.saved[key] = ts
	return ts
}

// lastSaved returns the saved timestamp of key, lazily initializing it to zero.
func (c *Collection) lastSaved(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.saved[key]; !ok {
		c.saved[key] = 0
	}
	return c.saved[key]
}

// lastModified returns the modification timestamp of key, lazily initializing it to zero.
func (c *Collection) lastModified(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.modified[key]; !ok {
		c.modified[key] = 0
	}
	return c.modified[key]
}

func (c *Collection) previousAttributes(key string) (Attributes, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.previous[key]
	return p, ok
}

// remove drops key from every map.
func (c *Collection) remove(key string) (*Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[key]
	if !ok {
		return nil, false
	}
	delete(c.records, key)
	delete(c.saved, key)
	delete(c.modified, key)
	delete(c.previous, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return rec, true
}

// Store owns one Collection per registered resource.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	now         func() time.Time
}

// NewStore creates an empty collection store using now as its clock.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{collections: make(map[string]*Collection), now: now}
}

func (s *Store) ensure(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = newCollection(name, s.now)
		s.collections[name] = c
	}
	return c
}

func (s *Store) collection(name string) (*Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	return c, ok
}
