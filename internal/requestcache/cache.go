// Package requestcache implements the per-Filter request cache: a
// thread-safe map from a JSON-RPC request id to the originating request
// payload, so a response-side FilterLogic predicate (RequestMethod) can
// see the method of the request it answers.
package requestcache

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ErrNoID is returned by Store when the request payload has no "id" field.
var ErrNoID = errors.New("requestcache: request has no id field")

// key hashes a JSON-RPC id (string or number, opaque per the protocol)
// into a fixed-width map key via xxhash of its raw JSON bytes. No
// canonicalization is applied: `1`, `"1"`, and `1.0` are three different
// keys, and only ids whose raw bytes are equal are treated as the same.
func key(id json.RawMessage) uint64 {
	return xxhash.Sum64(id)
}

// Cache is a bounded-or-unbounded store from request id to request
// payload. The zero value is not usable; use New.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]json.RawMessage
	order   []uint64
	maxSize int // 0 means unbounded
}

// New creates a Cache. maxSize <= 0 means unbounded -- the default,
// since the cache is expected to stay small in practice. Passing a
// positive maxSize opts into bounding it, evicting the oldest unconsumed
// entry on overflow.
func New(maxSize int) *Cache {
	return &Cache{
		entries: make(map[uint64]json.RawMessage),
		maxSize: maxSize,
	}
}

// Store extracts the "id" field from request and stores it keyed by id.
// Returns ErrNoID if the request has no id field.
func (c *Cache) Store(request json.RawMessage) error {
	var withID struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(request, &withID); err != nil || len(withID.ID) == 0 {
		return ErrNoID
	}

	k := key(withID.ID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists {
		if c.maxSize > 0 && len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, k)
	}
	c.entries[k] = request
	return nil
}

// Peek returns the cached request for id without removing it. Used by
// FilterLogic evaluation's non-destructive peek during predicate
// evaluation, reserving the destructive Pop for the single
// post-action-selection step.
func (c *Cache) Peek(id json.RawMessage) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.entries[key(id)]
	return req, ok
}

// Pop removes and returns the cached request for id, if present.
func (c *Cache) Pop(id json.RawMessage) (json.RawMessage, bool) {
	k := key(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	delete(c.entries, k)
	for i, oid := range c.order {
		if oid == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return req, true
}

// Len returns the number of entries currently cached. Used by tests to
// assert that the cache is empty at a given request-id key after a
// matched request/response pair has been fully processed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
