package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/awmpietro/golang-trace-explainability-case/internal/decision"
)

// InMemory caches compiled catalogs by the hash of their DOT source.
// Concurrent callers for the same source share one compilation; failed
// compilations are not cached.
type InMemory struct {
	mu       sync.Mutex
	max      int
	items    map[string]*decision.Catalog
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	val  *decision.Catalog
	err  error
}

func NewInMemory(max int) *InMemory {
	return &InMemory{
		max:      max,
		items:    make(map[string]*decision.Catalog, max),
		inflight: make(map[string]*call),
	}
}

func (c *InMemory) GetOrCompute(dot string, fn func() (*decision.Catalog, error)) (*decision.Catalog, error) {
	key := hash(dot)

	c.mu.Lock()
	if v, ok := c.items[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		return cl.val, cl.err
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				cl.err = fmt.Errorf("catalog compilation panicked: %v", r)
			}
		}()
		cl.val, cl.err = fn()
	}()

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil && len(c.items) < c.max {
		c.items[key] = cl.val
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.val, cl.err
}

func (c *InMemory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
