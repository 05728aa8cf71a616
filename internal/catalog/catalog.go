package catalog

import (
	"fmt"
	"sync"

	"github.com/signalsfoundry/czml-forge/czml"
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventEntityRegistered EventType = iota
	EventEntityRemoved
)

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type EventType
	ID   string
}

// SizeRecorder receives the entity count after every mutation; the
// observability collector implements it to drive a gauge.
type SizeRecorder interface {
	SetCatalogSize(n int)
}

// Catalog is an in-memory, thread-safe registry of built entity packets.
// It preserves registration order so repeated assembly of the same catalog
// yields identical documents, and it rejects duplicate identifiers at
// registration time rather than leaving them for assembly to find.
type Catalog struct {
	mu sync.RWMutex

	entities map[string]czml.Packet
	order    []string

	subs      []subscriber
	nextToken int
	recorder  SizeRecorder
}

// subscriber pairs a callback with the token handed to its unsubscribe
// closure, so removal does not depend on slice positions shifting under
// earlier unsubscribes.
type subscriber struct {
	token int
	fn    func(Event)
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithSizeRecorder wires a recorder that tracks the entity count.
func WithSizeRecorder(r SizeRecorder) Option {
	return func(c *Catalog) { c.recorder = r }
}

// New constructs an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{entities: make(map[string]czml.Packet)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a packet. It returns an error wrapping
// czml.ErrDuplicateIdentifier if the ID is already present.
func (c *Catalog) Register(p czml.Packet) error {
	c.mu.Lock()
	if _, exists := c.entities[p.ID()]; exists {
		c.mu.Unlock()
		return fmt.Errorf("entity %q already registered: %w", p.ID(), czml.ErrDuplicateIdentifier)
	}
	c.entities[p.ID()] = p
	c.order = append(c.order, p.ID())
	subs, size := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(subs, size, Event{Type: EventEntityRegistered, ID: p.ID()})
	return nil
}

// Remove deletes the packet with the given ID. It returns an error if the
// ID is not registered.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	if _, ok := c.entities[id]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("entity %q not found", id)
	}
	delete(c.entities, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	subs, size := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(subs, size, Event{Type: EventEntityRemoved, ID: id})
	return nil
}

// Get returns the packet with the given ID.
func (c *Catalog) Get(id string) (czml.Packet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entities[id]
	return p, ok
}

// List returns a snapshot of all packets in registration order.
func (c *Catalog) List() []czml.Packet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]czml.Packet, 0, len(c.order))
	for _, id := range c.order {
		res = append(res, c.entities[id])
	}
	return res
}

// Len returns the number of registered entities.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function; calling it more than once is harmless.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token := c.nextToken
	c.nextToken++
	c.subs = append(c.subs, subscriber{token: token, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.token == token {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Catalog) snapshotLocked() ([]func(Event), int) {
	subs := make([]func(Event), len(c.subs))
	for i, s := range c.subs {
		subs[i] = s.fn
	}
	return subs, len(c.entities)
}

// notify runs outside the lock to avoid deadlocks when a subscriber calls
// back into the catalog.
func (c *Catalog) notify(subs []func(Event), size int, ev Event) {
	if c.recorder != nil {
		c.recorder.SetCatalogSize(size)
	}
	for _, sub := range subs {
		sub(ev)
	}
}
