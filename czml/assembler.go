package czml

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/czml-forge/timeline"
)

// Document is the full ordered sequence of packets describing one
// time-dynamic scene: a generated header first, then the entity packets in
// the order the caller supplied them. Documents are immutable once
// assembled and are discarded after serialisation.
type Document struct {
	name       string
	interval   timeline.Interval
	current    time.Time
	multiplier float64
	packets    []Packet
}

// DocumentOption tweaks how Assemble generates the header.
type DocumentOption func(*documentConfig)

type documentConfig struct {
	name       string
	interval   *timeline.Interval
	current    *time.Time
	multiplier float64
}

// WithDocumentName attaches a name to the header packet.
func WithDocumentName(name string) DocumentOption {
	return func(c *documentConfig) { c.name = name }
}

// WithDocumentInterval declares the document-wide validity interval
// explicitly instead of taking the union of the entity intervals. Every
// entity interval must be contained in it.
func WithDocumentInterval(iv timeline.Interval) DocumentOption {
	return func(c *documentConfig) { c.interval = &iv }
}

// WithCurrentTime sets the clock's initial time. The default is the start
// of the document interval.
func WithCurrentTime(t time.Time) DocumentOption {
	return func(c *documentConfig) { tt := t.UTC(); c.current = &tt }
}

// WithClockMultiplier sets the clock playback rate. The default is 1.
func WithClockMultiplier(m float64) DocumentOption {
	return func(c *documentConfig) { c.multiplier = m }
}

// Assemble merges entity packets into one valid document, enforcing the
// cross-packet invariants the builder cannot check alone: identifier
// uniqueness (ErrDuplicateIdentifier names the repeated id) and interval
// containment against an explicit document interval (ErrIntervalMismatch).
//
// Without an explicit interval the document-wide interval is the union of
// the entity intervals; if no packet is time-bounded either, assembly
// fails with ErrEmptyDocument since the header clock would have nothing to
// span. Assembly is all-or-nothing and holds no state between calls.
func Assemble(packets []Packet, opts ...DocumentOption) (Document, error) {
	cfg := documentConfig{multiplier: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	seen := make(map[string]struct{}, len(packets))
	var union timeline.Interval
	for _, p := range packets {
		if p.id == "" || p.id == HeaderID {
			return Document{}, fmt.Errorf("packet id %q: %w", p.id, ErrDuplicateIdentifier)
		}
		if _, dup := seen[p.id]; dup {
			return Document{}, fmt.Errorf("packet id %q: %w", p.id, ErrDuplicateIdentifier)
		}
		seen[p.id] = struct{}{}
		union = union.Union(p.availability)
	}

	interval := union
	if cfg.interval != nil {
		for _, p := range packets {
			if !cfg.interval.Contains(p.availability) {
				return Document{}, fmt.Errorf("packet %q availability %s outside document interval %s: %w",
					p.id, p.availability, cfg.interval, ErrIntervalMismatch)
			}
		}
		interval = *cfg.interval
	}
	if interval.IsZero() {
		return Document{}, fmt.Errorf("assemble: %w", ErrEmptyDocument)
	}

	current := interval.Start
	if cfg.current != nil {
		current = *cfg.current
	}

	return Document{
		name:       cfg.name,
		interval:   interval,
		current:    current,
		multiplier: cfg.multiplier,
		packets:    append([]Packet(nil), packets...),
	}, nil
}

// Name returns the document name, or "".
func (d Document) Name() string { return d.name }

// Interval returns the document-wide validity interval declared by the
// header.
func (d Document) Interval() timeline.Interval { return d.interval }

// Packets returns the entity packets in document order, header excluded.
func (d Document) Packets() []Packet {
	return append([]Packet(nil), d.packets...)
}

// EntityIDs returns the entity identifiers in document order.
func (d Document) EntityIDs() []string {
	ids := make([]string, len(d.packets))
	for i, p := range d.packets {
		ids[i] = p.id
	}
	return ids
}
