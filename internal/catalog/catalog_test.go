package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/czml-forge/czml"
	"github.com/signalsfoundry/czml-forge/model"
)

func packet(t *testing.T, id string) czml.Packet {
	t.Helper()
	start := time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC)
	p, err := czml.BuildEntity(id, []model.Sample{
		{Time: start, Position: model.Cartesian3{X: 1}},
		{Time: start.Add(time.Minute), Position: model.Cartesian3{X: 2}},
	})
	if err != nil {
		t.Fatalf("BuildEntity(%q): %v", id, err)
	}
	return p
}

func TestRegisterAndList(t *testing.T) {
	c := New()
	for _, id := range []string{"c", "a", "b"} {
		if err := c.Register(packet(t, id)); err != nil {
			t.Fatalf("Register(%q): %v", id, err)
		}
	}

	got := c.List()
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("List returned %d packets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID() != want[i] {
			t.Fatalf("List order = %q at %d, want %q", got[i].ID(), i, want[i])
		}
	}
}

func TestRegister_Duplicate(t *testing.T) {
	c := New()
	if err := c.Register(packet(t, "a")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := c.Register(packet(t, "a"))
	if !errors.Is(err, czml.ErrDuplicateIdentifier) {
		t.Fatalf("duplicate Register: err = %v, want ErrDuplicateIdentifier", err)
	}
}

func TestRemove(t *testing.T) {
	c := New()
	if err := c.Register(packet(t, "a")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := c.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d after removal, want 0", c.Len())
	}
	if err := c.Remove("a"); err == nil {
		t.Fatalf("expected error removing unknown entity")
	}

	// Re-registering after removal must succeed.
	if err := c.Register(packet(t, "a")); err != nil {
		t.Fatalf("Register after Remove: %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	c := New()
	var events []Event
	unsubscribe := c.Subscribe(func(ev Event) { events = append(events, ev) })

	if err := c.Register(packet(t, "a")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := c.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventEntityRegistered || events[0].ID != "a" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Type != EventEntityRemoved {
		t.Fatalf("second event = %+v", events[1])
	}

	unsubscribe()
	if err := c.Register(packet(t, "b")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("subscriber called after unsubscribe: %d events", len(events))
	}
}

// Unsubscribing one subscriber must not detach any other, regardless of
// registration order, and a second unsubscribe call is a no-op.
func TestSubscribe_UnsubscribeOutOfOrder(t *testing.T) {
	c := New()
	counts := make([]int, 3)
	unsub0 := c.Subscribe(func(Event) { counts[0]++ })
	unsub1 := c.Subscribe(func(Event) { counts[1]++ })
	c.Subscribe(func(Event) { counts[2]++ })

	unsub0()
	if err := c.Register(packet(t, "a")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if counts[0] != 0 || counts[1] != 1 || counts[2] != 1 {
		t.Fatalf("counts after first unsubscribe = %v, want [0 1 1]", counts)
	}

	unsub1()
	unsub1()
	if err := c.Register(packet(t, "b")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if counts[0] != 0 || counts[1] != 1 || counts[2] != 2 {
		t.Fatalf("counts after second unsubscribe = %v, want [0 1 2]", counts)
	}
}

type capturingRecorder struct {
	sizes []int
}

func (r *capturingRecorder) SetCatalogSize(n int) { r.sizes = append(r.sizes, n) }

func TestSizeRecorder(t *testing.T) {
	rec := &capturingRecorder{}
	c := New(WithSizeRecorder(rec))

	if err := c.Register(packet(t, "a")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := c.Register(packet(t, "b")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := c.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	want := []int{1, 2, 1}
	if len(rec.sizes) != len(want) {
		t.Fatalf("recorder sizes = %v, want %v", rec.sizes, want)
	}
	for i := range want {
		if rec.sizes[i] != want[i] {
			t.Fatalf("recorder sizes = %v, want %v", rec.sizes, want)
		}
	}
}
