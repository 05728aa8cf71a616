package czml

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/czml-forge/model"
	"github.com/signalsfoundry/czml-forge/timeline"
)

var asmT0 = time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC)

func entityAt(t *testing.T, id string, start time.Time, span time.Duration) Packet {
	t.Helper()
	p, err := BuildEntity(id, []model.Sample{
		{Time: start, Position: model.Cartesian3{X: 1, Y: 2, Z: 3}},
		{Time: start.Add(span), Position: model.Cartesian3{X: 4, Y: 5, Z: 6}},
	})
	if err != nil {
		t.Fatalf("BuildEntity(%q): %v", id, err)
	}
	return p
}

func TestAssemble_DuplicateIdentifier(t *testing.T) {
	a1 := entityAt(t, "a", asmT0, time.Minute)
	a2 := entityAt(t, "a", asmT0.Add(time.Hour), time.Minute)

	_, err := Assemble([]Packet{a1, a2})
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("err = %v, want ErrDuplicateIdentifier", err)
	}
	if !strings.Contains(err.Error(), `"a"`) {
		t.Fatalf("error should name the repeated identifier, got %v", err)
	}
}

func TestAssemble_IntervalUnion(t *testing.T) {
	a := entityAt(t, "a", asmT0, 5*time.Hour)
	b := entityAt(t, "b", asmT0.Add(2*time.Hour), time.Hour)

	doc, err := Assemble([]Packet{a, b})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := timeline.Interval{Start: asmT0, Stop: asmT0.Add(5 * time.Hour)}
	if doc.Interval() != want {
		t.Fatalf("document interval = %s, want %s", doc.Interval(), want)
	}
}

func TestAssemble_ExplicitIntervalMismatch(t *testing.T) {
	a := entityAt(t, "a", asmT0, time.Hour)
	narrow := timeline.Interval{Start: asmT0.Add(30 * time.Minute), Stop: asmT0.Add(2 * time.Hour)}

	_, err := Assemble([]Packet{a}, WithDocumentInterval(narrow))
	if !errors.Is(err, ErrIntervalMismatch) {
		t.Fatalf("err = %v, want ErrIntervalMismatch", err)
	}

	wide := timeline.Interval{Start: asmT0.Add(-time.Hour), Stop: asmT0.Add(2 * time.Hour)}
	doc, err := Assemble([]Packet{a}, WithDocumentInterval(wide))
	if err != nil {
		t.Fatalf("Assemble with containing interval: %v", err)
	}
	if doc.Interval() != wide {
		t.Fatalf("document interval = %s, want %s", doc.Interval(), wide)
	}
}

func TestAssemble_EmptyDocument(t *testing.T) {
	static, err := BuildStaticEntity("gs-1", model.Cartesian3{X: 6371000})
	if err != nil {
		t.Fatalf("BuildStaticEntity: %v", err)
	}

	if _, err := Assemble([]Packet{static}); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("static-only document: err = %v, want ErrEmptyDocument", err)
	}

	iv := timeline.Interval{Start: asmT0, Stop: asmT0.Add(time.Hour)}
	if _, err := Assemble([]Packet{static}, WithDocumentInterval(iv)); err != nil {
		t.Fatalf("static-only document with explicit interval: %v", err)
	}
}

func TestAssemble_PreservesCallerOrder(t *testing.T) {
	a := entityAt(t, "a", asmT0, time.Minute)
	b := entityAt(t, "b", asmT0, time.Minute)
	c := entityAt(t, "c", asmT0, time.Minute)

	doc, err := Assemble([]Packet{c, a, b})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []string{"c", "a", "b"}
	got := doc.EntityIDs()
	if len(got) != len(want) {
		t.Fatalf("EntityIDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EntityIDs = %v, want %v", got, want)
		}
	}
}

func TestAssemble_RejectsHeaderID(t *testing.T) {
	// A hand-built packet can never carry the reserved id, but a decoded
	// one could; Assemble is the final guard.
	p := Packet{id: HeaderID, availability: timeline.Interval{Start: asmT0, Stop: asmT0.Add(time.Hour)}}
	if _, err := Assemble([]Packet{p}); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("err = %v, want ErrDuplicateIdentifier", err)
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	packets := []Packet{
		entityAt(t, "a", asmT0, time.Hour),
		entityAt(t, "b", asmT0.Add(time.Minute), time.Hour),
	}

	first, err := Assemble(packets)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	second, err := Assemble(packets)
	if err != nil {
		t.Fatalf("Assemble (second): %v", err)
	}

	out1, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out2, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("Marshal (second): %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Fatalf("repeated assembly not byte-identical:\n%s\n%s", out1, out2)
	}
}
