package czml

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/czml-forge/model"
	"github.com/signalsfoundry/czml-forge/timeline"
)

var buildT0 = time.Date(2023, 2, 15, 12, 0, 0, 0, time.UTC)

func twoSamples() []model.Sample {
	return []model.Sample{
		{Time: buildT0, Position: model.Cartesian3{X: 1, Y: 2, Z: 3}},
		{Time: buildT0.Add(time.Minute), Position: model.Cartesian3{X: 4, Y: 5, Z: 6}},
	}
}

func TestBuildEntity_PreservesSampleCount(t *testing.T) {
	p, err := BuildEntity("sat-1", twoSamples())
	if err != nil {
		t.Fatalf("BuildEntity: %v", err)
	}
	if got := p.PositionSampleCount(); got != 2 {
		t.Fatalf("PositionSampleCount = %d, want 2", got)
	}
	if got := p.PositionInterpolation(); got != InterpolationLinear {
		t.Fatalf("PositionInterpolation = %q, want %q", got, InterpolationLinear)
	}
	want := timeline.Interval{Start: buildT0, Stop: buildT0.Add(time.Minute)}
	if p.Availability() != want {
		t.Fatalf("Availability = %s, want %s", p.Availability(), want)
	}
}

func TestBuildEntity_EmptySamples(t *testing.T) {
	_, err := BuildEntity("sat-1", nil)
	if !errors.Is(err, ErrMalformedSample) {
		t.Fatalf("BuildEntity with no samples: err = %v, want ErrMalformedSample", err)
	}
}

func TestBuildEntity_TimestampOrdering(t *testing.T) {
	cases := []struct {
		name   string
		offset time.Duration
	}{
		{"duplicate timestamp", 0},
		{"decreasing timestamp", -time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			samples := []model.Sample{
				{Time: buildT0, Position: model.Cartesian3{X: 1}},
				{Time: buildT0.Add(tc.offset), Position: model.Cartesian3{X: 2}},
			}
			_, err := BuildEntity("sat-1", samples)
			if !errors.Is(err, ErrMalformedSample) {
				t.Fatalf("err = %v, want ErrMalformedSample", err)
			}
		})
	}
}

func TestBuildEntity_NonFinitePosition(t *testing.T) {
	samples := []model.Sample{
		{Time: buildT0, Position: model.Cartesian3{X: math.NaN()}},
	}
	if _, err := BuildEntity("sat-1", samples); !errors.Is(err, ErrMalformedSample) {
		t.Fatalf("err = %v, want ErrMalformedSample", err)
	}
}

func TestBuildEntity_EmptyID(t *testing.T) {
	if _, err := BuildEntity("", twoSamples()); !errors.Is(err, ErrMalformedSample) {
		t.Fatalf("err = %v, want ErrMalformedSample", err)
	}
}

func TestBuildEntity_ReservedID(t *testing.T) {
	if _, err := BuildEntity(HeaderID, twoSamples()); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("err = %v, want ErrDuplicateIdentifier", err)
	}
}

func TestBuildEntity_ExplicitInterval(t *testing.T) {
	wide := timeline.Interval{Start: buildT0.Add(-time.Hour), Stop: buildT0.Add(time.Hour)}
	p, err := BuildEntity("sat-1", twoSamples(), WithInterval(wide))
	if err != nil {
		t.Fatalf("BuildEntity with containing interval: %v", err)
	}
	if p.Availability() != wide {
		t.Fatalf("Availability = %s, want %s", p.Availability(), wide)
	}

	narrow := timeline.Interval{Start: buildT0.Add(10 * time.Second), Stop: buildT0.Add(time.Hour)}
	_, err = BuildEntity("sat-1", twoSamples(), WithInterval(narrow))
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("BuildEntity with non-containing interval: err = %v, want ErrInvalidInterval", err)
	}
}

func TestBuildEntity_SingleSampleHoldsValue(t *testing.T) {
	p, err := BuildEntity("sat-1", twoSamples()[:1])
	if err != nil {
		t.Fatalf("BuildEntity: %v", err)
	}
	if got := p.PositionInterpolation(); got != InterpolationNone {
		t.Fatalf("single-sample interpolation = %q, want none", got)
	}
}

func TestBuildEntity_Orientation(t *testing.T) {
	q := model.Quaternion{X: 0, Y: 0, Z: 0, W: 1}
	samples := twoSamples()
	samples[0].Orientation = &q
	samples[1].Orientation = &q

	p, err := BuildEntity("sat-1", samples)
	if err != nil {
		t.Fatalf("BuildEntity: %v", err)
	}
	if got := p.OrientationSampleCount(); got != 2 {
		t.Fatalf("OrientationSampleCount = %d, want 2", got)
	}

	zero := model.Quaternion{}
	samples[1].Orientation = &zero
	if _, err := BuildEntity("sat-1", samples); !errors.Is(err, ErrMalformedSample) {
		t.Fatalf("all-zero quaternion: err = %v, want ErrMalformedSample", err)
	}
}

func TestBuildStaticEntity(t *testing.T) {
	p, err := BuildStaticEntity("gs-1", model.Cartesian3{X: 6371000},
		WithName("Equator-GS"),
		WithDisplay(model.DisplayOptions{Point: &model.PointOptions{PixelSize: 10, Color: model.RGBA{R: 0, G: 199, B: 203, A: 255}}}),
	)
	if err != nil {
		t.Fatalf("BuildStaticEntity: %v", err)
	}
	pos, ok := p.StaticPosition()
	if !ok {
		t.Fatalf("StaticPosition: packet is not static")
	}
	if pos != (model.Cartesian3{X: 6371000}) {
		t.Fatalf("StaticPosition = %#v", pos)
	}
	if !p.Availability().IsZero() {
		t.Fatalf("static entity should have no availability, got %s", p.Availability())
	}
}

func TestBuildEntity_UnknownFrame(t *testing.T) {
	if _, err := BuildEntity("sat-1", twoSamples(), WithFrame("geodetic")); !errors.Is(err, ErrMalformedSample) {
		t.Fatalf("err = %v, want ErrMalformedSample", err)
	}
}

func TestBuildPolyline(t *testing.T) {
	p, err := BuildPolyline("sat-1", "gs-1", model.RGBA{R: 162, B: 193, A: 255})
	if err != nil {
		t.Fatalf("BuildPolyline: %v", err)
	}
	if p.ID() != "polyline-sat-1-gs-1" {
		t.Fatalf("polyline id = %q", p.ID())
	}

	if _, err := BuildPolyline("", "gs-1", model.RGBA{}); !errors.Is(err, ErrMalformedSample) {
		t.Fatalf("empty endpoint: err = %v, want ErrMalformedSample", err)
	}
}

func TestBuildPolygon(t *testing.T) {
	_, err := BuildPolygon("coverage", []string{"a", "b"}, model.RGBA{}, model.RGBA{})
	if !errors.Is(err, ErrMalformedSample) {
		t.Fatalf("two vertices: err = %v, want ErrMalformedSample", err)
	}

	p, err := BuildPolygon("coverage", []string{"a", "b", "c"}, model.RGBA{R: 255, G: 255, A: 50}, model.RGBA{A: 100})
	if err != nil {
		t.Fatalf("BuildPolygon: %v", err)
	}
	if p.ID() != "coverage" {
		t.Fatalf("polygon id = %q", p.ID())
	}
}

func TestBuildEllipsoid(t *testing.T) {
	_, err := BuildEllipsoid("zone", model.Cartesian3{X: 1e7}, model.Cartesian3{X: 500, Y: 500}, model.RGBA{})
	if !errors.Is(err, ErrMalformedSample) {
		t.Fatalf("zero radius: err = %v, want ErrMalformedSample", err)
	}

	if _, err := BuildEllipsoid("zone", model.Cartesian3{X: 1e7}, model.Cartesian3{X: 500, Y: 500, Z: 500}, model.RGBA{}); err != nil {
		t.Fatalf("BuildEllipsoid: %v", err)
	}
}

func TestBuildEntity_ErrorNamesEntity(t *testing.T) {
	_, err := BuildEntity("sat-9", nil)
	if err == nil || !strings.Contains(err.Error(), `"sat-9"`) {
		t.Fatalf("error should name the entity, got %v", err)
	}
}
