// Package scenario loads JSON scene descriptions: which entities exist,
// where their samples come from (inline rows, a CSV track file, or a TLE
// propagated over a window), and how they should be displayed. Both the
// CLI and the HTTP service feed the catalog through it.
package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/czml-forge/czml"
	"github.com/signalsfoundry/czml-forge/internal/catalog"
	"github.com/signalsfoundry/czml-forge/model"
	"github.com/signalsfoundry/czml-forge/timeline"
	"github.com/signalsfoundry/czml-forge/track"
)

// Scenario is a parsed scene description.
type Scenario struct {
	Name       string     `json:"name"`
	Interval   string     `json:"interval"` // optional "start/stop"; empty derives from entities
	Multiplier float64    `json:"multiplier"`
	Entities   []Entity   `json:"entities"`
	Polylines  []Polyline `json:"polylines"`
	Polygons   []Polygon  `json:"polygons"`
}

// Entity describes one trackable object. Exactly one of Samples, Static,
// CSV, or TLE must be set.
type Entity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Frame    string `json:"frame"`    // cartesian (default) | cartographicDegrees | cartographicRadians
	Interval string `json:"interval"` // optional explicit availability

	Samples [][]float64 `json:"samples"` // rows of [unixSeconds, x, y, z]
	Static  []float64   `json:"static"`  // [x, y, z]
	CSV     string      `json:"csv"`     // track file path, relative to the scenario file
	TLE     []string    `json:"tle"`     // two element-set lines; requires Window
	Window  *Window     `json:"window"`

	Point     *Point     `json:"point"`
	Label     *Label     `json:"label"`
	Billboard *Billboard `json:"billboard"`
	Path      *Path      `json:"path"`
	Ellipsoid *Ellipsoid `json:"ellipsoid"` // only valid with Static
}

// Window is the sampling plan for TLE propagation.
type Window struct {
	Start       string  `json:"start"`
	Stop        string  `json:"stop"`
	StepSeconds float64 `json:"step_seconds"`
}

// Color is a 4-component RGBA array with 0-255 values.
type Color []int

// Point, Label, Billboard, and Path mirror the recognised display options.
type Point struct {
	PixelSize float64 `json:"pixel_size"`
	Color     Color   `json:"color"`
}

type Label struct {
	Text  string `json:"text"`
	Color Color  `json:"color"`
}

type Billboard struct {
	Image string  `json:"image"`
	Scale float64 `json:"scale"`
}

type Path struct {
	LeadTime   float64 `json:"lead_time"`
	TrailTime  float64 `json:"trail_time"`
	Resolution float64 `json:"resolution"`
	Color      Color   `json:"color"`
}

// Ellipsoid surrounds a static entity with a shaded ellipsoid.
type Ellipsoid struct {
	Radii []float64 `json:"radii"` // [x, y, z] metres
	Color Color     `json:"color"`
}

// Polyline draws a line between two entities' positions.
type Polyline struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Color Color  `json:"color"`
}

// Polygon spans a filled polygon over the named vertex entities.
type Polygon struct {
	ID           string   `json:"id"`
	Vertices     []string `json:"vertices"`
	FillColor    Color    `json:"fill_color"`
	OutlineColor Color    `json:"outline_color"`
}

// Summary reports what a Load call produced, mainly for logging.
type Summary struct {
	EntityIDs   []string
	GeometryIDs []string
}

// Parse decodes a scenario from r. It fails only on JSON and document
// structure errors; per-entity validation happens when packets are built.
func Parse(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario: decode failed: %w", err)
	}
	return &s, nil
}

// Load builds packets for every entity and geometry in the scenario and
// registers them in the catalog, in scenario order. Like assembly it is
// fail-fast: the first bad entity aborts the load.
func (s *Scenario) Load(cat *catalog.Catalog, baseDir string) (*Summary, error) {
	if cat == nil {
		return nil, fmt.Errorf("scenario: catalog is nil")
	}

	summary := &Summary{}
	for _, e := range s.Entities {
		p, err := BuildEntity(e, baseDir)
		if err != nil {
			return nil, err
		}
		if err := cat.Register(p); err != nil {
			return nil, err
		}
		summary.EntityIDs = append(summary.EntityIDs, p.ID())
	}
	for _, pl := range s.Polylines {
		p, err := czml.BuildPolyline(pl.A, pl.B, rgba(pl.Color))
		if err != nil {
			return nil, err
		}
		if err := cat.Register(p); err != nil {
			return nil, err
		}
		summary.GeometryIDs = append(summary.GeometryIDs, p.ID())
	}
	for _, pg := range s.Polygons {
		p, err := czml.BuildPolygon(pg.ID, pg.Vertices, rgba(pg.FillColor), rgba(pg.OutlineColor))
		if err != nil {
			return nil, err
		}
		if err := cat.Register(p); err != nil {
			return nil, err
		}
		summary.GeometryIDs = append(summary.GeometryIDs, p.ID())
	}
	return summary, nil
}

// DocumentOptions translates the scenario's document settings into
// assembler options.
func (s *Scenario) DocumentOptions() ([]czml.DocumentOption, error) {
	var opts []czml.DocumentOption
	if s.Name != "" {
		opts = append(opts, czml.WithDocumentName(s.Name))
	}
	if s.Interval != "" {
		iv, err := timeline.ParseInterval(s.Interval)
		if err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
		opts = append(opts, czml.WithDocumentInterval(iv))
	}
	if s.Multiplier != 0 {
		opts = append(opts, czml.WithClockMultiplier(s.Multiplier))
	}
	return opts, nil
}

// BuildEntity turns one scenario entity into a packet, resolving its
// sample source first.
func BuildEntity(e Entity, baseDir string) (czml.Packet, error) {
	opts, err := entityOptions(e)
	if err != nil {
		return czml.Packet{}, err
	}

	sources := 0
	for _, set := range []bool{len(e.Samples) > 0, len(e.Static) > 0, e.CSV != "", len(e.TLE) > 0} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return czml.Packet{}, fmt.Errorf("entity %q: want exactly one of samples, static, csv, tle; got %d: %w",
			e.ID, sources, czml.ErrMalformedSample)
	}

	if len(e.Static) > 0 {
		if len(e.Static) != 3 {
			return czml.Packet{}, fmt.Errorf("entity %q: static position has %d components, want 3: %w",
				e.ID, len(e.Static), czml.ErrMalformedSample)
		}
		pos := model.Cartesian3{X: e.Static[0], Y: e.Static[1], Z: e.Static[2]}
		if e.Ellipsoid != nil {
			if len(e.Ellipsoid.Radii) != 3 {
				return czml.Packet{}, fmt.Errorf("entity %q: ellipsoid radii have %d components, want 3: %w",
					e.ID, len(e.Ellipsoid.Radii), czml.ErrMalformedSample)
			}
			radii := model.Cartesian3{X: e.Ellipsoid.Radii[0], Y: e.Ellipsoid.Radii[1], Z: e.Ellipsoid.Radii[2]}
			return czml.BuildEllipsoid(e.ID, pos, radii, rgba(e.Ellipsoid.Color), opts...)
		}
		return czml.BuildStaticEntity(e.ID, pos, opts...)
	}
	if e.Ellipsoid != nil {
		return czml.Packet{}, fmt.Errorf("entity %q: ellipsoid requires a static position: %w", e.ID, czml.ErrMalformedSample)
	}

	samples, err := resolveSamples(e, baseDir)
	if err != nil {
		return czml.Packet{}, err
	}
	return czml.BuildEntity(e.ID, samples, opts...)
}

func resolveSamples(e Entity, baseDir string) ([]model.Sample, error) {
	switch {
	case len(e.Samples) > 0:
		samples := make([]model.Sample, 0, len(e.Samples))
		for i, row := range e.Samples {
			if len(row) != 4 {
				return nil, fmt.Errorf("entity %q: sample row %d has %d values, want [t, x, y, z]: %w",
					e.ID, i, len(row), czml.ErrMalformedSample)
			}
			sec, frac := int64(row[0]), row[0]-float64(int64(row[0]))
			samples = append(samples, model.Sample{
				Time:     time.Unix(sec, int64(frac*float64(time.Second))).UTC(),
				Position: model.Cartesian3{X: row[1], Y: row[2], Z: row[3]},
			})
		}
		return samples, nil

	case e.CSV != "":
		path := e.CSV
		if baseDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("entity %q: open track %q: %w", e.ID, path, err)
		}
		defer f.Close()
		samples, err := track.ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.ID, err)
		}
		return samples, nil

	default: // TLE
		if len(e.TLE) != 2 {
			return nil, fmt.Errorf("entity %q: tle needs exactly 2 lines, got %d: %w", e.ID, len(e.TLE), czml.ErrMalformedSample)
		}
		if e.Window == nil {
			return nil, fmt.Errorf("entity %q: tle requires a sampling window: %w", e.ID, czml.ErrMalformedSample)
		}
		w, err := e.Window.toTimeline()
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.ID, err)
		}
		frame := model.Frame(e.Frame)
		if e.Frame == "" {
			frame = model.FrameCartesian
		}
		samples, err := track.SampleTLE(e.TLE[0], e.TLE[1], w, frame)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.ID, err)
		}
		return samples, nil
	}
}

func (w *Window) toTimeline() (timeline.Window, error) {
	start, err := timeline.ParseTime(w.Start)
	if err != nil {
		return timeline.Window{}, err
	}
	stop, err := timeline.ParseTime(w.Stop)
	if err != nil {
		return timeline.Window{}, err
	}
	if w.StepSeconds <= 0 {
		return timeline.Window{}, fmt.Errorf("window step_seconds %v: must be positive", w.StepSeconds)
	}
	return timeline.Window{
		Start: start,
		Stop:  stop,
		Step:  time.Duration(w.StepSeconds * float64(time.Second)),
	}, nil
}

func entityOptions(e Entity) ([]czml.EntityOption, error) {
	var opts []czml.EntityOption
	if e.Name != "" {
		opts = append(opts, czml.WithName(e.Name))
	}
	if e.Frame != "" {
		opts = append(opts, czml.WithFrame(model.Frame(e.Frame)))
	}
	if e.Interval != "" {
		iv, err := timeline.ParseInterval(e.Interval)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.ID, err)
		}
		opts = append(opts, czml.WithInterval(iv))
	}

	var display model.DisplayOptions
	if e.Point != nil {
		display.Point = &model.PointOptions{PixelSize: e.Point.PixelSize, Color: rgba(e.Point.Color)}
	}
	if e.Label != nil {
		display.Label = &model.LabelOptions{Text: e.Label.Text}
		if e.Label.Color != nil {
			c := rgba(e.Label.Color)
			display.Label.FillColor = &c
		}
	}
	if e.Billboard != nil {
		display.Billboard = &model.BillboardOptions{Image: e.Billboard.Image, Scale: e.Billboard.Scale}
	}
	if e.Path != nil {
		display.Path = &model.PathOptions{
			LeadTime:   e.Path.LeadTime,
			TrailTime:  e.Path.TrailTime,
			Resolution: e.Path.Resolution,
			Color:      rgba(e.Path.Color),
		}
	}
	if display != (model.DisplayOptions{}) {
		opts = append(opts, czml.WithDisplay(display))
	}
	return opts, nil
}

// rgba is tolerant of short arrays; missing components default to zero.
func rgba(c Color) model.RGBA {
	var out model.RGBA
	if len(c) > 0 {
		out.R = clampByte(c[0])
	}
	if len(c) > 1 {
		out.G = clampByte(c[1])
	}
	if len(c) > 2 {
		out.B = clampByte(c[2])
	}
	if len(c) > 3 {
		out.A = clampByte(c[3])
	}
	return out
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
