package czml

import (
	"fmt"

	"github.com/signalsfoundry/czml-forge/model"
	"github.com/signalsfoundry/czml-forge/timeline"
)

// EntityOption tweaks how BuildEntity and BuildStaticEntity construct a
// packet.
type EntityOption func(*entityConfig)

type entityConfig struct {
	name           string
	interval       *timeline.Interval
	frame          model.Frame
	referenceFrame string
	interpolation  *Interpolation
	display        model.DisplayOptions
}

// WithName attaches a human-readable name to the packet.
func WithName(name string) EntityOption {
	return func(c *entityConfig) { c.name = name }
}

// WithInterval declares an explicit validity interval instead of deriving
// one from the sample time range. The interval must contain every sample.
func WithInterval(iv timeline.Interval) EntityOption {
	return func(c *entityConfig) { c.interval = &iv }
}

// WithFrame selects the coordinate convention of the supplied positions.
// The default is FrameCartesian (ECEF metres).
func WithFrame(f model.Frame) EntityOption {
	return func(c *entityConfig) { c.frame = f }
}

// WithReferenceFrame sets the renderer's referenceFrame hint (for example
// "INERTIAL"). Most fixed-frame data leaves it unset.
func WithReferenceFrame(rf string) EntityOption {
	return func(c *entityConfig) { c.referenceFrame = rf }
}

// WithInterpolation overrides the interpolation hint. Without it the
// builder picks InterpolationLinear for multi-sample series, matching what
// the renderer would do when given no hint.
func WithInterpolation(i Interpolation) EntityOption {
	return func(c *entityConfig) { c.interpolation = &i }
}

// WithDisplay attaches static display properties.
func WithDisplay(d model.DisplayOptions) EntityOption {
	return func(c *entityConfig) { c.display = d }
}

// BuildEntity transforms one caller-supplied time series into a packet.
//
// Sample timestamps must be strictly increasing and all components finite,
// otherwise the call fails with ErrMalformedSample. An explicit interval
// (WithInterval) must contain the sample time range, otherwise the call
// fails with ErrInvalidInterval; without one, the availability is derived
// as [first sample, last sample]. The call is all-or-nothing: a malformed
// series never becomes a partially valid packet.
func BuildEntity(id string, samples []model.Sample, opts ...EntityOption) (Packet, error) {
	cfg := applyEntityOptions(opts)
	if err := checkID(id); err != nil {
		return Packet{}, err
	}
	if len(samples) == 0 {
		return Packet{}, fmt.Errorf("entity %q: no samples: %w", id, ErrMalformedSample)
	}
	if !cfg.frame.Valid() {
		return Packet{}, fmt.Errorf("entity %q: unknown frame %q: %w", id, cfg.frame, ErrMalformedSample)
	}

	pos := make([]positionSample, 0, len(samples))
	var orient []orientationSample
	for i, s := range samples {
		if i > 0 && !s.Time.After(samples[i-1].Time) {
			return Packet{}, fmt.Errorf("entity %q: sample %d timestamp %s does not increase: %w",
				id, i, timeline.FormatTime(s.Time), ErrMalformedSample)
		}
		if !s.Position.IsFinite() {
			return Packet{}, fmt.Errorf("entity %q: sample %d has non-finite position: %w", id, i, ErrMalformedSample)
		}
		pos = append(pos, positionSample{at: s.Time.UTC(), value: s.Position})

		if s.Orientation == nil {
			continue
		}
		if !s.Orientation.IsFinite() {
			return Packet{}, fmt.Errorf("entity %q: sample %d has non-finite orientation: %w", id, i, ErrMalformedSample)
		}
		if s.Orientation.IsZero() {
			return Packet{}, fmt.Errorf("entity %q: sample %d has all-zero orientation: %w", id, i, ErrMalformedSample)
		}
		orient = append(orient, orientationSample{at: s.Time.UTC(), value: *s.Orientation})
	}

	derived := timeline.Interval{Start: pos[0].at, Stop: pos[len(pos)-1].at}
	availability := derived
	if cfg.interval != nil {
		if !cfg.interval.Contains(derived) {
			return Packet{}, fmt.Errorf("entity %q: explicit interval %s does not contain sample range %s: %w",
				id, cfg.interval, derived, ErrInvalidInterval)
		}
		availability = *cfg.interval
	}

	interp := InterpolationNone
	if len(pos) > 1 {
		interp = InterpolationLinear
	}
	if cfg.interpolation != nil {
		interp = *cfg.interpolation
	}

	p := Packet{
		id:           id,
		name:         cfg.name,
		availability: availability,
		display:      cfg.display,
		position: &positionProperty{
			frame:          cfg.frame,
			referenceFrame: cfg.referenceFrame,
			interpolation:  interp,
			samples:        pos,
		},
	}
	if len(orient) > 0 {
		oi := InterpolationNone
		if len(orient) > 1 {
			oi = InterpolationLinear
		}
		p.orientation = &orientationProperty{interpolation: oi, samples: orient}
	}
	return p, nil
}

// BuildStaticEntity produces a packet with a single fixed position and no
// time variation. Its value is held constant by the renderer, so the
// packet carries no interpolation hint and, unless WithInterval is given,
// no availability either.
func BuildStaticEntity(id string, position model.Cartesian3, opts ...EntityOption) (Packet, error) {
	cfg := applyEntityOptions(opts)
	if err := checkID(id); err != nil {
		return Packet{}, err
	}
	if !position.IsFinite() {
		return Packet{}, fmt.Errorf("entity %q: non-finite static position: %w", id, ErrMalformedSample)
	}
	if !cfg.frame.Valid() {
		return Packet{}, fmt.Errorf("entity %q: unknown frame %q: %w", id, cfg.frame, ErrMalformedSample)
	}

	p := Packet{
		id:      id,
		name:    cfg.name,
		display: cfg.display,
		position: &positionProperty{
			frame:          cfg.frame,
			referenceFrame: cfg.referenceFrame,
			interpolation:  InterpolationNone,
			static:         &position,
		},
	}
	if cfg.interval != nil {
		p.availability = *cfg.interval
	}
	return p, nil
}

// BuildPolyline produces a packet drawing a line between the position
// properties of two other entities. The packet id is derived from the
// endpoints; the endpoints themselves are resolved by the renderer, so
// they need not exist in the same document yet.
func BuildPolyline(endpointA, endpointB string, color model.RGBA) (Packet, error) {
	if endpointA == "" || endpointB == "" {
		return Packet{}, fmt.Errorf("polyline: empty endpoint id: %w", ErrMalformedSample)
	}
	return Packet{
		id: fmt.Sprintf("polyline-%s-%s", endpointA, endpointB),
		polyline: &polylineProperty{
			endpointIDs: []string{endpointA, endpointB},
			color:       color,
		},
	}, nil
}

// BuildPolygon produces a packet spanning a filled polygon over the
// position properties of the named vertex entities.
func BuildPolygon(id string, vertexIDs []string, fill, outline model.RGBA) (Packet, error) {
	if err := checkID(id); err != nil {
		return Packet{}, err
	}
	if len(vertexIDs) < 3 {
		return Packet{}, fmt.Errorf("polygon %q: need at least 3 vertices, got %d: %w", id, len(vertexIDs), ErrMalformedSample)
	}
	for _, v := range vertexIDs {
		if v == "" {
			return Packet{}, fmt.Errorf("polygon %q: empty vertex id: %w", id, ErrMalformedSample)
		}
	}
	return Packet{
		id: id,
		polygon: &polygonProperty{
			vertexIDs:         append([]string(nil), vertexIDs...),
			fillColor:         fill,
			outlineColor:      outline,
			outline:           true,
			perPositionHeight: true,
		},
	}, nil
}

// BuildEllipsoid produces a static packet surrounded by a shaded
// ellipsoid with the given radii (metres).
func BuildEllipsoid(id string, position, radii model.Cartesian3, color model.RGBA, opts ...EntityOption) (Packet, error) {
	p, err := BuildStaticEntity(id, position, opts...)
	if err != nil {
		return Packet{}, err
	}
	if !radii.IsFinite() || radii.X <= 0 || radii.Y <= 0 || radii.Z <= 0 {
		return Packet{}, fmt.Errorf("ellipsoid %q: radii must be positive and finite: %w", id, ErrMalformedSample)
	}
	p.ellipsoid = &ellipsoidProperty{radii: radii, color: color}
	return p, nil
}

func applyEntityOptions(opts []EntityOption) entityConfig {
	cfg := entityConfig{frame: model.FrameCartesian}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("entity id is empty: %w", ErrMalformedSample)
	}
	if id == HeaderID {
		return fmt.Errorf("entity id %q is reserved for the document header: %w", id, ErrDuplicateIdentifier)
	}
	return nil
}
