package czml

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/czml-forge/model"
	"github.com/signalsfoundry/czml-forge/timeline"
)

// ParseDocument parses serialised document JSON back into a Document. The
// reconstructed packets are re-assembled through Assemble, so a parsed
// document satisfies the same invariants as a freshly built one; malformed
// input fails with the matching sentinel error.
func ParseDocument(data []byte) (Document, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("parse document: %w", err)
	}
	if len(raw) == 0 {
		return Document{}, fmt.Errorf("parse document: empty array: %w", ErrEmptyDocument)
	}

	var header headerJSON
	if err := json.Unmarshal(raw[0], &header); err != nil {
		return Document{}, fmt.Errorf("parse header: %w", err)
	}
	if header.ID != HeaderID {
		return Document{}, fmt.Errorf("parse header: first packet id %q, want %q", header.ID, HeaderID)
	}
	if header.Version != Version {
		return Document{}, fmt.Errorf("parse header: unsupported version %q", header.Version)
	}
	if header.Clock == nil {
		return Document{}, fmt.Errorf("parse header: missing clock")
	}
	interval, err := timeline.ParseInterval(header.Clock.Interval)
	if err != nil {
		return Document{}, fmt.Errorf("parse header clock: %w", err)
	}
	current, err := timeline.ParseTime(header.Clock.CurrentTime)
	if err != nil {
		return Document{}, fmt.Errorf("parse header clock: %w", err)
	}

	packets := make([]Packet, 0, len(raw)-1)
	for i, msg := range raw[1:] {
		var pj packetJSON
		if err := json.Unmarshal(msg, &pj); err != nil {
			return Document{}, fmt.Errorf("parse packet %d: %w", i+1, err)
		}
		p, err := decodePacket(pj)
		if err != nil {
			return Document{}, fmt.Errorf("parse packet %d (%q): %w", i+1, pj.ID, err)
		}
		packets = append(packets, p)
	}

	return Assemble(packets,
		WithDocumentName(header.Name),
		WithDocumentInterval(interval),
		WithCurrentTime(current),
		WithClockMultiplier(header.Clock.Multiplier),
	)
}

func decodePacket(pj packetJSON) (Packet, error) {
	p := Packet{id: pj.ID, name: pj.Name}

	if pj.Availability != "" {
		iv, err := timeline.ParseInterval(pj.Availability)
		if err != nil {
			return Packet{}, err
		}
		p.availability = iv
	}

	if pj.Position != nil {
		pos, err := decodePosition(pj.Position)
		if err != nil {
			return Packet{}, err
		}
		p.position = pos
	}
	if pj.Orientation != nil {
		or, err := decodeOrientation(pj.Orientation)
		if err != nil {
			return Packet{}, err
		}
		p.orientation = or
	}

	if pj.Point != nil {
		c, err := colorFrom(pj.Point.Color)
		if err != nil {
			return Packet{}, fmt.Errorf("point: %w", err)
		}
		p.display.Point = &model.PointOptions{
			PixelSize: pj.Point.PixelSize,
			Color:     c,
		}
	}
	if pj.Label != nil {
		p.display.Label = &model.LabelOptions{Text: pj.Label.Text}
		if pj.Label.FillColor != nil {
			c, err := colorFrom(*pj.Label.FillColor)
			if err != nil {
				return Packet{}, fmt.Errorf("label: %w", err)
			}
			p.display.Label.FillColor = &c
		}
	}
	if pj.Billboard != nil {
		p.display.Billboard = &model.BillboardOptions{
			Image: pj.Billboard.Image,
			Scale: pj.Billboard.Scale,
		}
	}
	if pj.Path != nil {
		c, err := materialColor(pj.Path.Material)
		if err != nil {
			return Packet{}, fmt.Errorf("path: %w", err)
		}
		p.display.Path = &model.PathOptions{
			LeadTime:   pj.Path.LeadTime,
			TrailTime:  pj.Path.TrailTime,
			Resolution: pj.Path.Resolution,
			Color:      c,
		}
	}

	if pj.Polyline != nil {
		c, err := materialColor(pj.Polyline.Material)
		if err != nil {
			return Packet{}, fmt.Errorf("polyline: %w", err)
		}
		p.polyline = &polylineProperty{
			endpointIDs: stripPositionRefs(pj.Polyline.Positions.References),
			color:       c,
		}
	}
	if pj.Polygon != nil {
		fill, err := materialColor(pj.Polygon.Material)
		if err != nil {
			return Packet{}, fmt.Errorf("polygon: %w", err)
		}
		outline, err := colorFrom(pj.Polygon.OutlineColor)
		if err != nil {
			return Packet{}, fmt.Errorf("polygon outline: %w", err)
		}
		p.polygon = &polygonProperty{
			vertexIDs:         stripPositionRefs(pj.Polygon.Positions.References),
			fillColor:         fill,
			outlineColor:      outline,
			outline:           pj.Polygon.Outline,
			perPositionHeight: pj.Polygon.PerPositionHeight,
		}
	}
	if pj.Ellipsoid != nil {
		r := pj.Ellipsoid.Radii.Cartesian
		if len(r) != 3 {
			return Packet{}, fmt.Errorf("ellipsoid radii have %d components, want 3: %w", len(r), ErrMalformedSample)
		}
		c, err := materialColor(pj.Ellipsoid.Material)
		if err != nil {
			return Packet{}, fmt.Errorf("ellipsoid: %w", err)
		}
		p.ellipsoid = &ellipsoidProperty{
			radii: model.Cartesian3{X: r[0], Y: r[1], Z: r[2]},
			color: c,
		}
	}
	return p, nil
}

func decodePosition(pos *positionJSON) (*positionProperty, error) {
	frame := model.FrameCartesian
	flat := pos.Cartesian
	switch {
	case pos.CartographicDegrees != nil:
		frame = model.FrameCartographicDegrees
		flat = pos.CartographicDegrees
	case pos.CartographicRadians != nil:
		frame = model.FrameCartographicRadians
		flat = pos.CartographicRadians
	}

	pp := &positionProperty{
		frame:          frame,
		referenceFrame: pos.ReferenceFrame,
		interpolation:  Interpolation(pos.InterpolationAlgorithm),
	}

	if pos.Epoch == "" {
		if len(flat) != 3 {
			return nil, fmt.Errorf("static position has %d components, want 3: %w", len(flat), ErrMalformedSample)
		}
		static := model.Cartesian3{X: flat[0], Y: flat[1], Z: flat[2]}
		if !static.IsFinite() {
			return nil, fmt.Errorf("static position has non-finite component: %w", ErrMalformedSample)
		}
		pp.static = &static
		return pp, nil
	}

	epoch, err := timeline.ParseTime(pos.Epoch)
	if err != nil {
		return nil, err
	}
	if len(flat) == 0 || len(flat)%4 != 0 {
		return nil, fmt.Errorf("time-tagged position array length %d not a multiple of 4: %w", len(flat), ErrMalformedSample)
	}
	pp.samples = make([]positionSample, 0, len(flat)/4)
	for i := 0; i < len(flat); i += 4 {
		if i > 0 && flat[i] <= flat[i-4] {
			return nil, fmt.Errorf("position offset %v at index %d does not increase: %w", flat[i], i/4, ErrMalformedSample)
		}
		value := model.Cartesian3{X: flat[i+1], Y: flat[i+2], Z: flat[i+3]}
		if !value.IsFinite() {
			return nil, fmt.Errorf("position sample %d has non-finite component: %w", i/4, ErrMalformedSample)
		}
		pp.samples = append(pp.samples, positionSample{
			at:    offsetTime(epoch, flat[i]),
			value: value,
		})
	}
	return pp, nil
}

func decodeOrientation(or *orientationJSON) (*orientationProperty, error) {
	if or.Epoch == "" {
		return nil, fmt.Errorf("orientation missing epoch: %w", ErrMalformedSample)
	}
	epoch, err := timeline.ParseTime(or.Epoch)
	if err != nil {
		return nil, err
	}
	flat := or.UnitQuaternion
	if len(flat) == 0 || len(flat)%5 != 0 {
		return nil, fmt.Errorf("unit quaternion array length %d not a multiple of 5: %w", len(flat), ErrMalformedSample)
	}
	op := &orientationProperty{
		interpolation: Interpolation(or.InterpolationAlgorithm),
		samples:       make([]orientationSample, 0, len(flat)/5),
	}
	for i := 0; i < len(flat); i += 5 {
		if i > 0 && flat[i] <= flat[i-5] {
			return nil, fmt.Errorf("orientation offset %v at index %d does not increase: %w", flat[i], i/5, ErrMalformedSample)
		}
		value := model.Quaternion{X: flat[i+1], Y: flat[i+2], Z: flat[i+3], W: flat[i+4]}
		if !value.IsFinite() {
			return nil, fmt.Errorf("orientation sample %d has non-finite component: %w", i/5, ErrMalformedSample)
		}
		if value.IsZero() {
			return nil, fmt.Errorf("orientation sample %d is all-zero: %w", i/5, ErrMalformedSample)
		}
		op.samples = append(op.samples, orientationSample{
			at:    offsetTime(epoch, flat[i]),
			value: value,
		})
	}
	return op, nil
}

func offsetTime(epoch time.Time, seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second))).UTC()
}

func stripPositionRefs(refs []string) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = strings.TrimSuffix(r, "#position")
	}
	return out
}

// colorFrom decodes an rgba component array. An absent array yields the
// zero color; any other length than 4 is malformed.
func colorFrom(c colorJSON) (model.RGBA, error) {
	switch len(c.RGBA) {
	case 0:
		return model.RGBA{}, nil
	case 4:
		return model.RGBA{R: uint8(c.RGBA[0]), G: uint8(c.RGBA[1]), B: uint8(c.RGBA[2]), A: uint8(c.RGBA[3])}, nil
	default:
		return model.RGBA{}, fmt.Errorf("rgba array has %d components, want 4: %w", len(c.RGBA), ErrMalformedSample)
	}
}

func materialColor(m materialJSON) (model.RGBA, error) {
	return colorFrom(m.SolidColor.Color)
}
