package czml

import (
	"encoding/json"

	"github.com/signalsfoundry/czml-forge/model"
	"github.com/signalsfoundry/czml-forge/timeline"
)

// clockRange is the renderer behaviour when the clock leaves the document
// interval; we always clamp.
const clockRange = "CLAMPED"

// Wire shapes. Kept unexported so the internal data model stays
// renderer-encoding-agnostic; flattening happens only here.

type headerJSON struct {
	ID      string     `json:"id"`
	Name    string     `json:"name,omitempty"`
	Version string     `json:"version"`
	Clock   *clockJSON `json:"clock,omitempty"`
}

type clockJSON struct {
	Interval    string  `json:"interval"`
	CurrentTime string  `json:"currentTime"`
	Multiplier  float64 `json:"multiplier"`
	Range       string  `json:"range"`
}

type packetJSON struct {
	ID           string           `json:"id"`
	Name         string           `json:"name,omitempty"`
	Availability string           `json:"availability,omitempty"`
	Position     *positionJSON    `json:"position,omitempty"`
	Orientation  *orientationJSON `json:"orientation,omitempty"`
	Point        *pointJSON       `json:"point,omitempty"`
	Label        *labelJSON       `json:"label,omitempty"`
	Billboard    *billboardJSON   `json:"billboard,omitempty"`
	Path         *pathJSON        `json:"path,omitempty"`
	Polyline     *polylineJSON    `json:"polyline,omitempty"`
	Polygon      *polygonJSON     `json:"polygon,omitempty"`
	Ellipsoid    *ellipsoidJSON   `json:"ellipsoid,omitempty"`
}

type positionJSON struct {
	InterpolationAlgorithm string    `json:"interpolationAlgorithm,omitempty"`
	ReferenceFrame         string    `json:"referenceFrame,omitempty"`
	Epoch                  string    `json:"epoch,omitempty"`
	Cartesian              []float64 `json:"cartesian,omitempty"`
	CartographicDegrees    []float64 `json:"cartographicDegrees,omitempty"`
	CartographicRadians    []float64 `json:"cartographicRadians,omitempty"`
}

type orientationJSON struct {
	InterpolationAlgorithm string    `json:"interpolationAlgorithm,omitempty"`
	Epoch                  string    `json:"epoch,omitempty"`
	UnitQuaternion         []float64 `json:"unitQuaternion"`
}

type colorJSON struct {
	RGBA []int `json:"rgba"`
}

type solidColorJSON struct {
	Color colorJSON `json:"color"`
}

type materialJSON struct {
	SolidColor solidColorJSON `json:"solidColor"`
}

type pointJSON struct {
	PixelSize float64   `json:"pixelSize"`
	Color     colorJSON `json:"color"`
}

type labelJSON struct {
	Text      string     `json:"text"`
	FillColor *colorJSON `json:"fillColor,omitempty"`
}

type billboardJSON struct {
	Image string  `json:"image"`
	Scale float64 `json:"scale,omitempty"`
}

type pathJSON struct {
	LeadTime   float64      `json:"leadTime"`
	TrailTime  float64      `json:"trailTime"`
	Resolution float64      `json:"resolution"`
	Material   materialJSON `json:"material"`
}

type referenceListJSON struct {
	References []string `json:"references"`
}

type polylineJSON struct {
	Positions referenceListJSON `json:"positions"`
	Material  materialJSON      `json:"material"`
}

type polygonJSON struct {
	Positions         referenceListJSON `json:"positions"`
	Fill              bool              `json:"fill"`
	Material          materialJSON      `json:"material"`
	Outline           bool              `json:"outline"`
	OutlineColor      colorJSON         `json:"outlineColor"`
	PerPositionHeight bool              `json:"perPositionHeight"`
}

type radiiJSON struct {
	Cartesian []float64 `json:"cartesian"`
}

type ellipsoidJSON struct {
	Radii    radiiJSON    `json:"radii"`
	Material materialJSON `json:"material"`
}

// MarshalJSON serialises the document as the renderer's JSON array: the
// header object first, then one object per entity packet in document
// order. Output is deterministic, so assembling the same packets twice
// yields byte-identical text.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(d.packets)+1)
	out = append(out, headerJSON{
		ID:      HeaderID,
		Name:    d.name,
		Version: Version,
		Clock: &clockJSON{
			Interval:    d.interval.String(),
			CurrentTime: timeline.FormatTime(d.current),
			Multiplier:  d.multiplier,
			Range:       clockRange,
		},
	})
	for _, p := range d.packets {
		out = append(out, encodePacket(p))
	}
	return json.Marshal(out)
}

func encodePacket(p Packet) packetJSON {
	out := packetJSON{
		ID:   p.id,
		Name: p.name,
	}
	if !p.availability.IsZero() {
		out.Availability = p.availability.String()
	}
	if p.position != nil {
		out.Position = encodePosition(p.position)
	}
	if p.orientation != nil {
		out.Orientation = encodeOrientation(p.orientation)
	}

	if pt := p.display.Point; pt != nil {
		out.Point = &pointJSON{PixelSize: pt.PixelSize, Color: colorOf(pt.Color)}
	}
	if lb := p.display.Label; lb != nil {
		out.Label = &labelJSON{Text: lb.Text}
		if lb.FillColor != nil {
			c := colorOf(*lb.FillColor)
			out.Label.FillColor = &c
		}
	}
	if bb := p.display.Billboard; bb != nil {
		out.Billboard = &billboardJSON{Image: bb.Image}
		if bb.Scale > 0 {
			out.Billboard.Scale = bb.Scale
		}
	}
	if ph := p.display.Path; ph != nil {
		out.Path = &pathJSON{
			LeadTime:   ph.LeadTime,
			TrailTime:  ph.TrailTime,
			Resolution: ph.Resolution,
			Material:   solidMaterial(ph.Color),
		}
	}

	if pl := p.polyline; pl != nil {
		refs := make([]string, len(pl.endpointIDs))
		for i, id := range pl.endpointIDs {
			refs[i] = id + "#position"
		}
		out.Polyline = &polylineJSON{
			Positions: referenceListJSON{References: refs},
			Material:  solidMaterial(pl.color),
		}
	}
	if pg := p.polygon; pg != nil {
		refs := make([]string, len(pg.vertexIDs))
		for i, id := range pg.vertexIDs {
			refs[i] = id + "#position"
		}
		out.Polygon = &polygonJSON{
			Positions:         referenceListJSON{References: refs},
			Fill:              true,
			Material:          solidMaterial(pg.fillColor),
			Outline:           pg.outline,
			OutlineColor:      colorOf(pg.outlineColor),
			PerPositionHeight: pg.perPositionHeight,
		}
	}
	if el := p.ellipsoid; el != nil {
		out.Ellipsoid = &ellipsoidJSON{
			Radii:    radiiJSON{Cartesian: []float64{el.radii.X, el.radii.Y, el.radii.Z}},
			Material: solidMaterial(el.color),
		}
	}
	return out
}

// encodePosition flattens the internal sample sequence into the wire
// layout: a static triple as a bare 3-component array, a time series as
// offset-from-epoch seconds alternating with the coordinate components.
func encodePosition(pp *positionProperty) *positionJSON {
	out := &positionJSON{
		InterpolationAlgorithm: string(pp.interpolation),
		ReferenceFrame:         pp.referenceFrame,
	}

	var flat []float64
	if pp.static != nil {
		flat = []float64{pp.static.X, pp.static.Y, pp.static.Z}
	} else {
		epoch := pp.samples[0].at
		out.Epoch = timeline.FormatTime(epoch)
		flat = make([]float64, 0, len(pp.samples)*4)
		for _, s := range pp.samples {
			flat = append(flat, s.at.Sub(epoch).Seconds(), s.value.X, s.value.Y, s.value.Z)
		}
	}

	switch pp.frame {
	case model.FrameCartographicDegrees:
		out.CartographicDegrees = flat
	case model.FrameCartographicRadians:
		out.CartographicRadians = flat
	default:
		out.Cartesian = flat
	}
	return out
}

func encodeOrientation(op *orientationProperty) *orientationJSON {
	epoch := op.samples[0].at
	flat := make([]float64, 0, len(op.samples)*5)
	for _, s := range op.samples {
		flat = append(flat, s.at.Sub(epoch).Seconds(), s.value.X, s.value.Y, s.value.Z, s.value.W)
	}
	return &orientationJSON{
		InterpolationAlgorithm: string(op.interpolation),
		Epoch:                  timeline.FormatTime(epoch),
		UnitQuaternion:         flat,
	}
}

func colorOf(c model.RGBA) colorJSON {
	return colorJSON{RGBA: c.Components()}
}

func solidMaterial(c model.RGBA) materialJSON {
	return materialJSON{SolidColor: solidColorJSON{Color: colorOf(c)}}
}
