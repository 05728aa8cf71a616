// Package czml builds time-dynamic scene documents for a 3D globe
// renderer. The entity builder turns raw time-series samples into
// self-contained packets; the assembler merges packets with a generated
// header into one internally consistent document and serialises it to the
// renderer's JSON wire form.
package czml

import (
	"time"

	"github.com/signalsfoundry/czml-forge/model"
	"github.com/signalsfoundry/czml-forge/timeline"
)

// HeaderID is the reserved identifier of the document header packet. No
// entity packet may use it.
const HeaderID = "document"

// Version is the document format version declared by the header.
const Version = "1.0"

// Interpolation is the hint a renderer uses to compute values between
// explicit samples.
type Interpolation string

const (
	// InterpolationLinear interpolates linearly between samples.
	InterpolationLinear Interpolation = "LINEAR"
	// InterpolationNone holds the last sampled value. It is expressed on
	// the wire by omitting the interpolation hint.
	InterpolationNone Interpolation = ""
)

// Packet is one immutable record of a document: identity, validity
// interval, time-tagged position/orientation data, and static display
// properties. Packets are constructed by the Build* functions and never
// mutated afterwards, so they are safe to share across goroutines.
type Packet struct {
	id           string
	name         string
	availability timeline.Interval

	position    *positionProperty
	orientation *orientationProperty
	display     model.DisplayOptions

	polyline  *polylineProperty
	polygon   *polygonProperty
	ellipsoid *ellipsoidProperty
}

type positionSample struct {
	at    time.Time
	value model.Cartesian3
}

type orientationSample struct {
	at    time.Time
	value model.Quaternion
}

type positionProperty struct {
	frame          model.Frame
	referenceFrame string // renderer frame hint, e.g. "INERTIAL"; empty omits
	interpolation  Interpolation
	static         *model.Cartesian3
	samples        []positionSample
}

type orientationProperty struct {
	interpolation Interpolation
	samples       []orientationSample
}

// polylineProperty draws a line between the position properties of other
// entities, referenced by id.
type polylineProperty struct {
	endpointIDs []string
	color       model.RGBA
}

// polygonProperty spans a filled polygon over the position properties of
// other entities, referenced by id.
type polygonProperty struct {
	vertexIDs         []string
	fillColor         model.RGBA
	outlineColor      model.RGBA
	outline           bool
	perPositionHeight bool
}

// ellipsoidProperty surrounds a static position with a shaded ellipsoid.
type ellipsoidProperty struct {
	radii model.Cartesian3
	color model.RGBA
}

// ID returns the packet identifier.
func (p Packet) ID() string { return p.id }

// Name returns the optional human-readable name, or "".
func (p Packet) Name() string { return p.name }

// Availability returns the packet's validity interval. The zero interval
// means the packet is not time-bounded (static or reference geometry).
func (p Packet) Availability() timeline.Interval { return p.availability }

// HasPosition reports whether the packet carries a position property.
func (p Packet) HasPosition() bool { return p.position != nil }

// PositionSampleCount returns the number of time-tagged position samples.
// A static position counts as zero.
func (p Packet) PositionSampleCount() int {
	if p.position == nil {
		return 0
	}
	return len(p.position.samples)
}

// OrientationSampleCount returns the number of orientation samples.
func (p Packet) OrientationSampleCount() int {
	if p.orientation == nil {
		return 0
	}
	return len(p.orientation.samples)
}

// PositionInterpolation returns the interpolation hint of the position
// property, or InterpolationNone when the packet has no sampled position.
func (p Packet) PositionInterpolation() Interpolation {
	if p.position == nil {
		return InterpolationNone
	}
	return p.position.interpolation
}

// Frame returns the reference frame of the position property, or "" when
// the packet has no position.
func (p Packet) Frame() model.Frame {
	if p.position == nil {
		return ""
	}
	return p.position.frame
}

// StaticPosition returns the fixed position of a static packet, or false
// when the packet has a sampled or no position.
func (p Packet) StaticPosition() (model.Cartesian3, bool) {
	if p.position == nil || p.position.static == nil {
		return model.Cartesian3{}, false
	}
	return *p.position.static, true
}

// Display returns the packet's static display options.
func (p Packet) Display() model.DisplayOptions { return p.display }
