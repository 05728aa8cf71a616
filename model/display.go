package model

// RGBA is a display colour with 0–255 components.
type RGBA struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// Components returns the colour as the flat integer array the renderer
// expects.
func (c RGBA) Components() []int {
	return []int{int(c.R), int(c.G), int(c.B), int(c.A)}
}

// DisplayOptions enumerates every recognised static display property of an
// entity. Each pointer field that is nil means "omit the property" so the
// renderer falls back to its own default. Unknown options cannot exist by
// construction, which keeps typos out of the output.
type DisplayOptions struct {
	Point     *PointOptions
	Label     *LabelOptions
	Billboard *BillboardOptions
	Path      *PathOptions
}

// PointOptions renders the entity as a coloured dot.
type PointOptions struct {
	PixelSize float64
	Color     RGBA
}

// LabelOptions attaches a text label to the entity.
type LabelOptions struct {
	Text      string
	FillColor *RGBA // nil leaves the renderer default
}

// BillboardOptions renders the entity as an image. Image is a URI
// reference; the renderer resolves it.
type BillboardOptions struct {
	Image string
	Scale float64 // <= 0 means "omit", renderer default applies
}

// PathOptions draws the trail of a moving entity. Lead and trail times are
// in seconds of simulation time around the current clock position.
type PathOptions struct {
	LeadTime   float64
	TrailTime  float64
	Resolution float64
	Color      RGBA
}
