package model

// Frame selects the coordinate convention of position samples, and with it
// the array key the wire encoding uses.
type Frame string

const (
	FrameCartesian           Frame = "cartesian"
	FrameCartographicDegrees Frame = "cartographicDegrees"
	FrameCartographicRadians Frame = "cartographicRadians"
)

// Valid reports whether f is one of the recognised frames.
func (f Frame) Valid() bool {
	switch f {
	case FrameCartesian, FrameCartographicDegrees, FrameCartographicRadians:
		return true
	}
	return false
}
