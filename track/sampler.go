// Package track produces raw time-series samples for the document layer:
// SGP4 ephemeris tracks propagated from a TLE, and tracks read from CSV
// files. It is the data-source side of the pipeline; validation of the
// series happens in the czml builder.
package track

import (
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/czml-forge/model"
	"github.com/signalsfoundry/czml-forge/timeline"
)

const kmToM = 1000.0

// SampleTLE propagates a two-line element set with SGP4 at every instant
// of the window and returns the resulting position samples in the
// requested frame. go-satellite works in kilometres; cartesian output is
// converted to ECEF metres, cartographic output to longitude/latitude
// plus height in metres.
func SampleTLE(line1, line2 string, w timeline.Window, frame model.Frame) ([]model.Sample, error) {
	if err := checkTLELine(1, line1); err != nil {
		return nil, err
	}
	if err := checkTLELine(2, line2); err != nil {
		return nil, err
	}
	if !frame.Valid() {
		return nil, fmt.Errorf("track: unknown frame %q", frame)
	}

	times, err := w.Times()
	if err != nil {
		return nil, fmt.Errorf("track: %w", err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	samples := make([]model.Sample, 0, len(times))
	for _, t := range times {
		pos, err := propagate(sat, t, frame)
		if err != nil {
			return nil, err
		}
		samples = append(samples, model.Sample{Time: t, Position: pos})
	}
	return samples, nil
}

func propagate(sat satellite.Satellite, t time.Time, frame model.Frame) (model.Cartesian3, error) {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	if posECI.X == 0 && posECI.Y == 0 && posECI.Z == 0 {
		return model.Cartesian3{}, fmt.Errorf("track: propagation produced no position at %s", timeline.FormatTime(t))
	}
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)

	switch frame {
	case model.FrameCartesian:
		posECEF := satellite.ECIToECEF(posECI, gmst)
		return model.Cartesian3{
			X: posECEF.X * kmToM,
			Y: posECEF.Y * kmToM,
			Z: posECEF.Z * kmToM,
		}, nil
	case model.FrameCartographicDegrees:
		alt, _, ll := satellite.ECIToLLA(posECI, gmst)
		deg := satellite.LatLongDeg(ll)
		return model.Cartesian3{X: deg.Longitude, Y: deg.Latitude, Z: alt * kmToM}, nil
	default: // FrameCartographicRadians
		alt, _, ll := satellite.ECIToLLA(posECI, gmst)
		return model.Cartesian3{X: ll.Longitude, Y: ll.Latitude, Z: alt * kmToM}, nil
	}
}

func checkTLELine(n int, line string) error {
	line = strings.TrimSpace(line)
	if len(line) < 69 || !strings.HasPrefix(line, fmt.Sprintf("%d ", n)) {
		return fmt.Errorf("track: malformed TLE line %d: %q", n, line)
	}
	return nil
}
