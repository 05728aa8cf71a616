package track

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/signalsfoundry/czml-forge/model"
)

// ReadCSV parses a headerless track file with one sample per row in the
// form "timestamp,x,y,z", the timestamp being seconds since the Unix
// epoch. Extra columns are ignored. The coordinate convention of the
// columns is whatever frame the caller later passes to the builder.
func ReadCSV(r io.Reader) ([]model.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row width checked below

	var samples []model.Sample
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			return samples, nil
		}
		if err != nil {
			return nil, fmt.Errorf("track: csv row %d: %w", row, err)
		}
		if len(record) < 4 {
			return nil, fmt.Errorf("track: csv row %d has %d columns, want at least 4", row, len(record))
		}

		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("track: csv row %d column %d: %w", row, i+1, err)
			}
			vals[i] = v
		}

		samples = append(samples, model.Sample{
			Time:     unixTime(vals[0]),
			Position: model.Cartesian3{X: vals[1], Y: vals[2], Z: vals[3]},
		})
	}
}

func unixTime(seconds float64) time.Time {
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
