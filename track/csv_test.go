package track

import (
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/czml-forge/model"
)

func TestReadCSV(t *testing.T) {
	in := "1676502926,10000000,10000000,10000000\n" +
		"1676502986,10100000,10000000,9900000\n"

	samples, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}

	want := time.Date(2023, 2, 15, 22, 35, 26, 0, time.UTC)
	if !samples[0].Time.Equal(want) {
		t.Fatalf("sample 0 time = %s, want %s", samples[0].Time, want)
	}
	if samples[0].Position != (model.Cartesian3{X: 1e7, Y: 1e7, Z: 1e7}) {
		t.Fatalf("sample 0 position = %+v", samples[0].Position)
	}
	if got := samples[1].Time.Sub(samples[0].Time); got != time.Minute {
		t.Fatalf("sample spacing = %s, want 1m", got)
	}
}

func TestReadCSV_ExtraColumnsIgnored(t *testing.T) {
	samples, err := ReadCSV(strings.NewReader("1676502926,1,2,3,extra\n"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(samples) != 1 || samples[0].Position != (model.Cartesian3{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("samples = %+v", samples)
	}
}

func TestReadCSV_Malformed(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"too few columns", "1676502926,1,2\n"},
		{"non-numeric timestamp", "yesterday,1,2,3\n"},
		{"non-numeric coordinate", "1676502926,1,up,3\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tc.in)); err == nil {
				t.Fatalf("ReadCSV(%q) succeeded, want error", tc.in)
			}
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	samples, err := ReadCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("len(samples) = %d, want 0", len(samples))
	}
}
