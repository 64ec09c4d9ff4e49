package detection

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIngest_StopSign(t *testing.T) {
	index := MapIndex{3: "stop_sign"}
	raws := []Raw{{ClassID: 3, Confidence: 0.87, Box: &Bounds{X1: 10, Y1: 20, X2: 60, Y2: 70}}}

	records, err := Ingest(raws, index, 0.25)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	want := []Record{{Label: "stop_sign", Confidence: 0.87, Box: &Bounds{X1: 10, Y1: 20, X2: 60, Y2: 70}}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestIngest_BelowThreshold(t *testing.T) {
	index := MapIndex{3: "stop_sign"}

	records, err := Ingest([]Raw{{ClassID: 3, Confidence: 0.10}}, index, 0.25)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if records == nil {
		t.Fatal("Ingest returned nil slice, want empty")
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestIngest_ThresholdIsInclusive(t *testing.T) {
	records, err := Ingest([]Raw{{ClassID: 0, Confidence: 0.25}}, SliceIndex{"Stop"}, 0.25)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("confidence equal to threshold should be kept, got %d records", len(records))
	}
}

func TestIngest_PreservesOrder(t *testing.T) {
	index := TrafficSigns
	raws := []Raw{
		{ClassID: 14, Confidence: 0.40},
		{ClassID: 1, Confidence: 0.90},
		{ClassID: 12, Confidence: 0.05},
		{ClassID: 0, Confidence: 0.60},
	}

	records, err := Ingest(raws, index, 0.25)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	got := make([]string, len(records))
	for i, r := range records {
		got[i] = r.Label
	}
	want := []string{"Stop", "Red Light", "Green Light"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestIngest_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		raws      []Raw
		threshold float64
	}{
		{"unknown class", []Raw{{ClassID: 99, Confidence: 0.9}}, 0.25},
		{"negative class", []Raw{{ClassID: -1, Confidence: 0.9}}, 0.25},
		{"confidence above one", []Raw{{ClassID: 0, Confidence: 1.2}}, 0.25},
		{"negative confidence", []Raw{{ClassID: 0, Confidence: -0.1}}, 0.25},
		{"NaN confidence", []Raw{{ClassID: 0, Confidence: math.NaN()}}, 0.25},
		{"unknown class below threshold", []Raw{{ClassID: 99, Confidence: 0.01}}, 0.25},
		{"threshold above one", []Raw{{ClassID: 0, Confidence: 0.5}}, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Ingest(tt.raws, TrafficSigns, tt.threshold)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("error: got %v, want ErrInvalidInput", err)
			}
			if records != nil {
				t.Errorf("records should be nil on error, got %v", records)
			}
		})
	}
}

func TestIngest_NilIndex(t *testing.T) {
	if _, err := Ingest(nil, nil, 0.25); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil index: got %v, want ErrInvalidInput", err)
	}
}

func TestIngest_DoesNotAliasBoxes(t *testing.T) {
	raws := []Raw{{ClassID: 0, Confidence: 0.9, Box: &Bounds{X1: 1, Y1: 1, X2: 5, Y2: 5}}}

	records, err := Ingest(raws, TrafficSigns, 0.25)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	raws[0].Box.X1 = 100

	if records[0].Box.X1 != 1 {
		t.Errorf("record box changed through raw detection: X1=%d", records[0].Box.X1)
	}
}

// Every raw hit with confidence below the threshold must be excluded and every
// other hit kept, for arbitrary (confidence, threshold) pairs.
func TestIngest_ThresholdProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))

	for i := 0; i < 2000; i++ {
		threshold := rng.Float64()
		n := rng.IntN(8)
		raws := make([]Raw, n)
		kept := 0
		for j := range raws {
			c := rng.Float64()
			raws[j] = Raw{ClassID: rng.IntN(len(TrafficSigns)), Confidence: c}
			if c >= threshold {
				kept++
			}
		}

		records, err := Ingest(raws, TrafficSigns, threshold)
		if err != nil {
			t.Fatalf("iteration %d: Ingest failed: %v", i, err)
		}
		if len(records) != kept {
			t.Fatalf("iteration %d: got %d records, want %d", i, len(records), kept)
		}
		for _, r := range records {
			if r.Confidence < threshold {
				t.Fatalf("iteration %d: record %+v below threshold %v", i, r, threshold)
			}
		}
	}
}

func TestRecord_WithText(t *testing.T) {
	orig := Record{Label: "Speed Limit 80", Confidence: 0.7, Box: &Bounds{X2: 10, Y2: 10}}

	withText := orig.WithText("80")

	if orig.Text != "" {
		t.Errorf("original record modified: Text=%q", orig.Text)
	}
	if withText.Text != "80" {
		t.Errorf("Text: got %q, want 80", withText.Text)
	}
	if withText.Box == orig.Box {
		t.Error("WithText should not share the Box pointer")
	}
}

func TestMapIndex_LabelsOrdered(t *testing.T) {
	index := MapIndex{7: "b", 2: "a", 11: "c"}
	if diff := cmp.Diff([]string{"a", "b", "c"}, index.Labels()); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}
