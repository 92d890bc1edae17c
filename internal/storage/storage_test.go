package storage

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/binning"
	"github.com/oceandata/ctd-pipeline/internal/testutils"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	dir := t.TempDir()
	return New(
		filepath.Join(dir, "converted"),
		filepath.Join(dir, "corrected"),
		filepath.Join(dir, "binned"),
	)
}

func TestWriteConverted_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	c := testutils.VShapeCast(10)

	path, err := s.WriteConverted(c)
	if err != nil {
		t.Fatalf("WriteConverted() failed: %v", err)
	}
	if filepath.Base(path) != "synthetic.csv" {
		t.Errorf("output name mismatch: got %v, want synthetic.csv", filepath.Base(path))
	}

	got, err := ReadCast(path)
	if err != nil {
		t.Fatalf("ReadCast() failed: %v", err)
	}

	if got.Model != types.ModelCTD9 {
		t.Errorf("model mismatch: got %v, want %v", got.Model, types.ModelCTD9)
	}
	if !got.StartTime.Equal(c.StartTime) {
		t.Errorf("start time mismatch: got %v, want %v", got.StartTime, c.StartTime)
	}
	if got.Len() != c.Len() {
		t.Fatalf("row count mismatch: got %v, want %v", got.Len(), c.Len())
	}

	for _, col := range []string{types.ColDepth, types.ColPressure, types.ColTemperature, types.ColSalinity} {
		want := c.Column(col)
		have := got.Column(col)
		if have == nil {
			t.Fatalf("column %s missing after round trip", col)
		}
		for i := range want {
			if have[i] != want[i] {
				t.Errorf("%s[%d] mismatch: got %v, want %v", col, i, have[i], want[i])
			}
		}
	}
}

func TestWriteConverted_NaNRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	c := testutils.VShapeCast(5)
	c.Column(types.ColTemperature)[2] = math.NaN()

	path, err := s.WriteConverted(c)
	if err != nil {
		t.Fatalf("WriteConverted() failed: %v", err)
	}
	got, err := ReadCast(path)
	if err != nil {
		t.Fatalf("ReadCast() failed: %v", err)
	}
	temp := got.Column(types.ColTemperature)
	if !math.IsNaN(temp[2]) {
		t.Errorf("missing value not preserved: got %v, want NaN", temp[2])
	}
	if temp[1] != 12.5 {
		t.Errorf("neighbor value corrupted: got %v, want 12.5", temp[1])
	}
}

func TestWriteCorrected_FlagsRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	c := testutils.VShapeCast(5)
	c.EnsureInvalid(types.ColTemperature)[3] = true
	c.EnsureInvalid(types.ColPressure)[7] = true

	path, err := s.WriteCorrected(c)
	if err != nil {
		t.Fatalf("WriteCorrected() failed: %v", err)
	}

	got, err := ReadCast(path)
	if err != nil {
		t.Fatalf("ReadCast() failed: %v", err)
	}

	tempFlags := got.Invalid(types.ColTemperature)
	if tempFlags == nil {
		t.Fatal("temperature flags missing after round trip")
	}
	for i, bad := range tempFlags {
		if bad != (i == 3) {
			t.Errorf("temperature flag %d mismatch: got %v", i, bad)
		}
	}
	presFlags := got.Invalid(types.ColPressure)
	if presFlags == nil || !presFlags[7] {
		t.Error("pressure flag not preserved")
	}

	// flag columns must not leak into the data header
	for _, col := range got.Header {
		if col == types.ColTemperature+invalidSuffix {
			t.Errorf("flag column %q leaked into the header", col)
		}
	}
}

func TestWriteBinned(t *testing.T) {
	s := newTestStorage(t)
	c := testutils.VShapeCast(10)

	bins, err := binning.BinDepths(c, 1, true)
	if err != nil {
		t.Fatalf("BinDepths() failed: %v", err)
	}

	path, err := s.WriteBinned(c, bins, 1)
	if err != nil {
		t.Fatalf("WriteBinned() failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open binned file: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read binned file: %v", err)
	}

	if len(records) != len(bins)+1 {
		t.Fatalf("row count mismatch: got %v, want %v", len(records), len(bins)+1)
	}
	if records[0][0] != binning.LabelColumn(1) {
		t.Errorf("header mismatch: got %v, want %v", records[0][0], binning.LabelColumn(1))
	}

	// last column is the per-bin scan count
	last := len(records[0]) - 1
	if records[0][last] != types.ColScansPerBin {
		t.Errorf("trailing column mismatch: got %v, want %v", records[0][last], types.ColScansPerBin)
	}
	for i, bin := range bins {
		rec := records[i+1]
		if rec[0] != strconv.FormatFloat(bin.Label, 'f', -1, 64) {
			t.Errorf("row %d label mismatch: got %v, want %v", i, rec[0], bin.Label)
		}
		if rec[last] != strconv.Itoa(bin.ScanCount) {
			t.Errorf("row %d scan count mismatch: got %v, want %v", i, rec[last], bin.ScanCount)
		}
	}
}

func TestReadCast_SamplingFrequencyInference(t *testing.T) {
	tests := []struct {
		name  string
		step  time.Duration
		model types.Model
	}{
		{"ctd9", time.Second / 24, types.ModelCTD9},
		{"underway", time.Second / 16, types.ModelUnderway},
		{"ctd19plus", time.Second / 4, types.ModelCTD19plusV2},
		{"ctd39", time.Second, types.ModelCTD39},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cast.csv")
			start := time.Date(2019, 3, 7, 20, 14, 0, 0, time.UTC)
			writeMinimalCSV(t, path, start, tt.step)

			got, err := ReadCast(path)
			if err != nil {
				t.Fatalf("ReadCast() failed: %v", err)
			}
			if got.Model != tt.model {
				t.Errorf("model mismatch: got %v, want %v", got.Model, tt.model)
			}
		})
	}
}

func writeMinimalCSV(t *testing.T, path string, start time.Time, step time.Duration) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{types.ColDate, types.ColTime, types.ColPressure})
	for i := 0; i < 3; i++ {
		ts := start.Add(time.Duration(i) * step)
		w.Write([]string{ts.Format(dateFormat), ts.Format(timeFormat), "10.5"})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func TestReadCast_Errors(t *testing.T) {
	if _, err := ReadCast(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("ReadCast() should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("Date,Time,Pressure [db]\n"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if _, err := ReadCast(path); err == nil {
		t.Error("ReadCast() should fail with no data rows")
	}
}

func TestCsvName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cast01.hex", "cast01.csv"},
		{"/data/raw/cast01.hex", "cast01.csv"},
		{"uctd_007.asc", "uctd_007.csv"},
		{"noext", "noext.csv"},
	}
	for _, tt := range tests {
		if got := csvName(tt.in); got != tt.want {
			t.Errorf("csvName(%q) mismatch: got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	if got := formatValue(math.NaN()); got != "" {
		t.Errorf("formatValue(NaN) mismatch: got %q, want empty", got)
	}
	if got := formatValue(3.25); got != "3.25" {
		t.Errorf("formatValue(3.25) mismatch: got %v", got)
	}
}
