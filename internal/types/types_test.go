package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestModel_String(t *testing.T) {
	tests := []struct {
		model Model
		want  string
	}{
		{ModelCTD9, "SBE9plus"},
		{ModelCTD19plusV2, "SBE19plusV2"},
		{ModelCTD39, "SBE39"},
		{ModelUnderway, "UCTD"},
		{ModelUnknown, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.model.String(); got != tt.want {
			t.Errorf("Model(%d).String() mismatch: got %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestModel_SamplingFrequency(t *testing.T) {
	tests := []struct {
		model Model
		want  float64
	}{
		{ModelCTD9, 24},
		{ModelCTD19plusV2, 4},
		{ModelCTD39, 1},
		{ModelUnderway, 16},
		{ModelUnknown, 0},
	}

	for _, tt := range tests {
		if got := tt.model.SamplingFrequency(); got != tt.want {
			t.Errorf("Model(%d).SamplingFrequency() mismatch: got %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestCast_Append(t *testing.T) {
	start := time.Date(2019, 3, 7, 20, 14, 0, 0, time.UTC)
	cast := NewCast(ModelCTD9, CTDHeader, start)

	temp := 12.3456
	pres := 100.5
	cast.Append(&EngineeringSample{
		Scan:        1,
		Temperature: &temp,
		Pressure:    &pres,
	})

	if cast.Len() != 1 {
		t.Fatalf("Len mismatch: got %v, want %v", cast.Len(), 1)
	}
	if got := cast.Column(ColScan)[0]; got != 1 {
		t.Errorf("Scan mismatch: got %v, want %v", got, 1)
	}
	if got := cast.Column(ColTemperature)[0]; got != temp {
		t.Errorf("Temperature mismatch: got %v, want %v", got, temp)
	}
	if got := cast.Column(ColPressure)[0]; got != pres {
		t.Errorf("Pressure mismatch: got %v, want %v", got, pres)
	}

	// quantities without a value come through as NaN
	if got := cast.Column(ColSalinity)[0]; !math.IsNaN(got) {
		t.Errorf("Salinity mismatch: got %v, want NaN", got)
	}
	if got := cast.Column(ColOxygen)[0]; !math.IsNaN(got) {
		t.Errorf("Oxygen mismatch: got %v, want NaN", got)
	}
}

func TestCast_RowTime(t *testing.T) {
	start := time.Date(2019, 3, 7, 20, 14, 0, 0, time.UTC)
	cast := NewCast(ModelCTD9, CTDHeader, start)

	if got := cast.RowTime(0); !got.Equal(start) {
		t.Errorf("RowTime(0) mismatch: got %v, want %v", got, start)
	}

	// 24 scans at 24 Hz is exactly one second
	want := start.Add(time.Second)
	if got := cast.RowTime(24); !got.Equal(want) {
		t.Errorf("RowTime(24) mismatch: got %v, want %v", got, want)
	}
}

func TestCast_SetColumn_AppendsHeader(t *testing.T) {
	cast := NewCast(ModelCTD9, []string{ColScan, ColDepth}, time.Now())
	cast.SetColumn(ColDepth, []float64{1, 2, 3})

	if cast.Len() != 3 {
		t.Errorf("Len mismatch: got %v, want %v", cast.Len(), 3)
	}

	cast.SetColumn(ColDensity, []float64{1025, 1025, 1025})
	if !cast.HasColumn(ColDensity) {
		t.Error("Expected density column to exist after SetColumn")
	}
	last := cast.Header[len(cast.Header)-1]
	if last != ColDensity {
		t.Errorf("Header tail mismatch: got %v, want %v", last, ColDensity)
	}

	// setting an existing column must not duplicate its header entry
	cast.SetColumn(ColDensity, []float64{1026, 1026, 1026})
	count := 0
	for _, h := range cast.Header {
		if h == ColDensity {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Header entry count mismatch: got %v, want %v", count, 1)
	}
}

func TestCast_DropColumn(t *testing.T) {
	cast := NewCast(ModelCTD9, []string{ColScan, ColDepth}, time.Now())
	cast.SetColumn(ColScan, []float64{1, 2})
	cast.SetColumn(ColDepth, []float64{0, 1})
	cast.EnsureInvalid(ColDepth)

	cast.DropColumn(ColDepth)

	if cast.HasColumn(ColDepth) {
		t.Error("Expected depth column to be removed")
	}
	if cast.Invalid(ColDepth) != nil {
		t.Error("Expected depth flags to be removed")
	}
	for _, h := range cast.Header {
		if h == ColDepth {
			t.Error("Expected depth header entry to be removed")
		}
	}
}

func TestCast_InvalidFlags(t *testing.T) {
	cast := NewCast(ModelCTD9, []string{ColScan, ColTemperature, ColPressure}, time.Now())
	cast.SetColumn(ColScan, []float64{1, 2, 3})
	cast.SetColumn(ColTemperature, []float64{10, 11, 12})
	cast.SetColumn(ColPressure, []float64{1, 2, 3})

	if cast.Invalid(ColTemperature) != nil {
		t.Error("Expected no flags before EnsureInvalid")
	}

	flags := cast.EnsureInvalid(ColTemperature)
	if len(flags) != 3 {
		t.Fatalf("Flags length mismatch: got %v, want %v", len(flags), 3)
	}
	flags[1] = true

	again := cast.EnsureInvalid(ColTemperature)
	if !again[1] {
		t.Error("EnsureInvalid must return the existing flags, not reallocate")
	}

	cols := cast.InvalidColumns()
	if len(cols) != 1 || cols[0] != ColTemperature {
		t.Errorf("InvalidColumns mismatch: got %v, want [%v]", cols, ColTemperature)
	}
}

func TestCast_InvalidColumns_HeaderOrder(t *testing.T) {
	cast := NewCast(ModelCTD9, []string{ColScan, ColTemperature, ColConductivity, ColPressure}, time.Now())
	cast.SetColumn(ColScan, []float64{1})

	// flag in reverse order, listing must follow the header
	cast.EnsureInvalid(ColPressure)
	cast.EnsureInvalid(ColTemperature)

	cols := cast.InvalidColumns()
	want := []string{ColTemperature, ColPressure}
	if len(cols) != len(want) {
		t.Fatalf("InvalidColumns length mismatch: got %v, want %v", len(cols), len(want))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("InvalidColumns[%d] mismatch: got %v, want %v", i, cols[i], want[i])
		}
	}
}

func TestCastEvent_JSON(t *testing.T) {
	event := &CastEvent{
		CastID:     "b2f0a9c4-1111-2222-3333-444455556666",
		SourceFile: "oc1903a_001.hex",
		Model:      "SBE9plus",
		Path:       "/data/converted/oc1903a_001.csv",
		Scans:      4821,
		Bins:       187,
		Timestamp:  time.Date(2019, 3, 7, 21, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var decoded CastEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	if decoded.CastID != event.CastID {
		t.Errorf("CastID mismatch: got %v, want %v", decoded.CastID, event.CastID)
	}
	if decoded.SourceFile != event.SourceFile {
		t.Errorf("SourceFile mismatch: got %v, want %v", decoded.SourceFile, event.SourceFile)
	}
	if decoded.Model != event.Model {
		t.Errorf("Model mismatch: got %v, want %v", decoded.Model, event.Model)
	}
	if decoded.Scans != event.Scans {
		t.Errorf("Scans mismatch: got %v, want %v", decoded.Scans, event.Scans)
	}
	if decoded.Bins != event.Bins {
		t.Errorf("Bins mismatch: got %v, want %v", decoded.Bins, event.Bins)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp mismatch: got %v, want %v", decoded.Timestamp, event.Timestamp)
	}
}

func TestCastLocation_JSON(t *testing.T) {
	lat := 44.64
	lon := -124.52
	loc := &CastLocation{
		StartTime: time.Date(2019, 3, 7, 20, 14, 0, 0, time.UTC),
		Latitude:  &lat,
		Longitude: &lon,
	}

	data, err := json.Marshal(loc)
	if err != nil {
		t.Fatalf("Failed to marshal location: %v", err)
	}

	var decoded CastLocation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal location: %v", err)
	}

	if !decoded.StartTime.Equal(loc.StartTime) {
		t.Errorf("StartTime mismatch: got %v, want %v", decoded.StartTime, loc.StartTime)
	}
	if decoded.Latitude == nil || *decoded.Latitude != lat {
		t.Errorf("Latitude mismatch: got %v, want %v", decoded.Latitude, lat)
	}
	if decoded.Longitude == nil || *decoded.Longitude != lon {
		t.Errorf("Longitude mismatch: got %v, want %v", decoded.Longitude, lon)
	}
}
