package locations

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLocations(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write locations file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeLocations(t, `Filename,Start Latitude,Start Longitude,Cast Start (UTC)
CAST_001.hex,44.64,-124.52,03/07/2019 20:14:02
cast_002.hex,,,
uctd_007.asc,46.12,-130.40,03/08/2019 08:00:00
`)

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	loc := table.Lookup("cast_001")
	if loc == nil {
		t.Fatal("Lookup(cast_001) returned nil")
	}
	if loc.Latitude == nil || math.Abs(*loc.Latitude-44.64) > 1e-9 {
		t.Errorf("Latitude mismatch: got %v, want 44.64", loc.Latitude)
	}
	if loc.Longitude == nil || math.Abs(*loc.Longitude-(-124.52)) > 1e-9 {
		t.Errorf("Longitude mismatch: got %v, want -124.52", loc.Longitude)
	}
	want := time.Date(2019, 3, 7, 20, 14, 2, 0, time.UTC)
	if !loc.StartTime.Equal(want) {
		t.Errorf("StartTime mismatch: got %v, want %v", loc.StartTime, want)
	}

	// empty cells leave the fields unset rather than zero
	loc = table.Lookup("cast_002")
	if loc == nil {
		t.Fatal("Lookup(cast_002) returned nil")
	}
	if loc.Latitude != nil || loc.Longitude != nil {
		t.Errorf("empty cells should stay nil: got %v / %v", loc.Latitude, loc.Longitude)
	}
	if !loc.StartTime.IsZero() {
		t.Errorf("empty time should stay zero: got %v", loc.StartTime)
	}
}

func TestLookup_CaseInsensitiveSubstring(t *testing.T) {
	path := writeLocations(t, `Filename,Latitude,Longitude
CRUISE19_CAST_001.HEX,44.64,-124.52
`)
	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if table.Lookup("Cast_001") == nil {
		t.Error("Lookup should match case insensitively")
	}
	if table.Lookup("cruise19_cast_001.hex") == nil {
		t.Error("Lookup should match the full filename")
	}
	if table.Lookup("cast_099") != nil {
		t.Error("Lookup should return nil for an unknown cast")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("Load() should fail for a missing file")
	}

	path := writeLocations(t, `Station,Latitude,Longitude
A,44.64,-124.52
`)
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail without a filename column")
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	path := writeLocations(t, "Filename,Latitude,Longitude\n")
	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if table.Lookup("anything") != nil {
		t.Error("empty table should resolve nothing")
	}
}

func TestResolver_NilCache(t *testing.T) {
	path := writeLocations(t, `Filename,Latitude,Longitude
cast_001.hex,44.64,-124.52
`)
	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	r := NewResolver(table, nil)
	loc := r.Resolve(context.Background(), "cast_001")
	if loc == nil {
		t.Fatal("Resolve() returned nil")
	}
	if loc.Latitude == nil || *loc.Latitude != 44.64 {
		t.Errorf("Latitude mismatch: got %v, want 44.64", loc.Latitude)
	}

	if r.Resolve(context.Background(), "cast_099") != nil {
		t.Error("Resolve() should return nil for an unknown cast")
	}

	var nilResolver *Resolver
	if nilResolver.Resolve(context.Background(), "cast_001") != nil {
		t.Error("nil resolver should resolve nothing")
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	path := writeLocations(t, `Filename,Latitude,Longitude
cast_001.hex,44.64,-124.52
`)
	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	first := table.Lookup("cast_001")
	first.StartTime = time.Now()
	second := table.Lookup("cast_001")
	if !second.StartTime.IsZero() {
		t.Error("Lookup result should not alias the table row")
	}
}
