// Package locations resolves per-cast deployment metadata (start time,
// latitude, longitude) from the cruise locations table. Table values outrank
// whatever the cast file header carries. Resolved entries are cached in Redis
// so repeated processing runs over a cruise skip the CSV scan.
package locations

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/redis"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

// Table is the loaded cruise locations table
type Table struct {
	rows []row
}

type row struct {
	filename string
	loc      types.CastLocation
}

// Load reads a locations CSV. The header row names the columns; filename is
// matched exactly, the latitude/longitude/time columns by substring since
// cruises label them inconsistently.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open locations file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read locations file: %w", err)
	}
	if len(records) < 2 {
		return &Table{}, nil
	}

	fileCol, latCol, lonCol, timeCol := -1, -1, -1, -1
	for i, name := range records[0] {
		lower := strings.ToLower(name)
		switch {
		case lower == "filename":
			fileCol = i
		case strings.Contains(lower, "latitude"):
			latCol = i
		case strings.Contains(lower, "longitude"):
			lonCol = i
		case strings.Contains(lower, "(utc)"):
			timeCol = i
		}
	}
	if fileCol < 0 {
		return nil, fmt.Errorf("locations file has no filename column")
	}

	t := &Table{}
	for _, rec := range records[1:] {
		if fileCol >= len(rec) {
			continue
		}
		var loc types.CastLocation
		if latCol >= 0 && latCol < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[latCol]), 64); err == nil {
				loc.Latitude = &v
			}
		}
		if lonCol >= 0 && lonCol < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[lonCol]), 64); err == nil {
				loc.Longitude = &v
			}
		}
		if timeCol >= 0 && timeCol < len(rec) {
			if ts, err := time.Parse("01/02/2006 15:04:05", strings.TrimSpace(rec[timeCol])); err == nil {
				loc.StartTime = ts
			}
		}
		t.rows = append(t.rows, row{filename: strings.ToLower(rec[fileCol]), loc: loc})
	}
	return t, nil
}

// Lookup returns the first row whose filename contains name, case
// insensitive, or nil when no row matches.
func (t *Table) Lookup(name string) *types.CastLocation {
	if t == nil {
		return nil
	}
	name = strings.ToLower(name)
	for i := range t.rows {
		if strings.Contains(t.rows[i].filename, name) {
			loc := t.rows[i].loc
			return &loc
		}
	}
	return nil
}

// Resolver combines the locations table with an optional Redis cache. A nil
// cache degrades to plain table lookups.
type Resolver struct {
	table *Table
	cache *redis.Client
}

// NewResolver creates a resolver over a loaded table
func NewResolver(table *Table, cache *redis.Client) *Resolver {
	return &Resolver{table: table, cache: cache}
}

// Resolve finds the deployment record for a cast file
func (r *Resolver) Resolve(ctx context.Context, castFile string) *types.CastLocation {
	if r == nil {
		return nil
	}
	if r.cache != nil {
		loc, err := r.cache.GetCastLocation(ctx, castFile)
		if err != nil {
			log.Printf("Failed to read cached location for %s: %v", castFile, err)
		} else if loc != nil {
			return loc
		}
	}

	loc := r.table.Lookup(castFile)
	if loc != nil && r.cache != nil {
		if err := r.cache.StoreCastLocation(ctx, castFile, loc); err != nil {
			log.Printf("Failed to cache location for %s: %v", castFile, err)
		}
	}
	return loc
}
