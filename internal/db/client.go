package db

import (
	"database/sql"
	"math"
	"time"

	"github.com/lib/pq"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// CreateCast records a processed cast and its decode counters
func (c *Client) CreateCast(cast *types.Cast, scansDecoded, scansSkipped int) error {
	query := `
		INSERT INTO casts (
			id, source_file, model, start_time, sampling_frequency,
			scans_decoded, scans_skipped, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := c.db.Exec(query,
		cast.ID, cast.SourceFile, cast.Model.String(), cast.StartTime,
		cast.SamplingFrequency, scansDecoded, scansSkipped, time.Now(),
	)
	return err
}

// GetCastID finds the recorded cast id for a source file base name, empty
// when the cast was never recorded
func (c *Client) GetCastID(baseName string) (string, error) {
	var id string
	err := c.db.QueryRow(
		`SELECT id FROM casts WHERE split_part(source_file, '.', 1) = $1
		 ORDER BY processed_at DESC LIMIT 1`,
		baseName,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// StoreSamples stores the converted sample rows of a cast
func (c *Client) StoreSamples(cast *types.Cast) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO samples (
			time, cast_id, scan, depth, pressure, temperature, salinity,
			conductivity, oxygen, fluorescence, turbidity,
			latitude, longitude, is_downcast
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	scan := cast.Column(types.ColScan)
	down := cast.Column(types.ColIsDowncast)
	for i := 0; i < cast.Len(); i++ {
		downcast := down != nil && down[i] == 1
		var scanIdx interface{}
		if scan != nil {
			scanIdx = int(scan[i])
		}
		_, err := stmt.Exec(
			cast.RowTime(i), cast.ID, scanIdx,
			nullable(cast, types.ColDepth, i),
			nullable(cast, types.ColPressure, i),
			nullable(cast, types.ColTemperature, i),
			nullable(cast, types.ColSalinity, i),
			nullable(cast, types.ColConductivity, i),
			nullable(cast, types.ColOxygen, i),
			nullable(cast, types.ColFluorescence, i),
			nullable(cast, types.ColTurbidity, i),
			nullable(cast, types.ColLatitude, i),
			nullable(cast, types.ColLongitude, i),
			downcast,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// StoreDepthBins stores the binned output of a cast
func (c *Client) StoreDepthBins(castID string, bins []types.DepthBin) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO depth_bins (
			cast_id, bin_label, is_downcast, scans_per_bin,
			depth, pressure, temperature, salinity, conductivity,
			density, sigma_theta, bin_date, bin_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, bin := range bins {
		_, err := stmt.Exec(
			castID, bin.Label, bin.Downcast, bin.ScanCount,
			binValue(bin.Values, types.ColDepth),
			binValue(bin.Values, types.ColPressure),
			binValue(bin.Values, types.ColTemperature),
			binValue(bin.Values, types.ColSalinity),
			binValue(bin.Values, types.ColConductivity),
			binValue(bin.Values, types.ColDensity),
			binValue(bin.Values, types.ColSigmaTheta),
			bin.Date, bin.Time,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// StoreRunStats stores pipeline run statistics
func (c *Client) StoreRunStats(stats map[string]interface{}) error {
	query := `
		INSERT INTO run_stats (
			time, casts_processed, casts_failed, scans_decoded, scans_skipped,
			model_counts, processing_time_ms, uptime_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	modelCounts := stats["model_counts"].([5]uint64)
	countsArray := make([]int64, len(modelCounts))
	for i, v := range modelCounts {
		countsArray[i] = int64(v)
	}

	processingTime := stats["processing_time"].(time.Duration).Milliseconds()
	uptime := time.Since(stats["started_at"].(time.Time)).Seconds()

	_, err := c.db.Exec(query,
		time.Now(),
		stats["casts_processed"],
		stats["casts_failed"],
		stats["scans_decoded"],
		stats["scans_skipped"],
		pq.Array(countsArray),
		processingTime,
		int64(uptime),
	)
	return err
}

// GetRunStats retrieves run statistics for a time range
func (c *Client) GetRunStats(start, end time.Time) ([]map[string]interface{}, error) {
	query := `
		SELECT
			time, casts_processed, casts_failed, scans_decoded, scans_skipped,
			model_counts, processing_time_ms, uptime_seconds
		FROM run_stats
		WHERE time BETWEEN $1 AND $2
		ORDER BY time DESC
	`

	rows, err := c.db.Query(query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []map[string]interface{}
	for rows.Next() {
		var (
			timestamp        time.Time
			castsProcessed   int64
			castsFailed      int64
			scansDecoded     int64
			scansSkipped     int64
			modelCounts      []int64
			processingTimeMs int64
			uptimeSeconds    int64
		)

		if err := rows.Scan(
			&timestamp,
			&castsProcessed,
			&castsFailed,
			&scansDecoded,
			&scansSkipped,
			pq.Array(&modelCounts),
			&processingTimeMs,
			&uptimeSeconds,
		); err != nil {
			return nil, err
		}

		counts := [5]uint64{}
		for i, v := range modelCounts {
			if i < len(counts) {
				counts[i] = uint64(v)
			}
		}

		stats = append(stats, map[string]interface{}{
			"time":            timestamp,
			"casts_processed": castsProcessed,
			"casts_failed":    castsFailed,
			"scans_decoded":   scansDecoded,
			"scans_skipped":   scansSkipped,
			"model_counts":    counts,
			"processing_time": time.Duration(processingTimeMs) * time.Millisecond,
			"uptime_seconds":  uptimeSeconds,
		})
	}

	return stats, rows.Err()
}

// nullable maps a cast cell to a SQL value, NULL for missing columns or NaN
func nullable(c *types.Cast, col string, i int) interface{} {
	values := c.Column(col)
	if values == nil {
		return nil
	}
	return nullableValue(values[i])
}

// binValue maps an averaged bin column to a SQL value, NULL when absent
func binValue(values map[string]float64, col string) interface{} {
	v, ok := values[col]
	if !ok {
		return nil
	}
	return nullableValue(v)
}

func nullableValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
