package migrations

import "time"

// InitialSchema creates the initial database schema
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		-- Enable TimescaleDB extension
		CREATE EXTENSION IF NOT EXISTS timescaledb;

		-- Create casts table
		CREATE TABLE IF NOT EXISTS casts (
			id UUID PRIMARY KEY,
			source_file TEXT NOT NULL,
			model TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			sampling_frequency DOUBLE PRECISION NOT NULL,
			scans_decoded INTEGER NOT NULL,
			scans_skipped INTEGER NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL
		);

		-- Create indexes for casts
		CREATE INDEX IF NOT EXISTS idx_casts_source_file ON casts (source_file);
		CREATE INDEX IF NOT EXISTS idx_casts_start_time ON casts (start_time);

		-- Create samples hypertable
		CREATE TABLE IF NOT EXISTS samples (
			time TIMESTAMPTZ NOT NULL,
			cast_id UUID NOT NULL,
			scan INTEGER,
			depth DOUBLE PRECISION,
			pressure DOUBLE PRECISION,
			temperature DOUBLE PRECISION,
			salinity DOUBLE PRECISION,
			conductivity DOUBLE PRECISION,
			oxygen DOUBLE PRECISION,
			fluorescence DOUBLE PRECISION,
			turbidity DOUBLE PRECISION,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			is_downcast BOOLEAN
		);

		-- Create hypertable
		SELECT create_hypertable('samples', 'time');

		-- Create index for samples
		CREATE INDEX IF NOT EXISTS idx_samples_cast_id ON samples (cast_id);

		-- Create depth bins table
		CREATE TABLE IF NOT EXISTS depth_bins (
			cast_id UUID NOT NULL,
			bin_label DOUBLE PRECISION NOT NULL,
			is_downcast BOOLEAN NOT NULL,
			scans_per_bin INTEGER NOT NULL,
			depth DOUBLE PRECISION,
			pressure DOUBLE PRECISION,
			temperature DOUBLE PRECISION,
			salinity DOUBLE PRECISION,
			conductivity DOUBLE PRECISION,
			density DOUBLE PRECISION,
			sigma_theta DOUBLE PRECISION,
			bin_date TEXT,
			bin_time TEXT
		);

		-- Create index for depth bins
		CREATE INDEX IF NOT EXISTS idx_depth_bins_cast_id ON depth_bins (cast_id);

		-- Create statistics table
		CREATE TABLE IF NOT EXISTS run_stats (
			time TIMESTAMPTZ NOT NULL,
			casts_processed BIGINT NOT NULL,
			casts_failed BIGINT NOT NULL,
			scans_decoded BIGINT NOT NULL,
			scans_skipped BIGINT NOT NULL,
			model_counts BIGINT[] NOT NULL,
			processing_time_ms BIGINT NOT NULL,
			uptime_seconds BIGINT NOT NULL
		);

		-- Create hypertable for statistics
		SELECT create_hypertable('run_stats', 'time');

		-- Create index for statistics
		CREATE INDEX IF NOT EXISTS idx_run_stats_time ON run_stats (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS run_stats;
		DROP TABLE IF EXISTS depth_bins;
		DROP TABLE IF EXISTS samples;
		DROP TABLE IF EXISTS casts;
	`,
	CreatedAt: time.Now(),
}
