package migrations

var RetentionPolicies = &Migration{
	ID:   "002_retention_policies",
	Name: "002_retention_policies",
	UpSQL: `
	-- Set retention policy for samples (2 years, one survey cycle)
	SELECT add_retention_policy('samples', INTERVAL '2 years');

	-- Set retention policy for run_stats (90 days)
	SELECT add_retention_policy('run_stats', INTERVAL '90 days');

	-- Create continuous aggregate for daily run stats
	CREATE MATERIALIZED VIEW IF NOT EXISTS run_stats_daily
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 day', time) AS day,
		SUM(casts_processed) AS casts_processed,
		SUM(casts_failed) AS casts_failed,
		SUM(scans_decoded) AS scans_decoded,
		SUM(scans_skipped) AS scans_skipped
	FROM run_stats
	GROUP BY day
	WITH NO DATA;

	-- Create continuous aggregate for hourly sample counts
	CREATE MATERIALIZED VIEW IF NOT EXISTS samples_hourly
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 hour', time) AS hour,
		COUNT(*) AS sample_count
	FROM samples
	GROUP BY hour
	WITH NO DATA;
	`,
	DownSQL: `
	DROP MATERIALIZED VIEW IF EXISTS run_stats_daily;
	DROP MATERIALIZED VIEW IF EXISTS samples_hourly;
	-- Remove retention policies
	SELECT remove_retention_policy('samples');
	SELECT remove_retention_policy('run_stats');
	`,
}
