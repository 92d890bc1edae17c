package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/config"
	"github.com/oceandata/ctd-pipeline/internal/convert"
	"github.com/oceandata/ctd-pipeline/internal/db"
	"github.com/oceandata/ctd-pipeline/internal/locations"
	"github.com/oceandata/ctd-pipeline/internal/nats"
	"github.com/oceandata/ctd-pipeline/internal/redis"
	"github.com/oceandata/ctd-pipeline/internal/stats"
	"github.com/oceandata/ctd-pipeline/internal/storage"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		log.Fatalf("Failed to load locations file: %v", err)
	}

	var dbClient *db.Client
	if cfg.DatabaseURL != "" {
		dbClient, err = db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer dbClient.Close()
	}

	var events *nats.Client
	if cfg.NATSURL != "" {
		events, err = nats.New(cfg.NATSURL)
		if err != nil {
			log.Printf("Warning: NATS unavailable, cast events disabled: %v", err)
		} else {
			defer events.Close()
		}
	}

	files, err := castFiles(cfg.RawDir)
	if err != nil {
		log.Fatalf("Failed to list raw casts: %v", err)
	}
	if len(files) == 0 {
		log.Printf("No cast files found in %s", cfg.RawDir)
		return
	}
	log.Printf("Converting %d cast files from %s", len(files), cfg.RawDir)

	st := stats.New()
	if dbClient != nil {
		st.SetDB(dbClient)
	}
	store := storage.New(cfg.ConvertedDir, cfg.CorrectedDir, cfg.BinnedDir)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				convertOne(path, resolver, store, dbClient, events, st)
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	if dbClient != nil {
		if err := st.Persist(); err != nil {
			log.Printf("Failed to persist stats: %v", err)
		}
	}
	s := st.GetStats()
	log.Printf("Done: %d casts converted, %d failed, %d scans decoded, %d skipped",
		s["casts_processed"], s["casts_failed"], s["scans_decoded"], s["scans_skipped"])
}

func buildResolver(cfg *config.Config) (*locations.Resolver, error) {
	if cfg.LocationsFile == "" {
		return nil, nil
	}
	table, err := locations.Load(cfg.LocationsFile)
	if err != nil {
		return nil, err
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache, err = redis.New(cfg.RedisAddr)
		if err != nil {
			log.Printf("Warning: Redis unavailable, location caching disabled: %v", err)
			cache = nil
		}
	}
	return locations.NewResolver(table, cache), nil
}

// castFiles lists the raw cast files under dir: .hex for the CTD models,
// .asc for underway and minimal-logger captures.
func castFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".hex", ".asc":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convertOne(path string, resolver *locations.Resolver, store *storage.Storage,
	dbClient *db.Client, events *nats.Client, st *stats.Stats) {

	start := time.Now()
	loc := resolver.Resolve(context.Background(), filepath.Base(path))

	var res *convert.Result
	var err error
	if strings.EqualFold(filepath.Ext(path), ".asc") {
		res, err = convert.UnderwayCast(path, loc)
	} else {
		res, err = convert.HexCast(path, instrumentConfig(path), loc, time.Now())
	}
	if err != nil {
		log.Printf("Failed to convert %s: %v", path, err)
		st.IncrementCastsFailed()
		return
	}

	outPath, err := store.WriteConverted(res.Cast)
	if err != nil {
		log.Printf("Failed to write converted cast for %s: %v", path, err)
		st.IncrementCastsFailed()
		return
	}

	if dbClient != nil {
		if err := dbClient.CreateCast(res.Cast, res.ScansDecoded, res.ScansSkipped); err != nil {
			log.Printf("Failed to record cast %s: %v", res.Cast.SourceFile, err)
		} else if err := dbClient.StoreSamples(res.Cast); err != nil {
			log.Printf("Failed to store samples for %s: %v", res.Cast.SourceFile, err)
		}
	}

	if events != nil {
		event := &types.CastEvent{
			CastID:     res.Cast.ID,
			SourceFile: res.Cast.SourceFile,
			Model:      res.Cast.Model.String(),
			Path:       outPath,
			Scans:      res.ScansDecoded,
			Timestamp:  time.Now(),
		}
		if err := events.PublishCastEvent(nats.SubjectCastConverted, event); err != nil {
			log.Printf("Failed to publish event for %s: %v", res.Cast.SourceFile, err)
		}
	}

	st.IncrementCastsProcessed()
	st.IncrementModel(res.Cast.Model)
	st.AddScansDecoded(res.ScansDecoded)
	st.AddScansSkipped(res.ScansSkipped)
	st.AddProcessingTime(time.Since(start))
	log.Printf("Converted %s: %d scans (%d skipped)",
		res.Cast.SourceFile, res.ScansDecoded, res.ScansSkipped)
}

// instrumentConfig finds the calibration file for a hex cast: a sibling
// .xmlcon with the same base name, or failing that the only one in the folder.
func instrumentConfig(castPath string) string {
	base := strings.TrimSuffix(castPath, filepath.Ext(castPath))
	for _, ext := range []string{".xmlcon", ".XMLCON"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(castPath), "*.xmlcon"))
	if len(matches) == 1 {
		return matches[0]
	}
	return base + ".xmlcon"
}
