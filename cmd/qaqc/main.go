package main

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/config"
	"github.com/oceandata/ctd-pipeline/internal/nats"
	"github.com/oceandata/ctd-pipeline/internal/qaqc"
	"github.com/oceandata/ctd-pipeline/internal/stats"
	"github.com/oceandata/ctd-pipeline/internal/storage"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
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

	files, err := filepath.Glob(filepath.Join(cfg.ConvertedDir, "*.csv"))
	if err != nil {
		log.Fatalf("Failed to list converted casts: %v", err)
	}
	if len(files) == 0 {
		log.Printf("No converted casts found in %s", cfg.ConvertedDir)
		return
	}
	log.Printf("Correcting %d casts from %s", len(files), cfg.ConvertedDir)

	st := stats.New()
	store := storage.New(cfg.ConvertedDir, cfg.CorrectedDir, cfg.BinnedDir)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				correctOne(path, store, events, st)
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	s := st.GetStats()
	log.Printf("Done: %d casts corrected, %d failed", s["casts_processed"], s["casts_failed"])
}

func correctOne(path string, store *storage.Storage, events *nats.Client, st *stats.Stats) {
	start := time.Now()

	cast, err := storage.ReadCast(path)
	if err != nil {
		log.Printf("Failed to read %s: %v", path, err)
		st.IncrementCastsFailed()
		return
	}

	qaqc.Correct(cast)

	outPath, err := store.WriteCorrected(cast)
	if err != nil {
		log.Printf("Failed to write corrected cast for %s: %v", path, err)
		st.IncrementCastsFailed()
		return
	}

	if events != nil {
		event := &types.CastEvent{
			CastID:     cast.ID,
			SourceFile: cast.SourceFile,
			Model:      cast.Model.String(),
			Path:       outPath,
			Scans:      cast.Len(),
			Timestamp:  time.Now(),
		}
		if err := events.PublishCastEvent(nats.SubjectCastCorrected, event); err != nil {
			log.Printf("Failed to publish event for %s: %v", cast.SourceFile, err)
		}
	}

	st.IncrementCastsProcessed()
	st.IncrementModel(cast.Model)
	st.AddProcessingTime(time.Since(start))
	log.Printf("Corrected %s: %d scans", cast.SourceFile, cast.Len())
}
