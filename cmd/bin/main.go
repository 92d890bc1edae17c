package main

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/binning"
	"github.com/oceandata/ctd-pipeline/internal/config"
	"github.com/oceandata/ctd-pipeline/internal/db"
	"github.com/oceandata/ctd-pipeline/internal/nats"
	"github.com/oceandata/ctd-pipeline/internal/stats"
	"github.com/oceandata/ctd-pipeline/internal/storage"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
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

	files, err := filepath.Glob(filepath.Join(cfg.CorrectedDir, "*.csv"))
	if err != nil {
		log.Fatalf("Failed to list corrected casts: %v", err)
	}
	if len(files) == 0 {
		log.Printf("No corrected casts found in %s", cfg.CorrectedDir)
		return
	}
	log.Printf("Binning %d casts from %s at %dm", len(files), cfg.CorrectedDir, cfg.BinSize)

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
				binOne(path, cfg.BinSize, store, dbClient, events, st)
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	s := st.GetStats()
	log.Printf("Done: %d casts binned, %d failed, %d bins produced",
		s["casts_processed"], s["casts_failed"], s["bins_produced"])
}

func binOne(path string, binSize int, store *storage.Storage,
	dbClient *db.Client, events *nats.Client, st *stats.Stats) {

	start := time.Now()

	cast, err := storage.ReadCast(path)
	if err != nil {
		log.Printf("Failed to read %s: %v", path, err)
		st.IncrementCastsFailed()
		return
	}

	bins, err := binning.BinDepths(cast, binSize, true)
	if err != nil {
		log.Printf("Failed to bin %s: %v", cast.SourceFile, err)
		st.IncrementCastsFailed()
		return
	}

	outPath, err := store.WriteBinned(cast, bins, binSize)
	if err != nil {
		log.Printf("Failed to write binned output for %s: %v", cast.SourceFile, err)
		st.IncrementCastsFailed()
		return
	}

	if dbClient != nil {
		// the corrected CSV carries no cast id, so look it up by file name
		base := strings.TrimSuffix(cast.SourceFile, filepath.Ext(cast.SourceFile))
		id, err := dbClient.GetCastID(base)
		switch {
		case err != nil:
			log.Printf("Failed to look up cast id for %s: %v", cast.SourceFile, err)
		case id == "":
			log.Printf("No recorded cast for %s, skipping depth bin storage", cast.SourceFile)
		default:
			cast.ID = id
			if err := dbClient.StoreDepthBins(id, bins); err != nil {
				log.Printf("Failed to store depth bins for %s: %v", cast.SourceFile, err)
			}
		}
	}

	if events != nil {
		event := &types.CastEvent{
			CastID:     cast.ID,
			SourceFile: cast.SourceFile,
			Model:      cast.Model.String(),
			Path:       outPath,
			Scans:      cast.Len(),
			Bins:       len(bins),
			Timestamp:  time.Now(),
		}
		if err := events.PublishCastEvent(nats.SubjectCastBinned, event); err != nil {
			log.Printf("Failed to publish event for %s: %v", cast.SourceFile, err)
		}
	}

	st.IncrementCastsProcessed()
	st.IncrementModel(cast.Model)
	st.AddBinsProduced(len(bins))
	st.AddProcessingTime(time.Since(start))
	log.Printf("Binned %s: %d bins", cast.SourceFile, len(bins))
}
