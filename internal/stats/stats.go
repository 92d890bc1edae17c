package stats

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/db"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

// Stats tracks cast processing statistics
type Stats struct {
	// Cast counts
	CastsProcessed uint64
	CastsFailed    uint64

	// Scan counts
	ScansDecoded uint64
	ScansSkipped uint64

	// Bin counts
	BinsProduced uint64

	// Per-model cast counts, indexed by types.Model
	ModelCounts [5]uint64

	// Timing
	StartedAt      time.Time
	ProcessingTime time.Duration

	// Database client for persistence
	db *db.Client

	mu sync.RWMutex
}

// New creates a new Stats instance
func New() *Stats {
	return &Stats{
		StartedAt: time.Now(),
	}
}

// SetDB sets the database client for persistence
func (s *Stats) SetDB(db *db.Client) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
}

// Persist stores the current statistics in the database
func (s *Stats) Persist() error {
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return fmt.Errorf("database client not set")
	}
	s.mu.RUnlock()

	return s.db.StoreRunStats(s.GetStats())
}

// IncrementCastsProcessed increments the processed casts counter
func (s *Stats) IncrementCastsProcessed() {
	atomic.AddUint64(&s.CastsProcessed, 1)
}

// IncrementCastsFailed increments the failed casts counter
func (s *Stats) IncrementCastsFailed() {
	atomic.AddUint64(&s.CastsFailed, 1)
}

// AddScansDecoded adds to the decoded scans counter
func (s *Stats) AddScansDecoded(n int) {
	atomic.AddUint64(&s.ScansDecoded, uint64(n))
}

// AddScansSkipped adds to the skipped scans counter
func (s *Stats) AddScansSkipped(n int) {
	atomic.AddUint64(&s.ScansSkipped, uint64(n))
}

// AddBinsProduced adds to the produced depth bins counter
func (s *Stats) AddBinsProduced(n int) {
	atomic.AddUint64(&s.BinsProduced, uint64(n))
}

// IncrementModel increments the cast counter for an instrument model
func (s *Stats) IncrementModel(m types.Model) {
	if m >= 0 && int(m) < len(s.ModelCounts) {
		atomic.AddUint64(&s.ModelCounts[m], 1)
	}
}

// AddProcessingTime adds to the total processing time
func (s *Stats) AddProcessingTime(d time.Duration) {
	s.mu.Lock()
	s.ProcessingTime += d
	s.mu.Unlock()
}

// StartPersistence periodically stores statistics until the context ends
func (s *Stats) StartPersistence(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist stats: %v", err)
			}
		}
	}
}

// GetStats returns the current statistics as a map
func (s *Stats) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts [5]uint64
	for i := range counts {
		counts[i] = atomic.LoadUint64(&s.ModelCounts[i])
	}

	return map[string]interface{}{
		"casts_processed": atomic.LoadUint64(&s.CastsProcessed),
		"casts_failed":    atomic.LoadUint64(&s.CastsFailed),
		"scans_decoded":   atomic.LoadUint64(&s.ScansDecoded),
		"scans_skipped":   atomic.LoadUint64(&s.ScansSkipped),
		"bins_produced":   atomic.LoadUint64(&s.BinsProduced),
		"model_counts":    counts,
		"processing_time": s.ProcessingTime,
		"started_at":      s.StartedAt,
	}
}
