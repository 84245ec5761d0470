package generator

import (
	"context"
	"time"

	"github.com/ShussainML/schoolmealapp/pkg/pollinations"
	"go.uber.org/zap"
)

const (
	// SeedStride separates the seeds of variations within one batch.
	SeedStride = 1337

	// seedBound keeps the time-derived base seed in a readable range.
	seedBound = 999999
)

// ImageClient is the slice of the generation client the orchestrator needs.
// *pollinations.Client satisfies it; tests substitute a fake.
type ImageClient interface {
	Generate(ctx context.Context, prompt string, seed int64, width, height int) pollinations.Result
}

// Attempt pairs a variation index and its derived seed with the classified
// outcome of that request. CompletedAt is the wall-clock time the attempt
// finished.
type Attempt struct {
	Index       int
	Seed        int64
	Result      pollinations.Result
	CompletedAt time.Time
}

// BatchResult aggregates a full batch. A batch with failures is still a
// normal result, never an error.
type BatchResult struct {
	Attempts     []Attempt
	SuccessCount int
	FailureCount int
}

// Progress describes one completed attempt, reported in index order.
type Progress struct {
	Index    int
	Total    int
	Fraction float64
	OK       bool
	Seed     int64
	Elapsed  time.Duration
}

// ProgressFunc observes per-attempt completion. May be nil.
type ProgressFunc func(Progress)

// SeedBase derives a fresh base seed from the wall clock so that batches run
// at different times do not reuse seeds.
func SeedBase(now time.Time) int64 {
	return now.UnixMilli() % seedBound
}

// Orchestrator runs generation batches strictly sequentially. The remote
// free service has no documented concurrency guarantees, so variations are
// dispatched one at a time in index order.
type Orchestrator struct {
	client ImageClient
	logger *zap.Logger
	width  int
	height int
}

// NewOrchestrator wires an orchestrator around a generation client. Zero
// dimensions fall back to the client package defaults.
func NewOrchestrator(client ImageClient, width, height int, logger *zap.Logger) *Orchestrator {
	if width <= 0 {
		width = pollinations.DefaultImageSize
	}
	if height <= 0 {
		height = pollinations.DefaultImageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{client: client, logger: logger, width: width, height: height}
}

// RunBatch issues count sequential generation requests for prompt, seeding
// variation i with seedBase + i*SeedStride. Each attempt's outcome is
// reported through onProgress before the next attempt starts. Individual
// failures never abort the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, prompt string, count int, seedBase int64, onProgress ProgressFunc) BatchResult {
	batch := BatchResult{Attempts: make([]Attempt, 0, count)}

	for i := 0; i < count; i++ {
		seed := seedBase + int64(i)*SeedStride

		o.logger.Info("dispatching variation",
			zap.Int("index", i),
			zap.Int("total", count),
			zap.Int64("seed", seed),
		)

		res := o.client.Generate(ctx, prompt, seed, o.width, o.height)
		batch.Attempts = append(batch.Attempts, Attempt{Index: i, Seed: seed, Result: res, CompletedAt: time.Now()})
		if res.OK() {
			batch.SuccessCount++
		} else {
			batch.FailureCount++
			o.logger.Warn("variation failed",
				zap.Int("index", i),
				zap.Int64("seed", seed),
				zap.String("kind", string(res.Reason)),
				zap.String("message", res.Message),
			)
		}

		if onProgress != nil {
			onProgress(Progress{
				Index:    i,
				Total:    count,
				Fraction: float64(i+1) / float64(count),
				OK:       res.OK(),
				Seed:     seed,
				Elapsed:  res.Elapsed,
			})
		}
	}

	o.logger.Info("batch complete",
		zap.Int("success", batch.SuccessCount),
		zap.Int("failure", batch.FailureCount),
	)
	return batch
}
