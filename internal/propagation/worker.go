package propagation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	entry      tle.TLEEntry
	prop       *SGP4Propagator // nil if initialization failed for this entry
	targetTime time.Time
	gmst       float64 // precomputed GMST for targetTime
}

// propagateResult is the output of a single satellite propagation.
type propagateResult struct {
	state   SatelliteState
	err     error
	noradID int
}

// WorkerPool runs a fixed number of goroutines for parallel SGP4
// propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateBatch propagates every entry to the target time using the
// prebuilt propagators in props (keyed by NORAD ID). Failed satellites
// are logged and skipped; the batch never aborts for one bad entry.
// Returns the successful states plus success and error counts.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, entries []tle.TLEEntry, targetTime time.Time, props map[int]*SGP4Propagator) ([]SatelliteState, int, int) {
	if len(entries) == 0 {
		return nil, 0, 0
	}

	// GMST is the same for every satellite in the batch.
	gmst := astrotime.GMST(targetTime)

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			job := propagateJob{
				entry:      entry,
				prop:       props[entry.NORADID],
				targetTime: targetTime,
				gmst:       gmst,
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	states := make([]SatelliteState, 0, len(entries))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"norad_id", result.noradID,
				"error", result.err,
			)
			continue
		}
		successCount++
		states = append(states, result.state)
	}

	return states, successCount, errorCount
}

// propagateSingle runs SGP4 and the TEME to ECEF transform for one
// satellite.
func propagateSingle(job propagateJob) propagateResult {
	if job.prop == nil {
		return propagateResult{noradID: job.entry.NORADID, err: fmt.Errorf("no propagator for NORAD %d", job.entry.NORADID)}
	}

	teme, err := job.prop.PropagateAt(job.targetTime)
	if err != nil {
		return propagateResult{noradID: job.entry.NORADID, err: err}
	}

	ecef := transform.TEMEToECEFWithGMST(teme, job.gmst)

	return propagateResult{
		noradID: job.entry.NORADID,
		state: SatelliteState{
			NORADID:      job.entry.NORADID,
			Name:         job.entry.Name,
			PositionECEF: [3]float64{ecef.X, ecef.Y, ecef.Z},
			VelocityECEF: [3]float64{ecef.VX, ecef.VY, ecef.VZ},
		},
	}
}
