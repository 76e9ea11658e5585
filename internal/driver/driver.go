package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"mcqagent/internal/agent"
	"mcqagent/internal/config"
	"mcqagent/internal/dataset"
	"mcqagent/internal/llm"
	"mcqagent/internal/logging"
)

// Pipeline turns an unanswered state into an answered one. Satisfied by
// *agent.Engine.
type Pipeline interface {
	Process(ctx context.Context, s *agent.State) error
}

// ErrHalted is returned when a rate limit under the manual policy stops
// the batch; the emergency output has already been written and a
// re-invocation resumes from the log.
var ErrHalted = errors.New("batch halted by rate limit, re-run to resume")

// Driver processes one WorkItem at a time, strictly sequentially, and
// persists every outcome before moving on.
type Driver struct {
	pipeline     Pipeline
	stop         StopSignal
	cfg          config.DriverConfig
	outputDir    string
	resumeBuffer time.Duration

	// now and sleep are swapped out in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a driver. stop may be nil when no sentinel is configured.
func New(pipeline Pipeline, stop StopSignal, cfg config.DriverConfig, outputDir string, resumeBuffer time.Duration) *Driver {
	return &Driver{
		pipeline:     pipeline,
		stop:         stop,
		cfg:          cfg,
		outputDir:    outputDir,
		resumeBuffer: resumeBuffer,
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// Run processes every item not already in the log, then consolidates the
// log into the final answer table. One failing item degrades to a
// fallback record; only rate limiting pauses or halts the batch.
func (d *Driver) Run(ctx context.Context, items []dataset.WorkItem, log *CheckpointLog) error {
	lg := logging.Get(logging.CategoryDriver)
	lg.Infow("batch started", "items", len(items), "already_processed", log.Count())

	i := 0
	for i < len(items) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.stop != nil && d.stop.Requested() {
			lg.Infow("stop signal honored", "processed", log.Count())
			if err := d.stop.Clear(); err != nil {
				lg.Warnw("could not clear stop sentinel", "error", err)
			}
			break
		}

		item := items[i]
		if log.Processed(item.QID) {
			i++
			continue
		}

		state := agent.NewState(item.QID, item.Question, item.Choices)
		start := d.now()
		err := d.pipeline.Process(ctx, state)
		elapsed := d.now().Sub(start).Seconds()

		switch {
		case err == nil:
			rec := CheckpointRecord{
				QID:       state.QID,
				Answer:    state.Answer,
				Category:  string(state.Category),
				Reasoning: state.Reasoning,
				TimeTaken: elapsed,
			}
			if aerr := log.Append(rec); aerr != nil {
				return aerr
			}
			lg.Infow("item done", "qid", item.QID, "answer", state.Answer, "category", state.Category)
			i++

		case llm.IsRateLimit(err):
			if d.cfg.RateLimitPolicy == config.PolicyManual {
				lg.Warnw("rate limited, halting (manual policy)", "qid", item.QID)
				emergency := filepath.Join(d.outputDir, "submission_emergency.csv")
				if _, cerr := Consolidate(log.Path(), emergency); cerr != nil {
					lg.Errorw("emergency consolidation failed", "error", cerr)
				}
				return fmt.Errorf("%w: %v", ErrHalted, err)
			}
			wait := d.waitDuration()
			lg.Warnw("rate limited, waiting for quota reset", "qid", item.QID, "wait", wait)
			if serr := d.sleep(ctx, wait); serr != nil {
				return serr
			}
			// Retry the same item without advancing.

		default:
			// Generic per-item failure degrades to a fallback record so
			// the batch keeps going and consolidation stays complete.
			lg.Errorw("item failed, recording fallback", "qid", item.QID, "error", err)
			rec := CheckpointRecord{
				QID:       item.QID,
				Answer:    d.cfg.FallbackLetter,
				Category:  "error",
				Reasoning: err.Error(),
				TimeTaken: elapsed,
			}
			if aerr := log.Append(rec); aerr != nil {
				return aerr
			}
			i++
		}
	}

	out := filepath.Join(d.outputDir, "submission.csv")
	rows, err := Consolidate(log.Path(), out)
	if err != nil {
		return err
	}
	lg.Infow("batch finished", "rows", rows, "output", out)
	return nil
}

// waitDuration computes the sleep until the next quota-reset boundary:
// the top of the next clock hour plus a safety buffer.
func (d *Driver) waitDuration() time.Duration {
	now := d.now()
	reset := now.Truncate(time.Hour).Add(time.Hour).Add(d.resumeBuffer)
	return reset.Sub(now)
}

func sleepContext(ctx context.Context, dur time.Duration) error {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
