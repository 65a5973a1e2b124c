package keypool

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// JanitorConfig controls scheduled pool maintenance. The pool already
// recovers failed keys on the first access of a new day; the janitor adds
// periodic health snapshots in the log and an optional scheduled reset for
// deployments that want recovery at a fixed time rather than on access.
type JanitorConfig struct {
	// SnapshotSpec is a 5-field cron expression for status logging.
	// Empty disables snapshots.
	SnapshotSpec string

	// ResetSpec is a 5-field cron expression for a forced failure-registry
	// reset. Empty disables scheduled resets.
	ResetSpec string
}

// Janitor runs scheduled maintenance against a pool.
type Janitor struct {
	pool   *Pool
	runner *cron.Cron
	logger zerolog.Logger
}

// NewJanitor builds a janitor from cron specs. Returns an error if either
// expression does not parse.
func NewJanitor(pool *Pool, cfg JanitorConfig, logger zerolog.Logger) (*Janitor, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	runner := cron.New(cron.WithParser(parser))

	j := &Janitor{
		pool:   pool,
		runner: runner,
		logger: logger,
	}

	if cfg.SnapshotSpec != "" {
		if _, err := runner.AddFunc(cfg.SnapshotSpec, j.snapshot); err != nil {
			return nil, fmt.Errorf("invalid snapshot schedule %q: %w", cfg.SnapshotSpec, err)
		}
	}

	if cfg.ResetSpec != "" {
		if _, err := runner.AddFunc(cfg.ResetSpec, j.reset); err != nil {
			return nil, fmt.Errorf("invalid reset schedule %q: %w", cfg.ResetSpec, err)
		}
	}

	return j, nil
}

// Start begins running scheduled jobs in their own goroutine.
func (j *Janitor) Start() {
	j.runner.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (j *Janitor) Stop() {
	ctx := j.runner.Stop()
	<-ctx.Done()
}

func (j *Janitor) snapshot() {
	status := j.pool.Status()
	j.logger.Info().
		Int("totalKeys", status.TotalKeys).
		Int("activeKeys", status.ActiveKeys).
		Int("failedKeys", status.FailedKeys).
		Str("currentKey", status.CurrentKeyPrefix).
		Msg("Key pool snapshot")
}

func (j *Janitor) reset() {
	j.pool.ForceReset()
}
