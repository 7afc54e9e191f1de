package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/carconsole/pkg/log"
)

// Worker is a long-running task owned by the supervisor.
type Worker func(ctx context.Context) error

// SupervisorConfig controls restart behaviour.
type SupervisorConfig struct {
	// Name identifies the worker in logs.
	Name string

	// BackoffInitial is the first restart delay.
	// Default: 500ms
	BackoffInitial time.Duration

	// BackoffMax caps the restart delay.
	// Default: 10s
	BackoffMax time.Duration

	// StableAfter resets the backoff when a run lasted at least this long.
	// Default: 30s
	StableAfter time.Duration

	// OnError is called after every failed run, before the restart delay.
	OnError func(err error, restarts int)
}

// Supervise runs w until ctx is done, restarting it with backoff whenever
// it returns an error or panics. A nil return ends supervision.
func Supervise(ctx context.Context, w Worker, cfg SupervisorConfig, logger log.Logger) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = 30 * time.Second
	}
	bo := NewBackoff(cfg.BackoffInitial, cfg.BackoffMax)
	restarts := 0

	for {
		started := time.Now()
		err := runGuarded(ctx, w)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			logger.Info("worker finished", log.String("worker", cfg.Name))
			return
		}
		if time.Since(started) >= cfg.StableAfter {
			bo.Reset()
		}

		logger.Warn("worker failed, restarting",
			log.String("worker", cfg.Name),
			log.Err(err),
			log.Int("restarts", restarts),
			log.Duration("backoff", bo.Current()),
		)
		if cfg.OnError != nil {
			cfg.OnError(err, restarts)
		}
		if !bo.Wait(ctx) {
			return
		}
		restarts++
	}
}

func runGuarded(ctx context.Context, w Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panicked: %v", r)
		}
	}()
	err = w(ctx)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
