package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Runner executes each unit of work either inside a multi-document transaction
// or as best-effort sequential writes, depending on what the deployment
// supports. The strategy is picked once at startup, not per call; in
// sequential mode callers rely on the recalculation pass as a consistency
// backstop and a concurrent oversell is possible.
type Runner struct {
	client        *mongo.Client
	transactional bool
	timeout       time.Duration
}

// NewRunner builds a Runner and logs the selected strategy.
func NewRunner(client *mongo.Client, transactional bool, timeout time.Duration, logger *slog.Logger) *Runner {
	mode := "sequential"
	if transactional {
		mode = "transactional"
	}
	if logger != nil {
		logger.Info("unit-of-work strategy selected", slog.String("mode", mode))
	}
	return &Runner{client: client, transactional: transactional, timeout: timeout}
}

// Transactional reports whether units of work run with all-or-nothing commit.
func (r *Runner) Transactional() bool { return r.transactional }

// Run executes fn bounded by the configured timeout. In transactional mode an
// error from fn aborts the transaction and no partial mutation remains.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if !r.transactional {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("platform/db: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}
