// internal/submit/submit.go
//
// Client-side submission loop. The ledger rejects instructions whose write
// set conflicts with one already executing, the same way the chain scheduler
// bounces a locked transaction; the submitter retries those with exponential
// backoff and fails everything else immediately.
package submit

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

const (
	defaultInitialInterval = 5 * time.Millisecond
	defaultMaxElapsed      = 2 * time.Second
)

type Submitter struct {
	ledger     *ledger.Ledger
	maxElapsed time.Duration
	logger     *zap.Logger
}

type Option func(*Submitter)

// WithMaxElapsed bounds how long one submission keeps retrying conflicts.
func WithMaxElapsed(d time.Duration) Option {
	return func(s *Submitter) { s.maxElapsed = d }
}

func New(led *ledger.Ledger, logger *zap.Logger, opts ...Option) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Submitter{
		ledger:     led,
		maxElapsed: defaultMaxElapsed,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit executes ins, retrying write-set conflicts until the context is
// done or the retry budget runs out. Handler errors are permanent: an
// instruction that aborted on its own preconditions will abort again.
func (s *Submitter) Submit(ctx context.Context, ins ledger.Instruction) error {
	attempts := 0
	op := func() (struct{}, error) {
		attempts++
		err := s.ledger.Execute(ins)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, state.ErrAccountInUse):
			s.logger.Debug("submission bounced, retrying",
				zap.String("instruction", ins.Name()),
				zap.Int("attempt", attempts))
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defaultInitialInterval

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(s.maxElapsed))
	return err
}
