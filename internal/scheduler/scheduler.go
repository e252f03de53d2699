// Package scheduler runs the periodic operator settlement loop.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/savium/savium/internal/domain"
	"github.com/savium/savium/internal/savings"
	"github.com/savium/savium/internal/vault"
	"github.com/savium/savium/pkg/retrier"
)

const runTimeout = 2 * time.Minute

type operatorActions interface {
	HandleOperatorActions(ctx context.Context, tok domain.OperatorToken, vaultID string) (vault.Report, error)
}

var _ operatorActions = (*savings.Orchestrator)(nil)

// Scheduler triggers settlement and yield distribution per vault on a
// cron schedule. Strategy calls are fallible, so each run is retried
// with backoff; a run that still fails is logged and waits for the next
// tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	orch   operatorActions
	tok    domain.OperatorToken
	retr   *retrier.Retrier
}

func New(logger *zap.Logger, orch operatorActions, tok domain.OperatorToken) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
		orch:   orch,
		tok:    tok,
		retr:   retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(5*time.Second)),
	}
}

// Register adds a settlement schedule for one vault.
func (s *Scheduler) Register(vaultID, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(vaultID) }); err != nil {
		return errors.Wrapf(err, "register settlement schedule for vault %s", vaultID)
	}
	return nil
}

func (s *Scheduler) run(vaultID string) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	err := s.retr.Do(ctx, func(ctx context.Context) error {
		_, err := s.orch.HandleOperatorActions(ctx, s.tok, vaultID)
		return err
	})
	if err != nil {
		s.logger.Error("operator run failed",
			zap.String("vault", vaultID),
			zap.Error(err))
		return
	}
	s.logger.Info("operator run complete", zap.String("vault", vaultID))
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
