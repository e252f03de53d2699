package strategy

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/savium/savium/internal/domain"
)

// Sim simulates a single-asset yield source: it holds invested funds,
// lets tests and the demo entrypoint accrue yield explicitly, and can
// charge an exit penalty or fail divestment on demand.
type Sim struct {
	mu     sync.Mutex
	logger *zap.Logger
	held   map[domain.Asset]decimal.Decimal

	// exitPenalty is the fraction of a divested amount kept by the
	// strategy, e.g. 0.01 for a 1% exit cost.
	exitPenalty decimal.Decimal
	investErr   error
	divestErr   error
}

func NewSim(logger *zap.Logger) *Sim {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sim{
		logger:      logger,
		held:        make(map[domain.Asset]decimal.Decimal),
		exitPenalty: decimal.Zero,
	}
}

// SetExitPenalty configures the fraction lost on divestment.
func (s *Sim) SetExitPenalty(p decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitPenalty = p
}

// FailInvest makes subsequent Invest calls return err; nil restores
// normal behaviour.
func (s *Sim) FailInvest(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investErr = err
}

// FailDivest makes subsequent Divest calls return err; nil restores
// normal behaviour.
func (s *Sim) FailDivest(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.divestErr = err
}

// Accrue simulates yield: the strategy's reported value grows by amount
// without any deposit.
func (s *Sim) Accrue(asset domain.Asset, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[asset] = s.held[asset].Add(amount)
	s.logger.Debug("yield accrued",
		zap.String("asset", asset.String()),
		zap.String("amount", amount.String()))
}

func (s *Sim) Invest(_ context.Context, asset domain.Asset, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(domain.ErrInvariant, "negative invest")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.investErr != nil {
		return s.investErr
	}
	s.held[asset] = s.held[asset].Add(amount)
	return nil
}

func (s *Sim) Divest(_ context.Context, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, errors.Wrap(domain.ErrInvariant, "negative divest")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.divestErr != nil {
		return decimal.Zero, s.divestErr
	}
	taken := decimal.Min(s.held[asset], amount)
	s.held[asset] = s.held[asset].Sub(taken)
	out := taken.Sub(taken.Mul(s.exitPenalty))
	return out, nil
}

func (s *Sim) ReportedValue(_ context.Context, asset domain.Asset) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held[asset], nil
}
