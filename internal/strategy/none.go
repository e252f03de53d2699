package strategy

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/savium/savium/internal/domain"
)

// None is the zero-yield variant: it escrows invested funds and returns
// them on demand, one to one. Useful for vaults configured without an
// external yield source.
type None struct {
	mu   sync.Mutex
	held map[domain.Asset]decimal.Decimal
}

func NewNone() *None {
	return &None{held: make(map[domain.Asset]decimal.Decimal)}
}

func (n *None) Invest(_ context.Context, asset domain.Asset, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(domain.ErrInvariant, "negative invest")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.held[asset] = n.held[asset].Add(amount)
	return nil
}

func (n *None) Divest(_ context.Context, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, errors.Wrap(domain.ErrInvariant, "negative divest")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := decimal.Min(n.held[asset], amount)
	n.held[asset] = n.held[asset].Sub(out)
	return out, nil
}

func (n *None) ReportedValue(_ context.Context, asset domain.Asset) (decimal.Decimal, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.held[asset], nil
}
