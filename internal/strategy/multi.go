package strategy

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/savium/savium/internal/domain"
)

// Multi routes each asset to its own sub-strategy, so one vault can
// deploy different assets into different yield sources.
type Multi struct {
	routes map[domain.Asset]Strategy
}

func NewMulti(routes map[domain.Asset]Strategy) *Multi {
	m := &Multi{routes: make(map[domain.Asset]Strategy, len(routes))}
	for asset, s := range routes {
		m.routes[asset] = s
	}
	return m
}

func (m *Multi) route(asset domain.Asset) (Strategy, error) {
	s, ok := m.routes[asset]
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnknownAsset, "no strategy route for %s", asset)
	}
	return s, nil
}

func (m *Multi) Invest(ctx context.Context, asset domain.Asset, amount decimal.Decimal) error {
	s, err := m.route(asset)
	if err != nil {
		return err
	}
	return s.Invest(ctx, asset, amount)
}

func (m *Multi) Divest(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, error) {
	s, err := m.route(asset)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Divest(ctx, asset, amount)
}

func (m *Multi) ReportedValue(ctx context.Context, asset domain.Asset) (decimal.Decimal, error) {
	s, err := m.route(asset)
	if err != nil {
		return decimal.Zero, err
	}
	return s.ReportedValue(ctx, asset)
}
