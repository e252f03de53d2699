// Package strategy defines the boundary to an external yield source
// and ships the variants a vault can be configured with. The vault
// depends only on the Strategy interface, never on a concrete variant.
package strategy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/savium/savium/internal/domain"
)

// Strategy is the capability interface for a yield source. Calls may
// fail and are treated as fallible by every caller; they are trusted
// not to reenter the vault.
type Strategy interface {
	// Invest deploys funds into the strategy.
	Invest(ctx context.Context, asset domain.Asset, amount decimal.Decimal) error
	// Divest pulls funds back. The returned amount may be less than
	// requested when the strategy charges an exit cost.
	Divest(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, error)
	// ReportedValue is the strategy's current valuation of its holdings
	// in the asset, including accrued yield.
	ReportedValue(ctx context.Context, asset domain.Asset) (decimal.Decimal, error)
}
