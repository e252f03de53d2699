// Package transfer is the boundary to the fungible-asset transfer
// mechanism. The vault pulls deposits in and pushes withdrawals out
// through an Agent; the concrete mechanism (chain token, bank rail) is
// an external collaborator.
package transfer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/savium/savium/internal/domain"
)

// Agent moves one asset between accounts and the vault's custody.
// TransferIn requires a prior authorization by the source account
// (pull semantics); both directions are fallible and a failure aborts
// the enclosing vault operation.
type Agent interface {
	TransferIn(ctx context.Context, from domain.Account, amount decimal.Decimal) error
	TransferOut(ctx context.Context, to domain.Account, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, holder domain.Account) (decimal.Decimal, error)
}
