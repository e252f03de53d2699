package transfer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/savium/savium/internal/domain"
)

// Bank is an in-memory asset with balances and pull allowances, used by
// tests and the demo entrypoint in place of a real transfer mechanism.
type Bank struct {
	mu         sync.Mutex
	asset      domain.Asset
	balances   map[domain.Account]decimal.Decimal
	allowances map[[2]domain.Account]decimal.Decimal
}

func NewBank(asset domain.Asset) *Bank {
	return &Bank{
		asset:      asset,
		balances:   make(map[domain.Account]decimal.Decimal),
		allowances: make(map[[2]domain.Account]decimal.Decimal),
	}
}

// Issue credits freshly created funds to an account.
func (b *Bank) Issue(account domain.Account, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = b.balances[account].Add(amount)
}

// Approve authorizes spender to pull up to amount from owner.
func (b *Bank) Approve(owner, spender domain.Account, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowances[[2]domain.Account{owner, spender}] = amount
}

// Balance returns the account's balance.
func (b *Bank) Balance(account domain.Account) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// AgentFor returns the transfer agent bound to a custody account.
func (b *Bank) AgentFor(custody domain.Account) Agent {
	return &bankAgent{bank: b, custody: custody}
}

type bankAgent struct {
	bank    *Bank
	custody domain.Account
}

func (a *bankAgent) TransferIn(_ context.Context, from domain.Account, amount decimal.Decimal) error {
	b := a.bank
	b.mu.Lock()
	defer b.mu.Unlock()
	key := [2]domain.Account{from, a.custody}
	if b.allowances[key].LessThan(amount) {
		return errors.Wrapf(domain.ErrInsufficientBalance, "allowance %s < %s for %s", b.allowances[key], amount, b.asset)
	}
	if b.balances[from].LessThan(amount) {
		return errors.Wrapf(domain.ErrInsufficientBalance, "balance %s < %s for %s", b.balances[from], amount, b.asset)
	}
	b.allowances[key] = b.allowances[key].Sub(amount)
	b.balances[from] = b.balances[from].Sub(amount)
	b.balances[a.custody] = b.balances[a.custody].Add(amount)
	return nil
}

func (a *bankAgent) TransferOut(_ context.Context, to domain.Account, amount decimal.Decimal) error {
	b := a.bank
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[a.custody].LessThan(amount) {
		return errors.Wrapf(domain.ErrInsufficientBalance, "custody balance %s < %s for %s", b.balances[a.custody], amount, b.asset)
	}
	b.balances[a.custody] = b.balances[a.custody].Sub(amount)
	b.balances[to] = b.balances[to].Add(amount)
	return nil
}

func (a *bankAgent) BalanceOf(_ context.Context, holder domain.Account) (decimal.Decimal, error) {
	b := a.bank
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[holder], nil
}
