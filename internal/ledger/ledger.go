// Package ledger tracks per-(account, asset) vault bookkeeping: funds
// on hold before settlement, queued withdrawal requests and earmarked
// claimable liquidity. Entries are created lazily and removed once they
// return to zero.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/savium/savium/internal/domain"
)

type key struct {
	account domain.Account
	asset   domain.Asset
}

// holdEntry carries an epoch stamp instead of being deleted at
// settlement. Settlement bumps the asset epoch in O(1); an entry whose
// stamp is older than the current epoch reads as zero and is pruned the
// next time it is touched.
type holdEntry struct {
	amount decimal.Decimal
	epoch  uint64
}

// Request is a withdrawal remainder waiting for liquidity. It stays
// valid indefinitely until settlement converts it into a claimable
// entry; there is no cancellation and no timeout.
type Request struct {
	ID        string
	Account   domain.Account
	Asset     domain.Asset
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Ledger is the single-writer bookkeeping structure owned by one vault.
// The platform serializes operations, so no locking happens here.
type Ledger struct {
	onHold      map[key]*holdEntry
	onHoldTotal map[domain.Asset]decimal.Decimal
	epoch       map[domain.Asset]uint64

	requests   map[domain.Asset][]*Request
	openByKey  map[key]*Request
	reqTotal   map[domain.Asset]decimal.Decimal
	claimable  map[key]decimal.Decimal
	claimTotal map[domain.Asset]decimal.Decimal
}

func New() *Ledger {
	return &Ledger{
		onHold:      make(map[key]*holdEntry),
		onHoldTotal: make(map[domain.Asset]decimal.Decimal),
		epoch:       make(map[domain.Asset]uint64),
		requests:    make(map[domain.Asset][]*Request),
		openByKey:   make(map[key]*Request),
		reqTotal:    make(map[domain.Asset]decimal.Decimal),
		claimable:   make(map[key]decimal.Decimal),
		claimTotal:  make(map[domain.Asset]decimal.Decimal),
	}
}

// liveHold prunes a stale entry and returns the live one, if any.
func (l *Ledger) liveHold(k key) *holdEntry {
	e, ok := l.onHold[k]
	if !ok {
		return nil
	}
	if e.epoch < l.epoch[k.asset] {
		delete(l.onHold, k)
		return nil
	}
	return e
}

// AddOnHold records a deposit that has entered custody but is not yet
// deployed.
func (l *Ledger) AddOnHold(account domain.Account, asset domain.Asset, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.Wrap(domain.ErrInvariant, "on-hold amount must be positive")
	}
	k := key{account, asset}
	e := l.liveHold(k)
	if e == nil {
		e = &holdEntry{amount: decimal.Zero, epoch: l.epoch[asset]}
		l.onHold[k] = e
	}
	e.amount = e.amount.Add(amount)
	l.onHoldTotal[asset] = l.onHoldTotal[asset].Add(amount)
	return nil
}

// OnHold returns the account's live on-hold amount for the asset.
func (l *Ledger) OnHold(account domain.Account, asset domain.Asset) decimal.Decimal {
	if e := l.liveHold(key{account, asset}); e != nil {
		return e.amount
	}
	return decimal.Zero
}

// TakeOnHold consumes part of the account's on-hold amount, deleting
// the entry at zero.
func (l *Ledger) TakeOnHold(account domain.Account, asset domain.Asset, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(domain.ErrInvariant, "negative on-hold take")
	}
	if amount.IsZero() {
		return nil
	}
	k := key{account, asset}
	e := l.liveHold(k)
	if e == nil || e.amount.LessThan(amount) {
		return errors.Wrapf(domain.ErrInsufficientBalance, "on-hold %s of %s", amount, asset)
	}
	e.amount = e.amount.Sub(amount)
	if e.amount.IsZero() {
		delete(l.onHold, k)
	}
	l.onHoldTotal[asset] = l.onHoldTotal[asset].Sub(amount)
	return nil
}

// OnHoldTotal is the aggregate on-hold amount for the asset in the
// current epoch.
func (l *Ledger) OnHoldTotal(asset domain.Asset) decimal.Decimal {
	return l.onHoldTotal[asset]
}

// BumpEpoch invalidates every live on-hold entry for the asset without
// touching individual records. Called after the aggregate has been
// invested.
func (l *Ledger) BumpEpoch(asset domain.Asset) {
	l.epoch[asset]++
	l.onHoldTotal[asset] = decimal.Zero
}

// AddRequest queues a withdrawal remainder. Repeated requests by the
// same account for the same asset accumulate into one open request,
// which keeps its original queue position.
func (l *Ledger) AddRequest(account domain.Account, asset domain.Asset, amount decimal.Decimal) (*Request, error) {
	if !amount.IsPositive() {
		return nil, errors.Wrap(domain.ErrInvariant, "request amount must be positive")
	}
	k := key{account, asset}
	if r, ok := l.openByKey[k]; ok {
		r.Amount = r.Amount.Add(amount)
		l.reqTotal[asset] = l.reqTotal[asset].Add(amount)
		return r, nil
	}
	r := &Request{
		ID:        uuid.New().String(),
		Account:   account,
		Asset:     asset,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	l.requests[asset] = append(l.requests[asset], r)
	l.openByKey[k] = r
	l.reqTotal[asset] = l.reqTotal[asset].Add(amount)
	return r, nil
}

// Requests returns the open requests for the asset in creation order.
func (l *Ledger) Requests(asset domain.Asset) []*Request {
	out := make([]*Request, len(l.requests[asset]))
	copy(out, l.requests[asset])
	return out
}

// Requested returns the account's open request amount for the asset.
func (l *Ledger) Requested(account domain.Account, asset domain.Asset) decimal.Decimal {
	if r, ok := l.openByKey[key{account, asset}]; ok {
		return r.Amount
	}
	return decimal.Zero
}

// RequestedTotal is the aggregate outstanding request amount.
func (l *Ledger) RequestedTotal(asset domain.Asset) decimal.Decimal {
	return l.reqTotal[asset]
}

// Resolve converts a whole request into a claimable entry. Requests are
// never resolved partially.
func (l *Ledger) Resolve(r *Request) error {
	k := key{r.Account, r.Asset}
	open, ok := l.openByKey[k]
	if !ok || open != r {
		return errors.Wrap(domain.ErrInvariant, "resolving unknown request")
	}
	queue := l.requests[r.Asset]
	for i, q := range queue {
		if q == r {
			l.requests[r.Asset] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	delete(l.openByKey, k)
	l.reqTotal[r.Asset] = l.reqTotal[r.Asset].Sub(r.Amount)
	l.claimable[k] = l.claimable[k].Add(r.Amount)
	l.claimTotal[r.Asset] = l.claimTotal[r.Asset].Add(r.Amount)
	return nil
}

// Claimable returns the account's earmarked amount for the asset.
func (l *Ledger) Claimable(account domain.Account, asset domain.Asset) decimal.Decimal {
	return l.claimable[key{account, asset}]
}

// ClaimableTotal is the aggregate earmarked liquidity for the asset.
func (l *Ledger) ClaimableTotal(asset domain.Asset) decimal.Decimal {
	return l.claimTotal[asset]
}

// TakeClaimable removes and returns the account's whole claimable
// entry.
func (l *Ledger) TakeClaimable(account domain.Account, asset domain.Asset) decimal.Decimal {
	k := key{account, asset}
	amt, ok := l.claimable[k]
	if !ok {
		return decimal.Zero
	}
	delete(l.claimable, k)
	l.claimTotal[asset] = l.claimTotal[asset].Sub(amt)
	return amt
}
