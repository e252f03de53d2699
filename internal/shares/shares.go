// Package shares implements the ownership-share ledger with pro-rata
// yield distribution. Distribution cost is independent of the number of
// holders: yield moves a single cumulative index, and each account
// settles against the index lazily the next time it is touched.
//
// On-hold shares (minted for deposits not yet deployed) do not dilute
// distribution. Flipping every on-hold balance to eligible after
// settlement is an O(1) epoch bump; per-account promotion happens
// lazily by comparing the account's epoch stamp to the global epoch.
package shares

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/savium/savium/internal/domain"
)

// indexScale bounds the precision of index deltas and realized credits.
// Truncation is toward zero everywhere, so the sum credited across all
// holders never exceeds the distributed amount; the residue stays in
// the vault as dust.
const indexScale = 18

type position struct {
	eligible  decimal.Decimal
	onHold    decimal.Decimal
	stamp     uint64
	lastIndex decimal.Decimal
	realized  decimal.Decimal
}

// Ledger tracks share balances and the yield accumulator for one vault.
type Ledger struct {
	positions map[domain.Account]*position

	epoch          uint64
	index          decimal.Decimal
	eligibleSupply decimal.Decimal
	onHoldSupply   decimal.Decimal

	// cuts records the index value at the moment each epoch closed, so
	// a lazily promoted position can be credited in two segments: the
	// eligible-only stretch up to the cut, and the full balance after.
	cuts      map[uint64]decimal.Decimal
	stampRefs map[uint64]int

	// undistributed carries yield that arrived while eligible supply
	// was zero. Never lost; folded into the next distribution.
	undistributed decimal.Decimal
}

func New() *Ledger {
	return &Ledger{
		positions: make(map[domain.Account]*position),
		cuts:      make(map[uint64]decimal.Decimal),
		stampRefs: make(map[uint64]int),
	}
}

func (l *Ledger) pos(account domain.Account) *position {
	p, ok := l.positions[account]
	if !ok {
		p = &position{lastIndex: l.index}
		l.positions[account] = p
	}
	return p
}

func (l *Ledger) retainStamp(e uint64) {
	l.stampRefs[e]++
}

func (l *Ledger) releaseStamp(e uint64) {
	l.stampRefs[e]--
	if l.stampRefs[e] <= 0 {
		delete(l.stampRefs, e)
		delete(l.cuts, e)
	}
}

// realize settles the position against the index. Runs before every
// balance mutation; this is what keeps distribution O(1) per holder.
func (l *Ledger) realize(p *position) {
	if p.onHold.IsPositive() && p.stamp < l.epoch {
		cut := l.cuts[p.stamp]
		owed := p.eligible.Mul(cut.Sub(p.lastIndex)).Truncate(indexScale)
		p.realized = p.realized.Add(owed)
		p.eligible = p.eligible.Add(p.onHold)
		p.onHold = decimal.Zero
		p.lastIndex = cut
		l.releaseStamp(p.stamp)
	}
	owed := p.eligible.Mul(l.index.Sub(p.lastIndex)).Truncate(indexScale)
	p.realized = p.realized.Add(owed)
	p.lastIndex = l.index
}

// Mint creates shares for an account. On-hold shares are stamped with
// the current epoch and stay out of distribution until the epoch closes.
func (l *Ledger) Mint(account domain.Account, amount decimal.Decimal, onHold bool) error {
	if !amount.IsPositive() {
		return errors.Wrap(domain.ErrInvariant, "mint amount must be positive")
	}
	p := l.pos(account)
	l.realize(p)
	if onHold {
		if p.onHold.IsZero() {
			l.retainStamp(l.epoch)
		}
		p.onHold = p.onHold.Add(amount)
		p.stamp = l.epoch
		l.onHoldSupply = l.onHoldSupply.Add(amount)
		return nil
	}
	p.eligible = p.eligible.Add(amount)
	l.eligibleSupply = l.eligibleSupply.Add(amount)
	return nil
}

// Burn destroys shares, taking from the eligible bucket first and
// spilling into on-hold. With fromHold set, only the on-hold bucket is
// touched. Reports how much each bucket paid so a caller can restore a
// failed operation bucket for bucket. Fails without mutating when the
// covered buckets cannot pay.
func (l *Ledger) Burn(account domain.Account, amount decimal.Decimal, fromHold bool) (fromEligible, fromOnHold decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, errors.Wrap(domain.ErrInvariant, "burn amount must be positive")
	}
	p := l.pos(account)
	l.realize(p)

	if fromHold {
		if p.onHold.LessThan(amount) {
			return decimal.Zero, decimal.Zero, errors.Wrapf(domain.ErrInsufficientBalance, "burn %s from on-hold %s", amount, p.onHold)
		}
		p.onHold = p.onHold.Sub(amount)
		l.onHoldSupply = l.onHoldSupply.Sub(amount)
		if p.onHold.IsZero() {
			l.releaseStamp(p.stamp)
		}
		return decimal.Zero, amount, nil
	}

	if p.eligible.Add(p.onHold).LessThan(amount) {
		return decimal.Zero, decimal.Zero, errors.Wrapf(domain.ErrInsufficientBalance, "burn %s exceeds balance %s", amount, p.eligible.Add(p.onHold))
	}
	fromEligible = decimal.Min(p.eligible, amount)
	spill := amount.Sub(fromEligible)
	p.eligible = p.eligible.Sub(fromEligible)
	l.eligibleSupply = l.eligibleSupply.Sub(fromEligible)
	if spill.IsPositive() {
		p.onHold = p.onHold.Sub(spill)
		l.onHoldSupply = l.onHoldSupply.Sub(spill)
		if p.onHold.IsZero() {
			l.releaseStamp(p.stamp)
		}
	}
	return fromEligible, spill, nil
}

// MarkAllEligible closes the current epoch: every on-hold balance
// becomes eligible from this point on. O(1) regardless of holder count.
func (l *Ledger) MarkAllEligible() {
	if l.onHoldSupply.IsZero() {
		return
	}
	if l.stampRefs[l.epoch] > 0 {
		l.cuts[l.epoch] = l.index
	}
	l.eligibleSupply = l.eligibleSupply.Add(l.onHoldSupply)
	l.onHoldSupply = decimal.Zero
	l.epoch++
}

// Distribute credits yield to all eligible holders by advancing the
// cumulative index. With zero eligible supply the amount is carried
// forward undistributed instead of being divided by zero.
func (l *Ledger) Distribute(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, errors.Wrap(domain.ErrInvariant, "negative distribution")
	}
	total := l.undistributed.Add(amount)
	if total.IsZero() {
		return l.index, nil
	}
	if l.eligibleSupply.IsZero() {
		l.undistributed = total
		return l.index, nil
	}
	delta, _ := total.QuoRem(l.eligibleSupply, indexScale)
	l.index = l.index.Add(delta)
	// residue below index precision carries to the next distribution
	l.undistributed = total.Sub(delta.Mul(l.eligibleSupply))
	return l.index, nil
}

// Claim realizes and withdraws the account's credited distribution
// balance, zeroing it.
func (l *Ledger) Claim(account domain.Account) decimal.Decimal {
	p := l.pos(account)
	l.realize(p)
	owed := p.realized
	p.realized = decimal.Zero
	return owed
}

// view computes the position's effective buckets without mutating it.
func (l *Ledger) view(account domain.Account) (eligible, onHold, realized decimal.Decimal) {
	p, ok := l.positions[account]
	if !ok {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}
	eligible, onHold, realized = p.eligible, p.onHold, p.realized
	last := p.lastIndex
	if onHold.IsPositive() && p.stamp < l.epoch {
		cut := l.cuts[p.stamp]
		realized = realized.Add(eligible.Mul(cut.Sub(last)).Truncate(indexScale))
		eligible = eligible.Add(onHold)
		onHold = decimal.Zero
		last = cut
	}
	realized = realized.Add(eligible.Mul(l.index.Sub(last)).Truncate(indexScale))
	return eligible, onHold, realized
}

// EligibleOf returns the account's eligible share balance.
func (l *Ledger) EligibleOf(account domain.Account) decimal.Decimal {
	eligible, _, _ := l.view(account)
	return eligible
}

// OnHoldOf returns the account's on-hold share balance.
func (l *Ledger) OnHoldOf(account domain.Account) decimal.Decimal {
	_, onHold, _ := l.view(account)
	return onHold
}

// BalanceOf returns eligible plus on-hold shares.
func (l *Ledger) BalanceOf(account domain.Account) decimal.Decimal {
	eligible, onHold, _ := l.view(account)
	return eligible.Add(onHold)
}

// RealizedOf returns the distribution balance the account could claim
// right now.
func (l *Ledger) RealizedOf(account domain.Account) decimal.Decimal {
	_, _, realized := l.view(account)
	return realized
}

// EligibleSupply returns the total supply participating in
// distribution.
func (l *Ledger) EligibleSupply() decimal.Decimal {
	return l.eligibleSupply
}

// TotalSupply returns eligible plus on-hold supply. Changes only via
// Mint and Burn.
func (l *Ledger) TotalSupply() decimal.Decimal {
	return l.eligibleSupply.Add(l.onHoldSupply)
}

// Index returns the current cumulative yield index.
func (l *Ledger) Index() decimal.Decimal {
	return l.index
}

// Undistributed returns yield carried forward from distributions that
// found no eligible supply.
func (l *Ledger) Undistributed() decimal.Decimal {
	return l.undistributed
}
