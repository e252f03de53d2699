package vault

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/savium/savium/internal/domain"
)

// AssetReport summarizes one asset's settlement outcome.
type AssetReport struct {
	Asset    domain.Asset
	Invested decimal.Decimal
	Divested decimal.Decimal
	Returned decimal.Decimal
	Resolved int
}

// Report summarizes a settlement run.
type Report struct {
	Assets []AssetReport
}

// Settle reconciles the vault against the strategy: aggregated on-hold
// deposits are invested, and outstanding withdrawal requests are
// resolved from free liquidity, divesting any shortfall first.
//
// Per asset the call is all-or-nothing: a strategy failure aborts the
// run with that asset's books untouched, and pending requests stay
// pending. Settling twice with no intervening activity is a no-op.
func (v *Vault) Settle(ctx context.Context, tok domain.OperatorToken) (Report, error) {
	if !tok.Matches(v.operator) {
		return Report{}, errors.Wrapf(domain.ErrUnauthorized, "settle vault %s", v.id)
	}

	var report Report
	for _, asset := range v.assets {
		ar, err := v.settleAsset(ctx, asset)
		if err != nil {
			return report, err
		}
		report.Assets = append(report.Assets, ar)
	}
	return report, nil
}

func (v *Vault) settleAsset(ctx context.Context, asset domain.Asset) (AssetReport, error) {
	ar := AssetReport{Asset: asset}
	now := time.Now()

	toInvest := v.books.OnHoldTotal(asset)
	if toInvest.IsPositive() {
		if err := v.strat.Invest(ctx, asset, toInvest); err != nil {
			return ar, errors.Wrapf(err, "invest %s of %s", toInvest, asset)
		}
		v.cash[asset] = v.cash[asset].Sub(toInvest)
		v.principal[asset] = v.principal[asset].Add(toInvest)
		v.books.BumpEpoch(asset)
		v.record(domain.SettlementInvested{Asset: asset, Amount: toInvest, At: now})
		ar.Invested = toInvest
		v.logger.Info("settlement invested",
			zap.String("vault", v.id),
			zap.String("asset", asset.String()),
			zap.String("amount", toInvest.String()))
	}

	outstanding := v.books.RequestedTotal(asset)
	if !outstanding.IsPositive() {
		return ar, nil
	}

	free, err := v.freeLiquidity(asset)
	if err != nil {
		return ar, err
	}
	if free.LessThan(outstanding) {
		need := outstanding.Sub(free)
		returned, err := v.strat.Divest(ctx, asset, need)
		if err != nil {
			// requests remain pending; nothing was committed
			return ar, errors.Wrapf(err, "divest %s of %s", need, asset)
		}
		v.cash[asset] = v.cash[asset].Add(returned)
		v.principal[asset] = decimal.Max(decimal.Zero, v.principal[asset].Sub(need))
		v.record(domain.SettlementDivested{Asset: asset, Amount: need, Returned: returned, At: now})
		ar.Divested = need
		ar.Returned = returned
		free, err = v.freeLiquidity(asset)
		if err != nil {
			return ar, err
		}
	}

	// requests resolve whole or not at all, in creation order; the
	// first one free liquidity cannot cover stops the pass
	for _, req := range v.books.Requests(asset) {
		if free.LessThan(req.Amount) {
			break
		}
		if err := v.books.Resolve(req); err != nil {
			return ar, err
		}
		free = free.Sub(req.Amount)
		ar.Resolved++
		v.record(domain.WithdrawRequestResolved{RequestID: req.ID, Account: req.Account, Asset: asset, Amount: req.Amount, At: now})
		v.logger.Info("withdraw request resolved",
			zap.String("vault", v.id),
			zap.String("account", req.Account.Hex()),
			zap.String("asset", asset.String()),
			zap.String("amount", req.Amount.String()))
	}
	return ar, nil
}

// HarvestGain measures the strategy's value growth above the tracked
// principal and marks the principal up to the reported value. Losses
// are not harvested: the principal acts as a high-water mark, so later
// recovery is not double counted as yield.
func (v *Vault) HarvestGain(ctx context.Context, asset domain.Asset) (decimal.Decimal, error) {
	if _, err := v.agent(asset); err != nil {
		return decimal.Zero, err
	}
	reported, err := v.strat.ReportedValue(ctx, asset)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "reported value of %s", asset)
	}
	gain := reported.Sub(v.principal[asset])
	if !gain.IsPositive() {
		return decimal.Zero, nil
	}
	v.principal[asset] = reported
	return gain, nil
}

// PayOut transfers amount of asset to the account from free liquidity,
// divesting any shortfall. Used by the savings layer to pay realized
// yield. Fails without paying if the strategy cannot return enough.
func (v *Vault) PayOut(ctx context.Context, account domain.Account, asset domain.Asset, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.Wrapf(domain.ErrInvariant, "payout amount %s", amount)
	}
	agent, err := v.agent(asset)
	if err != nil {
		return err
	}
	free, err := v.freeLiquidity(asset)
	if err != nil {
		return err
	}

	returned := decimal.Zero
	shortfall := decimal.Zero
	if free.LessThan(amount) {
		shortfall = amount.Sub(free)
		returned, err = v.strat.Divest(ctx, asset, shortfall)
		if err != nil {
			return errors.Wrapf(err, "divest %s of %s", shortfall, asset)
		}
		v.cash[asset] = v.cash[asset].Add(returned)
		v.principal[asset] = decimal.Max(decimal.Zero, v.principal[asset].Sub(shortfall))
		v.record(domain.SettlementDivested{Asset: asset, Amount: shortfall, Returned: returned, At: time.Now()})
		if free.Add(returned).LessThan(amount) {
			return errors.Wrapf(domain.ErrInsufficientBalance,
				"payout %s of %s: strategy returned %s for %s", amount, asset, returned, shortfall)
		}
	}

	if err := agent.TransferOut(ctx, account, amount); err != nil {
		return errors.Wrapf(err, "pay out %s of %s", amount, asset)
	}
	v.cash[asset] = v.cash[asset].Sub(amount)
	v.record(domain.ClaimPaid{Account: account, Asset: asset, Amount: amount, At: time.Now()})
	return nil
}
