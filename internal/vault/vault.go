// Package vault owns real asset balances and drives the deposit,
// withdrawal and settlement protocol over the asset ledger and the
// configured yield strategy.
//
// Every operation follows the same shape: read and validate, perform
// the external collaborator call, then commit ledger writes. No ledger
// state is visible in-flight to a collaborator, and a collaborator
// failure leaves the books exactly as they were.
package vault

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/savium/savium/internal/domain"
	"github.com/savium/savium/internal/ledger"
	"github.com/savium/savium/internal/strategy"
	"github.com/savium/savium/internal/transfer"
)

// recorder receives journaled events. The event log is observability,
// not bookkeeping: append failures are logged, never rolled back into
// the ledgers.
type recorder interface {
	Append(e domain.Event) error
}

// Vault custodies one pool of assets for many depositors.
type Vault struct {
	id       string
	logger   *zap.Logger
	operator domain.OperatorToken

	assets []domain.Asset
	agents map[domain.Asset]transfer.Agent
	strat  strategy.Strategy
	books  *ledger.Ledger
	rec    recorder

	// cash is custody balance per asset; principal is the amount
	// currently deployed to the strategy, marked up when yield is
	// harvested.
	cash      map[domain.Asset]decimal.Decimal
	principal map[domain.Asset]decimal.Decimal
}

// New builds a vault over the given transfer agents and strategy.
// Privileged calls require the operator token passed here.
func New(id string, logger *zap.Logger, operator domain.OperatorToken,
	agents map[domain.Asset]transfer.Agent, strat strategy.Strategy, rec recorder) (*Vault, error) {

	if logger == nil {
		logger = zap.NewNop()
	}
	if len(agents) == 0 {
		return nil, errors.New("vault needs at least one registered asset")
	}
	if strat == nil {
		return nil, errors.New("vault needs a strategy (use strategy.NewNone for idle-only vaults)")
	}

	v := &Vault{
		id:        id,
		logger:    logger,
		operator:  operator,
		agents:    make(map[domain.Asset]transfer.Agent, len(agents)),
		strat:     strat,
		books:     ledger.New(),
		rec:       rec,
		cash:      make(map[domain.Asset]decimal.Decimal),
		principal: make(map[domain.Asset]decimal.Decimal),
	}
	for asset, agent := range agents {
		v.agents[asset] = agent
		v.assets = append(v.assets, asset)
	}
	sort.Slice(v.assets, func(i, j int) bool { return v.assets[i] < v.assets[j] })
	return v, nil
}

// ID returns the vault identifier.
func (v *Vault) ID() string { return v.id }

// Assets returns the registered assets in deterministic order.
func (v *Vault) Assets() []domain.Asset {
	out := make([]domain.Asset, len(v.assets))
	copy(out, v.assets)
	return out
}

func (v *Vault) agent(asset domain.Asset) (transfer.Agent, error) {
	a, ok := v.agents[asset]
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnknownAsset, "%s in vault %s", asset, v.id)
	}
	return a, nil
}

// freeLiquidity is idle cash not spoken for by anyone's on-hold
// deposits or earmarked claims.
func (v *Vault) freeLiquidity(asset domain.Asset) (decimal.Decimal, error) {
	free := v.cash[asset].Sub(v.books.OnHoldTotal(asset)).Sub(v.books.ClaimableTotal(asset))
	if free.IsNegative() {
		return decimal.Zero, errors.Wrapf(domain.ErrInvariant,
			"free liquidity for %s is %s", asset, free)
	}
	return free, nil
}

func (v *Vault) record(e domain.Event) {
	if v.rec == nil {
		return
	}
	if err := v.rec.Append(e); err != nil {
		v.logger.Error("journal append failed",
			zap.String("vault", v.id),
			zap.String("kind", e.Kind()),
			zap.Error(err))
	}
}

// Deposit pulls amount of asset from the account into custody and puts
// it on hold until the next settlement.
func (v *Vault) Deposit(ctx context.Context, account domain.Account, asset domain.Asset, amount decimal.Decimal) error {
	return v.DepositBatch(ctx, account, []domain.AssetAmount{{Asset: asset, Amount: amount}})
}

// DepositBatch pulls several assets in one all-or-nothing call. If any
// transfer fails, the already pulled ones are returned and nothing is
// recorded.
func (v *Vault) DepositBatch(ctx context.Context, account domain.Account, pairs []domain.AssetAmount) error {
	if len(pairs) == 0 {
		return errors.New("deposit needs at least one asset amount")
	}
	for _, p := range pairs {
		if !p.Amount.IsPositive() {
			return errors.Wrapf(domain.ErrInvariant, "deposit amount %s of %s", p.Amount, p.Asset)
		}
		if _, err := v.agent(p.Asset); err != nil {
			return err
		}
	}

	for i, p := range pairs {
		agent := v.agents[p.Asset]
		if err := agent.TransferIn(ctx, account, p.Amount); err != nil {
			for j := i - 1; j >= 0; j-- {
				refund := pairs[j]
				if rerr := v.agents[refund.Asset].TransferOut(ctx, account, refund.Amount); rerr != nil {
					v.logger.Error("deposit refund failed",
						zap.String("vault", v.id),
						zap.String("asset", refund.Asset.String()),
						zap.String("amount", refund.Amount.String()),
						zap.Error(rerr))
				}
			}
			return errors.Wrapf(err, "pull %s of %s from %s", p.Amount, p.Asset, account.Hex())
		}
	}

	now := time.Now()
	for _, p := range pairs {
		v.cash[p.Asset] = v.cash[p.Asset].Add(p.Amount)
		if err := v.books.AddOnHold(account, p.Asset, p.Amount); err != nil {
			return err
		}
		v.record(domain.DepositRecorded{Account: account, Asset: p.Asset, Amount: p.Amount, At: now})
		v.logger.Info("deposit recorded",
			zap.String("vault", v.id),
			zap.String("account", account.Hex()),
			zap.String("asset", p.Asset.String()),
			zap.String("amount", p.Amount.String()))
	}
	return nil
}

// Withdraw pays the account from its own on-hold funds first, then from
// free idle liquidity, and queues whatever remains as a request.
// Liquidity shortfall is not a failure: paid + queued always equals the
// requested amount.
func (v *Vault) Withdraw(ctx context.Context, account domain.Account, asset domain.Asset, amount decimal.Decimal) (paid, queued decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, errors.Wrapf(domain.ErrInvariant, "withdraw amount %s", amount)
	}
	agent, err := v.agent(asset)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	fromHold := decimal.Min(v.books.OnHold(account, asset), amount)
	remaining := amount.Sub(fromHold)
	free, err := v.freeLiquidity(asset)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	fromIdle := decimal.Min(free, remaining)
	remaining = remaining.Sub(fromIdle)
	paid = fromHold.Add(fromIdle)

	if paid.IsPositive() {
		if err := agent.TransferOut(ctx, account, paid); err != nil {
			return decimal.Zero, decimal.Zero, errors.Wrapf(err, "pay out %s of %s", paid, asset)
		}
	}

	now := time.Now()
	if err := v.books.TakeOnHold(account, asset, fromHold); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	v.cash[asset] = v.cash[asset].Sub(paid)
	if paid.IsPositive() {
		v.record(domain.WithdrawImmediate{Account: account, Asset: asset, Amount: paid, At: now})
	}
	if remaining.IsPositive() {
		req, rerr := v.books.AddRequest(account, asset, remaining)
		if rerr != nil {
			return paid, decimal.Zero, rerr
		}
		v.record(domain.WithdrawRequestCreated{RequestID: req.ID, Account: account, Asset: asset, Amount: remaining, At: now})
	}
	v.logger.Info("withdraw",
		zap.String("vault", v.id),
		zap.String("account", account.Hex()),
		zap.String("asset", asset.String()),
		zap.String("paid", paid.String()),
		zap.String("queued", remaining.String()))
	return paid, remaining, nil
}

// QuickWithdraw bypasses the request queue by divesting any shortfall
// immediately. The caller absorbs the strategy's exit cost: the amount
// paid may be less than asked, and nothing is queued.
func (v *Vault) QuickWithdraw(ctx context.Context, account domain.Account, asset domain.Asset, amount decimal.Decimal) (paid decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, errors.Wrapf(domain.ErrInvariant, "withdraw amount %s", amount)
	}
	agent, err := v.agent(asset)
	if err != nil {
		return decimal.Zero, err
	}

	fromHold := decimal.Min(v.books.OnHold(account, asset), amount)
	remaining := amount.Sub(fromHold)
	free, err := v.freeLiquidity(asset)
	if err != nil {
		return decimal.Zero, err
	}
	fromIdle := decimal.Min(free, remaining)
	shortfall := remaining.Sub(fromIdle)

	returned := decimal.Zero
	if shortfall.IsPositive() {
		returned, err = v.strat.Divest(ctx, asset, shortfall)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "divest %s of %s", shortfall, asset)
		}
	}
	paid = fromHold.Add(fromIdle).Add(returned)

	if paid.IsPositive() {
		if err := agent.TransferOut(ctx, account, paid); err != nil {
			// the divested funds are already back in custody; keep the
			// books consistent with that before surfacing the failure
			if returned.IsPositive() {
				v.cash[asset] = v.cash[asset].Add(returned)
				v.principal[asset] = decimal.Max(decimal.Zero, v.principal[asset].Sub(shortfall))
			}
			return decimal.Zero, errors.Wrapf(err, "pay out %s of %s", paid, asset)
		}
	}

	now := time.Now()
	if err := v.books.TakeOnHold(account, asset, fromHold); err != nil {
		return decimal.Zero, err
	}
	v.cash[asset] = v.cash[asset].Add(returned).Sub(paid)
	if shortfall.IsPositive() {
		v.principal[asset] = decimal.Max(decimal.Zero, v.principal[asset].Sub(shortfall))
		v.record(domain.SettlementDivested{Asset: asset, Amount: shortfall, Returned: returned, At: now})
	}
	if paid.IsPositive() {
		v.record(domain.WithdrawImmediate{Account: account, Asset: asset, Amount: paid, At: now})
	}
	v.logger.Info("quick withdraw",
		zap.String("vault", v.id),
		zap.String("account", account.Hex()),
		zap.String("asset", asset.String()),
		zap.String("asked", amount.String()),
		zap.String("paid", paid.String()))
	return paid, nil
}

// Claim pays out the account's earmarked claimable entry.
func (v *Vault) Claim(ctx context.Context, account domain.Account, asset domain.Asset) (decimal.Decimal, error) {
	agent, err := v.agent(asset)
	if err != nil {
		return decimal.Zero, err
	}
	amt := v.books.Claimable(account, asset)
	if amt.IsZero() {
		return decimal.Zero, nil
	}
	if err := agent.TransferOut(ctx, account, amt); err != nil {
		return decimal.Zero, errors.Wrapf(err, "pay claim %s of %s", amt, asset)
	}
	v.books.TakeClaimable(account, asset)
	v.cash[asset] = v.cash[asset].Sub(amt)
	v.record(domain.ClaimPaid{Account: account, Asset: asset, Amount: amt, At: time.Now()})
	return amt, nil
}

// OnHoldBalance returns the account's on-hold amount.
func (v *Vault) OnHoldBalance(account domain.Account, asset domain.Asset) decimal.Decimal {
	return v.books.OnHold(account, asset)
}

// RequestedBalance returns the account's pending withdrawal request.
func (v *Vault) RequestedBalance(account domain.Account, asset domain.Asset) decimal.Decimal {
	return v.books.Requested(account, asset)
}

// ClaimableBalance returns the account's earmarked claim.
func (v *Vault) ClaimableBalance(account domain.Account, asset domain.Asset) decimal.Decimal {
	return v.books.Claimable(account, asset)
}

// IdleBalance returns custody cash for the asset.
func (v *Vault) IdleBalance(asset domain.Asset) decimal.Decimal {
	return v.cash[asset]
}

// Principal returns the amount tracked as deployed to the strategy.
func (v *Vault) Principal(asset domain.Asset) decimal.Decimal {
	return v.principal[asset]
}

// InvestedValue reports the strategy's current valuation.
func (v *Vault) InvestedValue(ctx context.Context, asset domain.Asset) (decimal.Decimal, error) {
	return v.strat.ReportedValue(ctx, asset)
}
