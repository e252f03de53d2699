// Package savings is the user-facing layer: it routes deposits and
// withdrawals to registered vaults, couples every vault movement to
// share minting and burning, and turns harvested strategy gains into
// share-ledger distributions.
package savings

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/savium/savium/internal/domain"
	"github.com/savium/savium/internal/shares"
	"github.com/savium/savium/internal/vault"
)

// normScale bounds the precision of normalized share amounts.
const normScale = 18

type recorder interface {
	Append(e domain.Event) error
}

type entry struct {
	vault   *vault.Vault
	shares  *shares.Ledger
	weights map[domain.Asset]decimal.Decimal
}

// Orchestrator ties vaults and share ledgers together. One share unit
// represents one weighted unit of deposited value; per-asset weights
// are configuration, not ledger state.
type Orchestrator struct {
	logger   *zap.Logger
	operator domain.OperatorToken
	rec      recorder
	vaults   map[string]*entry
}

func New(logger *zap.Logger, operator domain.OperatorToken, rec recorder) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		logger:   logger,
		operator: operator,
		rec:      rec,
		vaults:   make(map[string]*entry),
	}
}

// Register adds a vault with its share ledger and normalization
// weights. Every registered asset needs a positive weight.
func (o *Orchestrator) Register(v *vault.Vault, sl *shares.Ledger, weights map[domain.Asset]decimal.Decimal) error {
	if v == nil || sl == nil {
		return errors.New("vault and share ledger are required")
	}
	if _, exists := o.vaults[v.ID()]; exists {
		return errors.Errorf("vault %s already registered", v.ID())
	}
	ws := make(map[domain.Asset]decimal.Decimal, len(weights))
	for _, asset := range v.Assets() {
		w, ok := weights[asset]
		if !ok || !w.IsPositive() {
			return errors.Errorf("vault %s asset %s needs a positive weight", v.ID(), asset)
		}
		ws[asset] = w
	}
	o.vaults[v.ID()] = &entry{vault: v, shares: sl, weights: ws}
	return nil
}

func (o *Orchestrator) entryFor(vaultID string) (*entry, error) {
	e, ok := o.vaults[vaultID]
	if !ok {
		return nil, errors.Wrap(domain.ErrUnknownVault, vaultID)
	}
	return e, nil
}

// normalize converts asset amounts into share units via the configured
// weights.
func (e *entry) normalize(pairs []domain.AssetAmount) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range pairs {
		w, ok := e.weights[p.Asset]
		if !ok {
			return decimal.Zero, errors.Wrap(domain.ErrUnknownAsset, p.Asset.String())
		}
		if !p.Amount.IsPositive() {
			return decimal.Zero, errors.Wrapf(domain.ErrInvariant, "amount %s of %s", p.Amount, p.Asset)
		}
		total = total.Add(p.Amount.Mul(w))
	}
	return total, nil
}

// Deposit routes the asset amounts into the vault and mints the
// normalized share amount on hold. Returns the minted share amount.
func (o *Orchestrator) Deposit(ctx context.Context, account domain.Account, vaultID string, pairs []domain.AssetAmount) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	minted, err := e.normalize(pairs)
	if err != nil {
		return decimal.Zero, err
	}
	if err := e.vault.DepositBatch(ctx, account, pairs); err != nil {
		return decimal.Zero, err
	}
	if err := e.shares.Mint(account, minted, true); err != nil {
		return decimal.Zero, err
	}
	o.logger.Info("deposit",
		zap.String("vault", vaultID),
		zap.String("account", account.Hex()),
		zap.String("shares_minted", minted.String()))
	return minted, nil
}

// WithdrawOutcome reports the per-asset split between funds paid
// immediately and funds queued as a request.
type WithdrawOutcome struct {
	Asset  domain.Asset
	Paid   decimal.Decimal
	Queued decimal.Decimal
}

// Withdraw burns the combined normalized share amount first — the whole
// call fails before touching any vault when the account's shares cannot
// cover it — then withdraws each asset. With quick set, shortfalls are
// divested immediately instead of queued and the caller absorbs the
// strategy's exit cost.
func (o *Orchestrator) Withdraw(ctx context.Context, account domain.Account, vaultID string, pairs []domain.AssetAmount, quick bool) ([]WithdrawOutcome, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return nil, err
	}
	burned, err := e.normalize(pairs)
	if err != nil {
		return nil, err
	}
	if e.shares.BalanceOf(account).LessThan(burned) {
		return nil, errors.Wrapf(domain.ErrInsufficientBalance,
			"withdraw needs %s shares, account holds %s", burned, e.shares.BalanceOf(account))
	}
	burnedEligible, _, err := e.shares.Burn(account, burned, false)
	if err != nil {
		return nil, err
	}

	outcomes := make([]WithdrawOutcome, 0, len(pairs))
	for i, p := range pairs {
		var (
			paid, queued decimal.Decimal
			werr         error
		)
		if quick {
			paid, werr = e.vault.QuickWithdraw(ctx, account, p.Asset, p.Amount)
		} else {
			paid, queued, werr = e.vault.Withdraw(ctx, account, p.Asset, p.Amount)
		}
		if werr != nil {
			// restore shares for the assets that never executed so the
			// account keeps its claim on them. Each portion goes back to
			// the bucket the burn took it from: shares burned out of
			// on-hold must not come back eligible.
			remainder, nerr := e.normalize(pairs[i:])
			if nerr == nil && remainder.IsPositive() {
				restoreEligible := decimal.Min(remainder, burnedEligible)
				restoreHold := remainder.Sub(restoreEligible)
				if restoreEligible.IsPositive() {
					if merr := e.shares.Mint(account, restoreEligible, false); merr != nil {
						o.logger.Error("share restore failed", zap.Error(merr))
					}
				}
				if restoreHold.IsPositive() {
					if merr := e.shares.Mint(account, restoreHold, true); merr != nil {
						o.logger.Error("share restore failed", zap.Error(merr))
					}
				}
			}
			return outcomes, werr
		}
		outcomes = append(outcomes, WithdrawOutcome{Asset: p.Asset, Paid: paid, Queued: queued})
	}
	o.logger.Info("withdraw",
		zap.String("vault", vaultID),
		zap.String("account", account.Hex()),
		zap.String("shares_burned", burned.String()),
		zap.Bool("quick", quick))
	return outcomes, nil
}

// DistributeYield harvests each asset's strategy gain, normalizes it
// and advances the share ledger's distribution index. Permissionless:
// measurement is monotone, so extra calls are no-ops.
func (o *Orchestrator) DistributeYield(ctx context.Context, vaultID string) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, asset := range e.vault.Assets() {
		gain, err := e.vault.HarvestGain(ctx, asset)
		if err != nil {
			return decimal.Zero, err
		}
		if gain.IsPositive() {
			total = total.Add(gain.Mul(e.weights[asset]))
		}
	}
	if total.IsZero() && e.shares.Undistributed().IsZero() {
		return decimal.Zero, nil
	}
	newIndex, err := e.shares.Distribute(total)
	if err != nil {
		return decimal.Zero, err
	}
	if o.rec != nil {
		if rerr := o.rec.Append(domain.YieldDistributed{VaultID: vaultID, Amount: total, NewIndex: newIndex, At: time.Now()}); rerr != nil {
			o.logger.Error("journal append failed", zap.Error(rerr))
		}
	}
	o.logger.Info("yield distributed",
		zap.String("vault", vaultID),
		zap.String("amount", total.String()),
		zap.String("index", newIndex.String()))
	return total, nil
}

// HandleOperatorActions settles the vault, flips the settled on-hold
// shares to eligible and distributes yield measured on the
// post-settlement balance, in one serialized operation.
func (o *Orchestrator) HandleOperatorActions(ctx context.Context, tok domain.OperatorToken, vaultID string) (vault.Report, error) {
	if !tok.Matches(o.operator) {
		return vault.Report{}, errors.Wrap(domain.ErrUnauthorized, "operator actions")
	}
	e, err := o.entryFor(vaultID)
	if err != nil {
		return vault.Report{}, err
	}
	report, err := e.vault.Settle(ctx, tok)
	if err != nil {
		// shares stay on hold; the next successful run flips them
		return report, err
	}
	e.shares.MarkAllEligible()
	if _, err := o.DistributeYield(ctx, vaultID); err != nil {
		return report, err
	}
	return report, nil
}

// ClaimYield pays the account's realized distribution balance in the
// chosen asset, divesting any vault shortfall. Residue below the
// normalization precision stays in the vault as dust.
func (o *Orchestrator) ClaimYield(ctx context.Context, account domain.Account, vaultID string, asset domain.Asset) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	w, ok := e.weights[asset]
	if !ok {
		return decimal.Zero, errors.Wrap(domain.ErrUnknownAsset, asset.String())
	}
	owed := e.shares.RealizedOf(account)
	if owed.IsZero() {
		return decimal.Zero, nil
	}
	assetAmt, _ := owed.QuoRem(w, normScale)
	if !assetAmt.IsPositive() {
		return decimal.Zero, nil
	}
	if err := e.vault.PayOut(ctx, account, asset, assetAmt); err != nil {
		return decimal.Zero, err
	}
	e.shares.Claim(account)
	o.logger.Info("yield claimed",
		zap.String("vault", vaultID),
		zap.String("account", account.Hex()),
		zap.String("asset", asset.String()),
		zap.String("amount", assetAmt.String()))
	return assetAmt, nil
}

// ClaimWithdrawal pays out the account's resolved withdrawal claim.
func (o *Orchestrator) ClaimWithdrawal(ctx context.Context, account domain.Account, vaultID string, asset domain.Asset) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.vault.Claim(ctx, account, asset)
}

// OnHoldBalance returns the account's on-hold deposit for the asset.
func (o *Orchestrator) OnHoldBalance(vaultID string, account domain.Account, asset domain.Asset) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.vault.OnHoldBalance(account, asset), nil
}

// RequestedBalance returns the account's pending request amount.
func (o *Orchestrator) RequestedBalance(vaultID string, account domain.Account, asset domain.Asset) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.vault.RequestedBalance(account, asset), nil
}

// ClaimableBalance returns the account's earmarked claim amount.
func (o *Orchestrator) ClaimableBalance(vaultID string, account domain.Account, asset domain.Asset) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.vault.ClaimableBalance(account, asset), nil
}

// EligibleShareBalance returns the account's eligible shares.
func (o *Orchestrator) EligibleShareBalance(vaultID string, account domain.Account) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.shares.EligibleOf(account), nil
}

// TotalEligibleSupply returns the supply participating in distribution.
func (o *Orchestrator) TotalEligibleSupply(vaultID string) (decimal.Decimal, error) {
	e, err := o.entryFor(vaultID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.shares.EligibleSupply(), nil
}
