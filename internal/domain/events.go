package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is emitted by the vault and savings layers for external
// indexing. Events are journaled in the order they are applied.
type Event interface {
	Kind() string
}

const (
	KindDepositRecorded         = "deposit_recorded"
	KindWithdrawImmediate       = "withdraw_immediate"
	KindWithdrawRequestCreated  = "withdraw_request_created"
	KindWithdrawRequestResolved = "withdraw_request_resolved"
	KindSettlementInvested      = "settlement_invested"
	KindSettlementDivested      = "settlement_divested"
	KindYieldDistributed        = "yield_distributed"
	KindClaimPaid               = "claim_paid"
)

// DepositRecorded marks funds pulled into vault custody and put on hold.
type DepositRecorded struct {
	Account Account         `json:"account"`
	Asset   Asset           `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
	At      time.Time       `json:"at"`
}

func (DepositRecorded) Kind() string { return KindDepositRecorded }

// WithdrawImmediate marks a withdrawal (or part of one) paid directly
// from on-hold funds or idle liquidity.
type WithdrawImmediate struct {
	Account Account         `json:"account"`
	Asset   Asset           `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
	At      time.Time       `json:"at"`
}

func (WithdrawImmediate) Kind() string { return KindWithdrawImmediate }

// WithdrawRequestCreated marks the queued remainder of a withdrawal
// that idle liquidity could not cover. Not a failure: the claim stays
// valid until a later settlement resolves it.
type WithdrawRequestCreated struct {
	RequestID string          `json:"request_id"`
	Account   Account         `json:"account"`
	Asset     Asset           `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	At        time.Time       `json:"at"`
}

func (WithdrawRequestCreated) Kind() string { return KindWithdrawRequestCreated }

// WithdrawRequestResolved marks a pending request converted into a
// claimable entry during settlement.
type WithdrawRequestResolved struct {
	RequestID string          `json:"request_id"`
	Account   Account         `json:"account"`
	Asset     Asset           `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	At        time.Time       `json:"at"`
}

func (WithdrawRequestResolved) Kind() string { return KindWithdrawRequestResolved }

// SettlementInvested marks aggregated on-hold funds deployed to the
// strategy.
type SettlementInvested struct {
	Asset  Asset           `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	At     time.Time       `json:"at"`
}

func (SettlementInvested) Kind() string { return KindSettlementInvested }

// SettlementDivested marks liquidity pulled back from the strategy to
// cover outstanding requests or a yield payout.
type SettlementDivested struct {
	Asset    Asset           `json:"asset"`
	Amount   decimal.Decimal `json:"amount"`
	Returned decimal.Decimal `json:"returned"`
	At       time.Time       `json:"at"`
}

func (SettlementDivested) Kind() string { return KindSettlementDivested }

// YieldDistributed marks a strategy gain credited to the share ledger.
type YieldDistributed struct {
	VaultID  string          `json:"vault_id"`
	Amount   decimal.Decimal `json:"amount"`
	NewIndex decimal.Decimal `json:"new_index"`
	At       time.Time       `json:"at"`
}

func (YieldDistributed) Kind() string { return KindYieldDistributed }

// ClaimPaid marks an earmarked claimable entry transferred out.
type ClaimPaid struct {
	Account Account         `json:"account"`
	Asset   Asset           `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
	At      time.Time       `json:"at"`
}

func (ClaimPaid) Kind() string { return KindClaimPaid }
