// Package domain holds the core identities, amounts, events and error
// taxonomy shared by the vault, share ledger and savings layers.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Account identifies a depositor or operator. Accounts are chain
// addresses; the ledger stores nothing about them beyond their entries.
type Account = common.Address

// AccountFromHex parses a hex-encoded account address.
func AccountFromHex(s string) Account {
	return common.HexToAddress(s)
}

// OperatorToken is the capability required for privileged operations
// (settlement, operator actions). It is issued once at wiring time and
// passed explicitly instead of living in ambient global state, so tests
// can run several simulated operators side by side.
type OperatorToken struct {
	id uuid.UUID
}

// NewOperatorToken mints a fresh capability token.
func NewOperatorToken() OperatorToken {
	return OperatorToken{id: uuid.New()}
}

// Matches reports whether two tokens are the same capability.
func (t OperatorToken) Matches(other OperatorToken) bool {
	return t.id == other.id
}

// String returns a short identifier for logs.
func (t OperatorToken) String() string {
	return t.id.String()[:8]
}
