package domain

import "github.com/pkg/errors"

var (
	// ErrUnauthorized is returned when a privileged call is made without
	// the operator capability. Checked before any other state is read.
	ErrUnauthorized = errors.New("operator capability required")

	// ErrInsufficientBalance is returned when a ledger bucket cannot
	// cover a burn or withdrawal. The whole enclosing call aborts.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownAsset is returned for assets a vault never registered.
	ErrUnknownAsset = errors.New("asset is not registered")

	// ErrUnknownVault is returned for vault IDs the savings layer does
	// not know.
	ErrUnknownVault = errors.New("vault is not registered")

	// ErrInvariant signals arithmetic that would corrupt the books: a
	// negative balance, a supply mismatch. Never clamped, always fatal
	// for the enclosing operation.
	ErrInvariant = errors.New("ledger invariant violated")
)
