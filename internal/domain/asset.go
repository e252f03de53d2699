package domain

import "github.com/shopspring/decimal"

// Asset names a fungible asset accepted by a vault. Transfer semantics
// belong to the transfer boundary; the core never assumes decimals or
// any other intrinsic property.
type Asset string

func (a Asset) String() string {
	return string(a)
}

// AssetAmount pairs an asset with an amount, used by the savings layer
// for multi-asset deposits and withdrawals.
type AssetAmount struct {
	Asset  Asset
	Amount decimal.Decimal
}
