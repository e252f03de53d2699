package transfer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/savium/savium/internal/domain"
)

var (
	custody = domain.AccountFromHex("0x00000000000000000000000000000000000000cc")
	alice   = domain.AccountFromHex("0x00000000000000000000000000000000000000a1")
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestTransferInRequiresAllowance(t *testing.T) {
	ctx := context.Background()
	bank := NewBank("USDT")
	bank.Issue(alice, d(100))
	agent := bank.AgentFor(custody)

	err := agent.TransferIn(ctx, alice, d(10))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	bank.Approve(alice, custody, d(50))
	require.NoError(t, agent.TransferIn(ctx, alice, d(10)))
	require.True(t, bank.Balance(alice).Equal(d(90)))
	require.True(t, bank.Balance(custody).Equal(d(10)))

	// allowance is consumed
	err = agent.TransferIn(ctx, alice, d(45))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	require.NoError(t, agent.TransferIn(ctx, alice, d(40)))
}

func TestTransferInRequiresBalance(t *testing.T) {
	ctx := context.Background()
	bank := NewBank("USDT")
	bank.Issue(alice, d(5))
	bank.Approve(alice, custody, d(100))
	agent := bank.AgentFor(custody)

	err := agent.TransferIn(ctx, alice, d(10))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	require.True(t, bank.Balance(alice).Equal(d(5)))
}

func TestTransferOut(t *testing.T) {
	ctx := context.Background()
	bank := NewBank("USDT")
	bank.Issue(custody, d(30))
	agent := bank.AgentFor(custody)

	require.NoError(t, agent.TransferOut(ctx, alice, d(20)))
	require.True(t, bank.Balance(alice).Equal(d(20)))

	err := agent.TransferOut(ctx, alice, d(20))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	got, err := agent.BalanceOf(ctx, custody)
	require.NoError(t, err)
	require.True(t, got.Equal(d(10)))
}
