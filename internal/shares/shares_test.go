package shares

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/savium/savium/internal/domain"
)

var (
	alice = domain.AccountFromHex("0x00000000000000000000000000000000000000a1")
	bob   = domain.AccountFromHex("0x00000000000000000000000000000000000000b2")
	carol = domain.AccountFromHex("0x00000000000000000000000000000000000000c3")
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestMintOnHoldDoesNotJoinDistribution(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(10), true))

	require.True(t, l.OnHoldOf(alice).Equal(d(10)))
	require.True(t, l.EligibleOf(alice).IsZero())
	require.True(t, l.EligibleSupply().IsZero())
	require.True(t, l.TotalSupply().Equal(d(10)))
}

func TestMarkAllEligibleFlipsLazily(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(80), true))
	require.NoError(t, l.Mint(bob, d(50), true))

	l.MarkAllEligible()

	require.True(t, l.EligibleSupply().Equal(d(130)))
	require.True(t, l.EligibleOf(alice).Equal(d(80)))
	require.True(t, l.OnHoldOf(alice).IsZero())
	require.True(t, l.TotalSupply().Equal(d(130)))
}

func TestProRataDistribution(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(80), true))
	require.NoError(t, l.Mint(bob, d(50), true))
	l.MarkAllEligible()

	_, err := l.Distribute(d(26))
	require.NoError(t, err)

	require.True(t, l.RealizedOf(alice).Equal(d(16)), "got %s", l.RealizedOf(alice))
	require.True(t, l.RealizedOf(bob).Equal(d(10)), "got %s", l.RealizedOf(bob))
}

func TestEqualHoldersGetEqualCredit(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(33), true))
	require.NoError(t, l.Mint(bob, d(33), true))
	l.MarkAllEligible()

	_, err := l.Distribute(d(10))
	require.NoError(t, err)

	diff := l.RealizedOf(alice).Sub(l.RealizedOf(bob)).Abs()
	require.True(t, diff.LessThanOrEqual(decimal.New(1, -indexScale)))
}

func TestLateDepositorMissesEarlierYield(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(100), true))
	l.MarkAllEligible()

	_, err := l.Distribute(d(30))
	require.NoError(t, err)

	// bob deposits after the first distribution, stays on hold through
	// the second epoch close
	require.NoError(t, l.Mint(bob, d(100), true))
	l.MarkAllEligible()
	_, err = l.Distribute(d(40))
	require.NoError(t, err)

	require.True(t, l.RealizedOf(alice).Equal(d(50)), "got %s", l.RealizedOf(alice))
	require.True(t, l.RealizedOf(bob).Equal(d(20)), "got %s", l.RealizedOf(bob))
}

func TestLazyPromotionAcrossUntouchedEpochs(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(100), true))
	l.MarkAllEligible()
	_, err := l.Distribute(d(10))
	require.NoError(t, err)

	// alice is never touched through several epochs and distributions
	require.NoError(t, l.Mint(bob, d(100), true))
	l.MarkAllEligible()
	_, err = l.Distribute(d(50))
	require.NoError(t, err)

	// 10 from the solo epoch, 25 from the shared one
	require.True(t, l.RealizedOf(alice).Equal(d(35)), "got %s", l.RealizedOf(alice))
	require.True(t, l.Claim(alice).Equal(d(35)))
	require.True(t, l.RealizedOf(alice).IsZero())
}

func TestZeroEligibleSupplyCarriesYieldForward(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(100), true))

	// nothing eligible yet: nothing may be distributed or lost
	idx, err := l.Distribute(d(26))
	require.NoError(t, err)
	require.True(t, idx.IsZero())
	require.True(t, l.Undistributed().Equal(d(26)))
	require.True(t, l.RealizedOf(alice).IsZero())

	l.MarkAllEligible()
	_, err = l.Distribute(decimal.Zero)
	require.NoError(t, err)
	require.True(t, l.RealizedOf(alice).Equal(d(26)))
}

func TestBurnPrefersEligibleThenSpills(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(60), true))
	l.MarkAllEligible()
	require.NoError(t, l.Mint(alice, d(40), true))

	fromEligible, fromOnHold, err := l.Burn(alice, d(80), false)
	require.NoError(t, err)
	require.True(t, fromEligible.Equal(d(60)))
	require.True(t, fromOnHold.Equal(d(20)))
	require.True(t, l.EligibleOf(alice).IsZero())
	require.True(t, l.OnHoldOf(alice).Equal(d(20)))
	require.True(t, l.TotalSupply().Equal(d(20)))

	_, _, err = l.Burn(alice, d(21), false)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	require.True(t, l.TotalSupply().Equal(d(20)))
}

func TestBurnFromHoldOnly(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(50), true))

	fromEligible, fromOnHold, err := l.Burn(alice, d(30), true)
	require.NoError(t, err)
	require.True(t, fromEligible.IsZero())
	require.True(t, fromOnHold.Equal(d(30)))
	require.True(t, l.OnHoldOf(alice).Equal(d(20)))

	_, _, err = l.Burn(alice, d(21), true)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestRealizeBeforeMutationKeepsCreditsExact(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(100), true))
	l.MarkAllEligible()
	_, err := l.Distribute(d(10))
	require.NoError(t, err)

	// burning after the distribution must not change what was earned
	_, _, err = l.Burn(alice, d(100), false)
	require.NoError(t, err)
	require.True(t, l.RealizedOf(alice).Equal(d(10)))

	// new yield goes nowhere: no eligible supply remains
	_, err = l.Distribute(d(5))
	require.NoError(t, err)
	require.True(t, l.RealizedOf(alice).Equal(d(10)))
	require.True(t, l.Undistributed().Equal(d(5)))
}

func TestDistributionNeverExceedsInput(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint(alice, d(3), true))
	require.NoError(t, l.Mint(bob, d(3), true))
	require.NoError(t, l.Mint(carol, d(1), true))
	l.MarkAllEligible()

	_, err := l.Distribute(d(10))
	require.NoError(t, err)

	credited := l.RealizedOf(alice).Add(l.RealizedOf(bob)).Add(l.RealizedOf(carol))
	require.True(t, credited.LessThanOrEqual(d(10)), "credited %s", credited)
	// the sub-precision residue is carried, not lost
	require.True(t, credited.Add(l.Undistributed()).LessThanOrEqual(d(10)))
	require.True(t, l.Undistributed().IsPositive())
}

func TestNegativeDistributionRejected(t *testing.T) {
	l := New()
	_, err := l.Distribute(d(-1))
	require.ErrorIs(t, err, domain.ErrInvariant)
}
