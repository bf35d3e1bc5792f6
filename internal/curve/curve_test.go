package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/state"
)

func freshPool() Pool {
	return Pool{
		VirtualSolReserve:   30_000_000_000, // 30 SOL
		VirtualTokenReserve: 1_000_000_000,
		RealTokenReserve:    1_000_000_000,
	}
}

func TestApplyBuyReferenceScenario(t *testing.T) {
	p := freshPool()

	quote, err := p.ApplyBuy(1_000_000_000, 100) // 1 SOL at 1% fee
	require.NoError(t, err)

	assert.Equal(t, uint64(10_000_000), quote.Fee, "1% of 1 SOL")
	assert.InDelta(t, 31_945_789, quote.AmountOut, 1, "tokens out for 1 SOL buy")

	assert.Equal(t, uint64(990_000_000), p.RealSolReserve, "net of fee lands in the reserve")
	assert.Equal(t, uint64(30_990_000_000), p.VirtualSolReserve)
	assert.Equal(t, quote.AmountOut, p.CumulativeTokensSold)
	assert.Equal(t, uint64(1_000_000_000)-quote.AmountOut, p.RealTokenReserve)

	t.Logf("tokens out: %d, fee: %d", quote.AmountOut, quote.Fee)
}

func TestBuyThenSellNeverOverdrawsReserve(t *testing.T) {
	p := freshPool()

	buy, err := p.ApplyBuy(1_000_000_000, 100)
	require.NoError(t, err)

	sell, err := p.ApplySell(buy.AmountOut, 100)
	require.NoError(t, err)

	// The escrow pays gross (net + fee); it must never exceed what the buy
	// deposited.
	gross := sell.AmountOut + sell.Fee
	assert.LessOrEqual(t, gross, uint64(990_000_000), "round trip cannot overdraw the reserve")
	assert.Equal(t, uint64(990_000_000)-gross, p.RealSolReserve)
}

func TestReserveProductNeverDecreases(t *testing.T) {
	p := freshPool()
	before := product(p.VirtualSolReserve, p.VirtualTokenReserve)

	_, err := p.ApplyBuy(777_777_777, 100)
	require.NoError(t, err)
	afterBuy := product(p.VirtualSolReserve, p.VirtualTokenReserve)
	assert.True(t, afterBuy.Cmp(before) >= 0, "buy must not shrink k")

	_, err = p.ApplySell(5_000_000, 100)
	require.NoError(t, err)
	afterSell := product(p.VirtualSolReserve, p.VirtualTokenReserve)
	assert.True(t, afterSell.Cmp(afterBuy) >= 0, "sell must not shrink k")
}

func TestBuyOutputMonotonic(t *testing.T) {
	small := freshPool()
	large := freshPool()

	qs, err := small.ApplyBuy(100_000_000, 100)
	require.NoError(t, err)
	ql, err := large.ApplyBuy(200_000_000, 100)
	require.NoError(t, err)

	assert.Greater(t, ql.AmountOut, qs.AmountOut, "bigger buy pays out more tokens")
}

func TestSuccessiveBuysPayLess(t *testing.T) {
	p := freshPool()

	first, err := p.ApplyBuy(1_000_000_000, 100)
	require.NoError(t, err)
	second, err := p.ApplyBuy(1_000_000_000, 100)
	require.NoError(t, err)

	assert.Less(t, second.AmountOut, first.AmountOut, "price rises as the curve fills")
}

func TestApplyBuyRejectsZero(t *testing.T) {
	p := freshPool()
	_, err := p.ApplyBuy(0, 100)
	assert.ErrorIs(t, err, state.ErrInvalidAmount)
}

func TestApplySellRejectsZero(t *testing.T) {
	p := freshPool()
	_, err := p.ApplySell(0, 100)
	assert.ErrorIs(t, err, state.ErrInvalidAmount)
}

func TestApplyBuyInsufficientLiquidity(t *testing.T) {
	p := freshPool()
	p.RealTokenReserve = 1_000 // almost drained vault

	_, err := p.ApplyBuy(1_000_000_000, 100)
	assert.ErrorIs(t, err, state.ErrInsufficientLiquidity)
}

func TestApplySellBoundedByRealReserve(t *testing.T) {
	p := freshPool()
	// Nothing was ever bought, so there is no SOL to pay out.
	_, err := p.ApplySell(50_000_000, 100)
	assert.ErrorIs(t, err, state.ErrInsufficientLiquidity)
}

func TestFailedQuoteLeavesPoolUntouched(t *testing.T) {
	p := freshPool()
	p.RealTokenReserve = 1_000
	snapshot := p

	_, err := p.ApplyBuy(1_000_000_000, 100)
	require.Error(t, err)
	assert.Equal(t, snapshot, p, "failed quote must not mutate the pool")
}

func TestMigrationIsTerminal(t *testing.T) {
	p := freshPool()

	quote, err := p.ApplyBuy(1_000_000_000, 100)
	require.NoError(t, err)

	assert.False(t, p.MaybeMigrate(quote.AmountOut+1), "below threshold")
	assert.True(t, p.MaybeMigrate(quote.AmountOut), "at threshold")
	assert.False(t, p.MaybeMigrate(quote.AmountOut), "transition fires once")

	_, err = p.ApplyBuy(1_000_000, 100)
	assert.ErrorIs(t, err, state.ErrPoolMigrated)
	_, err = p.ApplySell(1_000_000, 100)
	assert.ErrorIs(t, err, state.ErrPoolMigrated)
}

func TestFeeRoundsDown(t *testing.T) {
	fee, err := Fee(999, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), fee)

	fee, err = Fee(0, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fee)
}

func TestApplyBuyVirtualSolOverflowAborts(t *testing.T) {
	p := Pool{
		VirtualSolReserve:   math.MaxUint64 - 10,
		VirtualTokenReserve: 1_000_000_000,
		RealTokenReserve:    1_000_000_000,
	}
	snapshot := p

	_, err := p.ApplyBuy(1_000_000, 100)
	assert.ErrorIs(t, err, state.ErrOverflow)
	assert.Equal(t, snapshot, p, "overflow abort must not mutate the pool")
}

func TestApplyBuyCumulativeSoldOverflowAborts(t *testing.T) {
	p := freshPool()
	p.CumulativeTokensSold = math.MaxUint64 - 1
	snapshot := p

	_, err := p.ApplyBuy(1_000_000_000, 100)
	assert.ErrorIs(t, err, state.ErrOverflow)
	assert.Equal(t, snapshot, p, "overflow abort must not mutate the pool")
}

func TestApplySellVirtualTokenOverflowAborts(t *testing.T) {
	p := freshPool()
	p.RealSolReserve = 1_000_000_000
	snapshot := p

	_, err := p.ApplySell(math.MaxUint64, 100)
	assert.ErrorIs(t, err, state.ErrOverflow)
	assert.Equal(t, snapshot, p, "overflow abort must not mutate the pool")
}

func TestApplySellRealTokenOverflowAborts(t *testing.T) {
	p := Pool{
		VirtualSolReserve:   30_000_000_000,
		VirtualTokenReserve: 1_000_000_000,
		RealSolReserve:      30_000_000_000,
		RealTokenReserve:    math.MaxUint64 - 10,
	}
	snapshot := p

	_, err := p.ApplySell(1_000_000, 100)
	assert.ErrorIs(t, err, state.ErrOverflow)
	assert.Equal(t, snapshot, p, "overflow abort must not mutate the pool")
}

func TestDustBuyStillCharged(t *testing.T) {
	p := freshPool()
	// 1% of 1 lamport rounds to zero fee; the lamport itself still enters
	// the reserve.
	quote, err := p.ApplyBuy(1, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), quote.Fee)
	assert.Equal(t, uint64(1), p.RealSolReserve)
}
