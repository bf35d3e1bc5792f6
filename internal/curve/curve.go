// internal/curve/curve.go
//
// Pricing engine for the bonding curve: a constant-product function over
// virtual reserves, with the fee always taken on the SOL leg. All arithmetic
// is fixed-point in the token's smallest unit; intermediates that can exceed
// 64 bits go through 256-bit math and every narrowing is checked.
package curve

import (
	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/launchpad/internal/state"
)

// FeeDenominator converts basis points to a fraction: 100 bps = 1%.
const FeeDenominator = 10_000

// Pool is the pricing view of a token pool. Virtual reserves drive quotes;
// real reserves bound what can actually be paid out.
type Pool struct {
	VirtualSolReserve    uint64
	VirtualTokenReserve  uint64
	RealSolReserve       uint64
	RealTokenReserve     uint64
	CumulativeTokensSold uint64
	Migrated             bool
}

// Quote is the outcome of one trade: what the caller paid in, what the pool
// pays out, and the fee routed to the global registry.
type Quote struct {
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
}

// Fee computes amount * feeBps / 10000, rounding down.
func Fee(amount uint64, feeBps uint32) (uint64, error) {
	n := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(feeBps)))
	n.Div(n, uint256.NewInt(FeeDenominator))
	if !n.IsUint64() {
		return 0, state.ErrOverflow
	}
	return n.Uint64(), nil
}

// ApplyBuy quotes and applies a buy of solIn lamports. The receiver is only
// mutated when the quote succeeds, so callers can work on a copy and commit
// the result atomically.
//
// tokens_out = vToken - (vSol * vToken) / (vSol + net_in), with the quotient
// rounded up so the rounding dust always stays on the pool's side and the
// reserve product never decreases across a trade.
func (p *Pool) ApplyBuy(solIn uint64, feeBps uint32) (Quote, error) {
	if p.Migrated {
		return Quote{}, state.ErrPoolMigrated
	}
	if solIn == 0 {
		return Quote{}, state.ErrInvalidAmount
	}
	fee, err := Fee(solIn, feeBps)
	if err != nil {
		return Quote{}, err
	}
	if fee >= solIn {
		return Quote{}, state.ErrInvalidAmount
	}
	netIn := solIn - fee

	newVirtualSol, err := checkedAdd(p.VirtualSolReserve, netIn)
	if err != nil {
		return Quote{}, err
	}
	k := product(p.VirtualSolReserve, p.VirtualTokenReserve)
	newVirtualToken, err := divCeil(k, newVirtualSol)
	if err != nil {
		return Quote{}, err
	}
	if newVirtualToken > p.VirtualTokenReserve {
		return Quote{}, state.ErrUnderflow
	}
	tokensOut := p.VirtualTokenReserve - newVirtualToken
	if tokensOut > p.RealTokenReserve {
		return Quote{}, state.ErrInsufficientLiquidity
	}

	newRealSol, err := checkedAdd(p.RealSolReserve, netIn)
	if err != nil {
		return Quote{}, err
	}
	newSold, err := checkedAdd(p.CumulativeTokensSold, tokensOut)
	if err != nil {
		return Quote{}, err
	}

	p.VirtualSolReserve = newVirtualSol
	p.VirtualTokenReserve = newVirtualToken
	p.RealSolReserve = newRealSol
	p.RealTokenReserve -= tokensOut
	p.CumulativeTokensSold = newSold
	return Quote{AmountIn: solIn, AmountOut: tokensOut, Fee: fee}, nil
}

// ApplySell quotes and applies a sell of tokensIn base units. Symmetric
// inverse of ApplyBuy; the fee comes off the SOL paid out, and the escrow is
// debited by the gross amount (AmountOut + Fee).
func (p *Pool) ApplySell(tokensIn uint64, feeBps uint32) (Quote, error) {
	if p.Migrated {
		return Quote{}, state.ErrPoolMigrated
	}
	if tokensIn == 0 {
		return Quote{}, state.ErrInvalidAmount
	}

	newVirtualToken, err := checkedAdd(p.VirtualTokenReserve, tokensIn)
	if err != nil {
		return Quote{}, err
	}
	k := product(p.VirtualSolReserve, p.VirtualTokenReserve)
	newVirtualSol, err := divCeil(k, newVirtualToken)
	if err != nil {
		return Quote{}, err
	}
	if newVirtualSol > p.VirtualSolReserve {
		return Quote{}, state.ErrUnderflow
	}
	grossOut := p.VirtualSolReserve - newVirtualSol
	if grossOut > p.RealSolReserve {
		return Quote{}, state.ErrInsufficientLiquidity
	}
	fee, err := Fee(grossOut, feeBps)
	if err != nil {
		return Quote{}, err
	}

	newRealToken, err := checkedAdd(p.RealTokenReserve, tokensIn)
	if err != nil {
		return Quote{}, err
	}

	p.VirtualTokenReserve = newVirtualToken
	p.VirtualSolReserve = newVirtualSol
	p.RealSolReserve -= grossOut
	p.RealTokenReserve = newRealToken
	return Quote{AmountIn: tokensIn, AmountOut: grossOut - fee, Fee: fee}, nil
}

// MaybeMigrate flips the pool into its terminal state once cumulative sales
// reach the threshold. Returns true on the transition itself.
func (p *Pool) MaybeMigrate(threshold uint64) bool {
	if p.Migrated || threshold == 0 {
		return false
	}
	if p.CumulativeTokensSold >= threshold {
		p.Migrated = true
		return true
	}
	return false
}

func product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

func divCeil(num *uint256.Int, den uint64) (uint64, error) {
	if den == 0 {
		return 0, state.ErrUnderflow
	}
	q, rem := new(uint256.Int).DivMod(num, uint256.NewInt(den), new(uint256.Int))
	if !rem.IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		return 0, state.ErrOverflow
	}
	return q.Uint64(), nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	s := a + b
	if s < a {
		return 0, state.ErrOverflow
	}
	return s, nil
}
