// internal/program/migrate.go
package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/liquidity"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

// AddLiquidityResult reports what the migration step handed to the AMM sink.
type AddLiquidityResult struct {
	TokenAmount uint64
	SolAmount   uint64
}

// AddLiquidityInstruction builds the post-migration liquidity seeding: the
// pool's remaining real token reserve and the full escrow balance drain into
// the AMM-side accounts, and the amounts are forwarded to the configured
// Sink. Requires a migrated pool; runs at most once per pool.
//
// coinDest receives the token leg and pcDest the SOL leg. solPrice is a
// price hint passed through to the sink untouched.
func (p *Program) AddLiquidityInstruction(payer, mint, coinDest, pcDest solana.PublicKey, solPrice uint64, res *AddLiquidityResult) (ledger.Instruction, error) {
	a, err := p.tradeAccountsFor(payer, mint)
	if err != nil {
		return nil, err
	}
	return &instruction{
		name: "add_liquidity",
		metas: []ledger.AccountMeta{
			{Address: a.mint},
			{Address: a.vault, Writable: true},
			{Address: a.escrow, Writable: true},
			{Address: a.global},
			{Address: a.pool, Writable: true},
			{Address: payer, Signer: true},
			{Address: coinDest, Writable: true},
			{Address: pcDest, Writable: true},
		},
		run: func(tc *ledger.TxContext) error {
			if !tc.IsSigner(payer) {
				return fmt.Errorf("payer %s did not sign: %w", payer.String(), state.ErrUnauthorized)
			}
			pool, err := p.loadPool(tc, a.pool, a.mint)
			if err != nil {
				return err
			}
			if !pool.Migrated {
				return fmt.Errorf("pool %s: %w", a.pool.String(), state.ErrPoolNotMigrated)
			}
			if pool.LiquiditySeeded {
				return fmt.Errorf("pool %s: %w", a.pool.String(), state.ErrAlreadyMigratedLiquidity)
			}

			vault, err := p.loadTokenAccount(tc, a.vault, "token vault")
			if err != nil {
				return err
			}
			escrowAcct, err := tc.Account(a.escrow)
			if err != nil {
				return err
			}
			assertPoolBacking(pool, escrowAcct.Lamports, vault.Amount)

			tokenAmount := pool.RealTokenReserve
			solAmount := pool.RealSolReserve

			coin, err := p.loadTokenAccount(tc, coinDest, "coin destination")
			if err != nil {
				return err
			}
			if !coin.Mint.Equals(a.mint) {
				return fmt.Errorf("coin destination holds %s: %w", coin.Mint.String(), state.ErrAccountMismatch)
			}
			newCoin := coin.Amount + tokenAmount
			if newCoin < coin.Amount {
				return state.ErrOverflow
			}
			coin.Amount = newCoin
			vault.Amount -= tokenAmount

			if err := tc.Transfer(a.escrow, pcDest, solAmount); err != nil {
				return err
			}

			pool.RealTokenReserve = 0
			pool.RealSolReserve = 0
			pool.LiquiditySeeded = true

			if err := p.storePool(tc, a.pool, pool); err != nil {
				return err
			}
			if err := p.storeTokenAccount(tc, a.vault, vault); err != nil {
				return err
			}
			if err := p.storeTokenAccount(tc, coinDest, coin); err != nil {
				return err
			}

			if err := p.sink.Seed(liquidity.SeedParams{
				Mint:        a.mint,
				CoinAccount: coinDest,
				PCAccount:   pcDest,
				TokenAmount: tokenAmount,
				SolAmount:   solAmount,
				SolPrice:    solPrice,
			}); err != nil {
				return fmt.Errorf("seed liquidity: %w", err)
			}

			p.logger.Info("liquidity migrated",
				zap.String("mint", a.mint.String()),
				zap.Uint64("token_amount", tokenAmount),
				zap.Uint64("sol_amount", solAmount))

			if res != nil {
				*res = AddLiquidityResult{TokenAmount: tokenAmount, SolAmount: solAmount}
			}
			return nil
		},
	}, nil
}

// AddLiquidity builds and executes add_liquidity.
func (p *Program) AddLiquidity(payer, mint, coinDest, pcDest solana.PublicKey, solPrice uint64) (*AddLiquidityResult, error) {
	var res AddLiquidityResult
	ins, err := p.AddLiquidityInstruction(payer, mint, coinDest, pcDest, solPrice, &res)
	if err != nil {
		return nil, err
	}
	if err := p.ledger.Execute(ins); err != nil {
		return nil, err
	}
	return &res, nil
}
