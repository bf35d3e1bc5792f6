// internal/program/trade.go
package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

// TradeResult reports the executed quote and whether this trade pushed the
// pool over the migration threshold.
type TradeResult struct {
	Quote    curve.Quote
	Migrated bool
}

// BuyTokenInstruction builds a buy of solAmount lamports against the mint's
// bonding curve. The buyer's associated token account is created on first
// purchase.
func (p *Program) BuyTokenInstruction(buyer, mint solana.PublicKey, solAmount uint64, res *TradeResult) (ledger.Instruction, error) {
	a, err := p.tradeAccountsFor(buyer, mint)
	if err != nil {
		return nil, err
	}
	return &instruction{
		name: "buy_token",
		metas: []ledger.AccountMeta{
			{Address: a.mint},
			{Address: a.vault, Writable: true},
			{Address: a.escrow, Writable: true},
			{Address: a.global, Writable: true},
			{Address: a.pool, Writable: true},
			{Address: buyer, Writable: true, Signer: true},
			{Address: a.userATA, Writable: true},
		},
		run: func(tc *ledger.TxContext) error {
			var trade TradeResult
			if err := p.buyCore(tc, a, buyer, solAmount, &trade); err != nil {
				return err
			}
			if res != nil {
				*res = trade
			}
			return nil
		},
	}, nil
}

// BuyToken builds and executes buy_token.
func (p *Program) BuyToken(buyer, mint solana.PublicKey, solAmount uint64) (*TradeResult, error) {
	var res TradeResult
	ins, err := p.BuyTokenInstruction(buyer, mint, solAmount, &res)
	if err != nil {
		return nil, err
	}
	if err := p.ledger.Execute(ins); err != nil {
		return nil, err
	}
	return &res, nil
}

// buyCore is the buy handler body, shared with the create path's inline
// first purchase. All accounts in a must already be declared on the
// surrounding instruction.
func (p *Program) buyCore(tc *ledger.TxContext, a tradeAccounts, buyer solana.PublicKey, solAmount uint64, res *TradeResult) error {
	if !tc.IsSigner(buyer) {
		return fmt.Errorf("buyer %s did not sign: %w", buyer.String(), state.ErrUnauthorized)
	}
	g, err := p.loadGlobal(tc, a.global)
	if err != nil {
		return err
	}
	pool, err := p.loadPool(tc, a.pool, a.mint)
	if err != nil {
		return err
	}
	if pool.Migrated {
		return fmt.Errorf("pool %s: %w", a.pool.String(), state.ErrPoolMigrated)
	}
	if solAmount == 0 {
		return fmt.Errorf("buy of zero lamports: %w", state.ErrInvalidAmount)
	}

	buyerAcct, err := tc.Account(buyer)
	if err != nil {
		return err
	}
	if buyerAcct.Lamports < solAmount {
		return fmt.Errorf("buyer has %d lamports, needs %d: %w",
			buyerAcct.Lamports, solAmount, state.ErrInsufficientFunds)
	}

	view := poolView(pool)
	quote, err := view.ApplyBuy(solAmount, g.FeeBasisPoints)
	if err != nil {
		return err
	}
	netIn := quote.AmountIn - quote.Fee

	if err := tc.Transfer(buyer, a.escrow, netIn); err != nil {
		return err
	}
	if err := tc.Transfer(buyer, a.global, quote.Fee); err != nil {
		return err
	}
	accrued := g.AccruedFees + quote.Fee
	if accrued < g.AccruedFees {
		return state.ErrOverflow
	}
	g.AccruedFees = accrued

	vault, err := p.loadTokenAccount(tc, a.vault, "token vault")
	if err != nil {
		return err
	}
	if vault.Amount < quote.AmountOut {
		return fmt.Errorf("vault holds %d: %w", vault.Amount, state.ErrInsufficientLiquidity)
	}
	vault.Amount -= quote.AmountOut

	buyerTokens, err := p.loadOrCreateTokenAccount(tc, a.userATA, a.mint, buyer)
	if err != nil {
		return err
	}
	newAmount := buyerTokens.Amount + quote.AmountOut
	if newAmount < buyerTokens.Amount {
		return state.ErrOverflow
	}
	buyerTokens.Amount = newAmount

	migrated := view.MaybeMigrate(g.MigrationThreshold)
	applyPoolView(pool, view)

	escrowAcct, err := tc.Account(a.escrow)
	if err != nil {
		return err
	}
	assertPoolBacking(pool, escrowAcct.Lamports, vault.Amount)

	if err := p.storePool(tc, a.pool, pool); err != nil {
		return err
	}
	if err := p.storeGlobal(tc, a.global, g); err != nil {
		return err
	}
	if err := p.storeTokenAccount(tc, a.vault, vault); err != nil {
		return err
	}
	if err := p.storeTokenAccount(tc, a.userATA, buyerTokens); err != nil {
		return err
	}

	if migrated {
		p.logger.Info("pool crossed migration threshold",
			zap.String("mint", a.mint.String()),
			zap.Uint64("cumulative_tokens_sold", pool.CumulativeTokensSold))
	}
	p.logger.Debug("buy executed",
		zap.String("mint", a.mint.String()),
		zap.String("buyer", buyer.String()),
		zap.Uint64("sol_in", quote.AmountIn),
		zap.Uint64("tokens_out", quote.AmountOut),
		zap.Uint64("fee", quote.Fee))

	if res != nil {
		*res = TradeResult{Quote: quote, Migrated: migrated}
	}
	return nil
}

// SellTokenInstruction builds a sell of tokenAmount base units back into the
// mint's bonding curve.
func (p *Program) SellTokenInstruction(seller, mint solana.PublicKey, tokenAmount uint64, res *TradeResult) (ledger.Instruction, error) {
	a, err := p.tradeAccountsFor(seller, mint)
	if err != nil {
		return nil, err
	}
	return &instruction{
		name: "sell_token",
		metas: []ledger.AccountMeta{
			{Address: a.mint},
			{Address: a.vault, Writable: true},
			{Address: a.escrow, Writable: true},
			{Address: a.global, Writable: true},
			{Address: a.pool, Writable: true},
			{Address: seller, Writable: true, Signer: true},
			{Address: a.userATA, Writable: true},
		},
		run: func(tc *ledger.TxContext) error {
			if !tc.IsSigner(seller) {
				return fmt.Errorf("seller %s did not sign: %w", seller.String(), state.ErrUnauthorized)
			}
			g, err := p.loadGlobal(tc, a.global)
			if err != nil {
				return err
			}
			pool, err := p.loadPool(tc, a.pool, a.mint)
			if err != nil {
				return err
			}
			if pool.Migrated {
				return fmt.Errorf("pool %s: %w", a.pool.String(), state.ErrPoolMigrated)
			}
			if tokenAmount == 0 {
				return fmt.Errorf("sell of zero tokens: %w", state.ErrInvalidAmount)
			}

			sellerTokens, err := p.loadTokenAccount(tc, a.userATA, "seller token account")
			if err != nil {
				return err
			}
			if !sellerTokens.Owner.Equals(seller) || !sellerTokens.Mint.Equals(a.mint) {
				return fmt.Errorf("seller token account: %w", state.ErrAccountMismatch)
			}
			if sellerTokens.Amount < tokenAmount {
				return fmt.Errorf("seller holds %d, selling %d: %w",
					sellerTokens.Amount, tokenAmount, state.ErrInsufficientFunds)
			}

			view := poolView(pool)
			quote, err := view.ApplySell(tokenAmount, g.FeeBasisPoints)
			if err != nil {
				return err
			}

			sellerTokens.Amount -= tokenAmount
			vault, err := p.loadTokenAccount(tc, a.vault, "token vault")
			if err != nil {
				return err
			}
			newVault := vault.Amount + tokenAmount
			if newVault < vault.Amount {
				return state.ErrOverflow
			}
			vault.Amount = newVault

			// The escrow pays the gross amount; the fee leg lands on the
			// registry so escrow balance stays equal to the real reserve.
			if err := tc.Transfer(a.escrow, seller, quote.AmountOut); err != nil {
				return err
			}
			if err := tc.Transfer(a.escrow, a.global, quote.Fee); err != nil {
				return err
			}
			accrued := g.AccruedFees + quote.Fee
			if accrued < g.AccruedFees {
				return state.ErrOverflow
			}
			g.AccruedFees = accrued

			applyPoolView(pool, view)

			escrowAcct, err := tc.Account(a.escrow)
			if err != nil {
				return err
			}
			assertPoolBacking(pool, escrowAcct.Lamports, vault.Amount)

			if err := p.storePool(tc, a.pool, pool); err != nil {
				return err
			}
			if err := p.storeGlobal(tc, a.global, g); err != nil {
				return err
			}
			if err := p.storeTokenAccount(tc, a.vault, vault); err != nil {
				return err
			}
			if err := p.storeTokenAccount(tc, a.userATA, sellerTokens); err != nil {
				return err
			}

			p.logger.Debug("sell executed",
				zap.String("mint", a.mint.String()),
				zap.String("seller", seller.String()),
				zap.Uint64("tokens_in", quote.AmountIn),
				zap.Uint64("sol_out", quote.AmountOut),
				zap.Uint64("fee", quote.Fee))

			if res != nil {
				*res = TradeResult{Quote: quote}
			}
			return nil
		},
	}, nil
}

// SellToken builds and executes sell_token.
func (p *Program) SellToken(seller, mint solana.PublicKey, tokenAmount uint64) (*TradeResult, error) {
	var res TradeResult
	ins, err := p.SellTokenInstruction(seller, mint, tokenAmount, &res)
	if err != nil {
		return nil, err
	}
	if err := p.ledger.Execute(ins); err != nil {
		return nil, err
	}
	return &res, nil
}

func (p *Program) loadOrCreateTokenAccount(tc *ledger.TxContext, addr, mint, owner solana.PublicKey) (*state.TokenAccount, error) {
	if tc.Exists(addr) {
		t, err := p.loadTokenAccount(tc, addr, "buyer token account")
		if err != nil {
			return nil, err
		}
		if !t.Owner.Equals(owner) || !t.Mint.Equals(mint) {
			return nil, fmt.Errorf("buyer token account: %w", state.ErrAccountMismatch)
		}
		return t, nil
	}
	if _, err := tc.Create(addr, p.tokenProgram); err != nil {
		return nil, err
	}
	return &state.TokenAccount{Mint: mint, Owner: owner}, nil
}
