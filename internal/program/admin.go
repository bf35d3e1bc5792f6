// internal/program/admin.go
package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

// WithdrawBalanceInstruction builds the admin fee withdrawal: amount lamports
// move from the registry's accrued fees to the admin. Only the registry admin
// may withdraw, and only up to the accrued total.
func (p *Program) WithdrawBalanceInstruction(admin solana.PublicKey, amount uint64) (ledger.Instruction, error) {
	globalAddr, _, err := p.pda.GlobalInfo()
	if err != nil {
		return nil, fmt.Errorf("derive global info: %w", err)
	}
	return &instruction{
		name: "withdraw_balance",
		metas: []ledger.AccountMeta{
			{Address: globalAddr, Writable: true},
			{Address: admin, Writable: true, Signer: true},
		},
		run: func(tc *ledger.TxContext) error {
			if !tc.IsSigner(admin) {
				return fmt.Errorf("withdrawer %s did not sign: %w", admin.String(), state.ErrUnauthorized)
			}
			g, err := p.loadGlobal(tc, globalAddr)
			if err != nil {
				return err
			}
			if !g.Admin.Equals(admin) {
				return fmt.Errorf("withdrawer %s is not the admin: %w", admin.String(), state.ErrUnauthorized)
			}
			if amount == 0 {
				return fmt.Errorf("withdraw of zero lamports: %w", state.ErrInvalidAmount)
			}
			if amount > g.AccruedFees {
				return fmt.Errorf("accrued fees %d, requested %d: %w",
					g.AccruedFees, amount, state.ErrInsufficientFunds)
			}
			if err := tc.Transfer(globalAddr, admin, amount); err != nil {
				return err
			}
			g.AccruedFees -= amount
			if err := p.storeGlobal(tc, globalAddr, g); err != nil {
				return err
			}

			p.logger.Info("fees withdrawn",
				zap.String("admin", admin.String()),
				zap.Uint64("amount", amount),
				zap.Uint64("accrued_remaining", g.AccruedFees))
			return nil
		},
	}, nil
}

// WithdrawBalance builds and executes withdraw_balance.
func (p *Program) WithdrawBalance(admin solana.PublicKey, amount uint64) error {
	ins, err := p.WithdrawBalanceInstruction(admin, amount)
	if err != nil {
		return err
	}
	return p.ledger.Execute(ins)
}

// ParamUpdate is a partial registry update; nil fields are left unchanged.
// Updates only affect pools created afterwards, existing pools keep the
// reserves they were seeded with.
type ParamUpdate struct {
	FeeBasisPoints      *uint32
	MigrationThreshold  *uint64
	TotalSupply         *uint64
	InitialVirtualSol   *uint64
	InitialVirtualToken *uint64
}

// SetParamsInstruction builds the admin parameter update.
func (p *Program) SetParamsInstruction(admin solana.PublicKey, upd ParamUpdate) (ledger.Instruction, error) {
	globalAddr, _, err := p.pda.GlobalInfo()
	if err != nil {
		return nil, fmt.Errorf("derive global info: %w", err)
	}
	return &instruction{
		name: "set_params",
		metas: []ledger.AccountMeta{
			{Address: globalAddr, Writable: true},
			{Address: admin, Signer: true},
		},
		run: func(tc *ledger.TxContext) error {
			if !tc.IsSigner(admin) {
				return fmt.Errorf("updater %s did not sign: %w", admin.String(), state.ErrUnauthorized)
			}
			g, err := p.loadGlobal(tc, globalAddr)
			if err != nil {
				return err
			}
			if !g.Admin.Equals(admin) {
				return fmt.Errorf("updater %s is not the admin: %w", admin.String(), state.ErrUnauthorized)
			}
			if upd.FeeBasisPoints != nil {
				if *upd.FeeBasisPoints >= curve.FeeDenominator {
					return fmt.Errorf("fee %d bps: %w", *upd.FeeBasisPoints, state.ErrInvalidAmount)
				}
				g.FeeBasisPoints = *upd.FeeBasisPoints
			}
			if upd.MigrationThreshold != nil {
				if *upd.MigrationThreshold == 0 {
					return fmt.Errorf("zero migration threshold: %w", state.ErrInvalidAmount)
				}
				g.MigrationThreshold = *upd.MigrationThreshold
			}
			if upd.TotalSupply != nil {
				if *upd.TotalSupply == 0 {
					return fmt.Errorf("zero total supply: %w", state.ErrInvalidAmount)
				}
				g.TotalSupply = *upd.TotalSupply
			}
			if upd.InitialVirtualSol != nil {
				if *upd.InitialVirtualSol == 0 {
					return fmt.Errorf("zero virtual sol seed: %w", state.ErrInvalidAmount)
				}
				g.InitialVirtualSol = *upd.InitialVirtualSol
			}
			if upd.InitialVirtualToken != nil {
				if *upd.InitialVirtualToken == 0 {
					return fmt.Errorf("zero virtual token seed: %w", state.ErrInvalidAmount)
				}
				g.InitialVirtualToken = *upd.InitialVirtualToken
			}
			if err := p.storeGlobal(tc, globalAddr, g); err != nil {
				return err
			}

			p.logger.Info("registry params updated",
				zap.Uint32("fee_bps", g.FeeBasisPoints),
				zap.Uint64("migration_threshold", g.MigrationThreshold))
			return nil
		},
	}, nil
}

// SetParams builds and executes set_params.
func (p *Program) SetParams(admin solana.PublicKey, upd ParamUpdate) error {
	ins, err := p.SetParamsInstruction(admin, upd)
	if err != nil {
		return err
	}
	return p.ledger.Execute(ins)
}
