// internal/program/create.go
package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

// CreateTokenParams carries the token metadata and the optional first buy
// the creator makes in the same instruction.
type CreateTokenParams struct {
	Name       string
	Symbol     string
	URI        string
	Decimals   uint8
	InitialBuy uint64 // lamports; zero skips the first buy
}

func (c CreateTokenParams) validate() error {
	if c.Name == "" || c.Symbol == "" {
		return fmt.Errorf("token name and symbol are required")
	}
	if len(c.Symbol) > 10 {
		return fmt.Errorf("symbol %q longer than 10 characters", c.Symbol)
	}
	if c.Decimals > 9 {
		return fmt.Errorf("decimals %d exceed the token program maximum of 9", c.Decimals)
	}
	return nil
}

// CreateTokenResult reports every address the instruction created.
type CreateTokenResult struct {
	Mint       solana.PublicKey
	TokenVault solana.PublicKey
	Escrow     solana.PublicKey
	Pool       solana.PublicKey
	Metadata   solana.PublicKey
	GlobalInfo solana.PublicKey
	InitialBuy *TradeResult
}

// InitializeInstruction builds the explicit registry initialization. Fails
// with ErrAlreadyInitialized if the registry exists.
func (p *Program) InitializeInstruction(admin solana.PublicKey, params Params) (ledger.Instruction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	globalAddr, bump, err := p.pda.GlobalInfo()
	if err != nil {
		return nil, fmt.Errorf("derive global info: %w", err)
	}
	return &instruction{
		name: "initialize",
		metas: []ledger.AccountMeta{
			{Address: globalAddr, Writable: true},
			{Address: admin, Signer: true},
		},
		run: func(tc *ledger.TxContext) error {
			if tc.Exists(globalAddr) {
				return fmt.Errorf("global info %s: %w", globalAddr.String(), state.ErrAlreadyInitialized)
			}
			return p.initGlobal(tc, globalAddr, bump, admin, params)
		},
	}, nil
}

// Initialize runs the explicit registry initialization with the engine's
// configured defaults.
func (p *Program) Initialize(admin solana.PublicKey) error {
	ins, err := p.InitializeInstruction(admin, p.defaults)
	if err != nil {
		return err
	}
	return p.ledger.Execute(ins)
}

func (p *Program) initGlobal(tc *ledger.TxContext, addr solana.PublicKey, bump uint8, admin solana.PublicKey, params Params) error {
	acct, err := tc.Create(addr, p.id)
	if err != nil {
		return err
	}
	g := &state.GlobalInfo{
		Admin:               admin,
		FeeBasisPoints:      params.FeeBasisPoints,
		MigrationThreshold:  params.MigrationThreshold,
		TotalSupply:         params.TotalSupply,
		InitialVirtualSol:   params.InitialVirtualSol,
		InitialVirtualToken: params.InitialVirtualToken,
		Bump:                bump,
	}
	data, err := g.Marshal()
	if err != nil {
		return err
	}
	acct.Data = data

	p.logger.Info("global registry initialized",
		zap.String("admin", admin.String()),
		zap.Uint32("fee_bps", params.FeeBasisPoints),
		zap.Uint64("migration_threshold", params.MigrationThreshold))
	return nil
}

// CreateTokenInstruction builds the create_token instruction: mint, pool,
// vaults and metadata in one atomic unit, with an optional first buy funded
// by the creator. The registry is initialized from the engine defaults if it
// does not exist yet, with the creator as admin.
func (p *Program) CreateTokenInstruction(payer solana.PublicKey, params CreateTokenParams, res *CreateTokenResult) (ledger.Instruction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	mintAddr, _, err := p.pda.Mint(params.Symbol)
	if err != nil {
		return nil, fmt.Errorf("derive mint: %w", err)
	}
	a, err := p.tradeAccountsFor(payer, mintAddr)
	if err != nil {
		return nil, err
	}
	metadataAddr, _, err := p.pda.Metadata(p.metadataProgram, mintAddr)
	if err != nil {
		return nil, fmt.Errorf("derive metadata: %w", err)
	}
	poolBump, err := p.poolBump(mintAddr)
	if err != nil {
		return nil, err
	}

	return &instruction{
		name: "create_token",
		metas: []ledger.AccountMeta{
			{Address: a.mint, Writable: true},
			{Address: metadataAddr, Writable: true},
			{Address: a.vault, Writable: true},
			{Address: a.escrow, Writable: true},
			{Address: a.global, Writable: true},
			{Address: a.pool, Writable: true},
			{Address: payer, Writable: true, Signer: true},
			{Address: a.userATA, Writable: true},
		},
		run: func(tc *ledger.TxContext) error {
			if tc.Exists(a.mint) {
				return fmt.Errorf("mint %s: %w", a.mint.String(), state.ErrAlreadyExists)
			}

			if !tc.Exists(a.global) {
				globalBump, err := p.globalBump()
				if err != nil {
					return err
				}
				if err := p.initGlobal(tc, a.global, globalBump, payer, p.defaults); err != nil {
					return err
				}
			}
			g, err := p.loadGlobal(tc, a.global)
			if err != nil {
				return err
			}
			if params.InitialBuy >= g.InitialVirtualSol {
				return fmt.Errorf("initial buy %d exceeds the virtual reserve seed: %w",
					params.InitialBuy, state.ErrInvalidAmount)
			}

			mintAcct, err := tc.Create(a.mint, p.tokenProgram)
			if err != nil {
				return err
			}
			mint := &state.Mint{Authority: a.mint, Supply: g.TotalSupply, Decimals: params.Decimals}
			if mintAcct.Data, err = mint.Marshal(); err != nil {
				return err
			}

			vaultAcct, err := tc.Create(a.vault, p.tokenProgram)
			if err != nil {
				return err
			}
			vault := &state.TokenAccount{Mint: a.mint, Owner: a.vault, Amount: g.TotalSupply}
			if vaultAcct.Data, err = vault.Marshal(); err != nil {
				return err
			}

			if _, err := tc.Create(a.escrow, p.id); err != nil {
				return err
			}

			poolAcct, err := tc.Create(a.pool, p.id)
			if err != nil {
				return err
			}
			pool := &state.TokenPool{
				Mint:                a.mint,
				VirtualSolReserve:   g.InitialVirtualSol,
				VirtualTokenReserve: g.InitialVirtualToken,
				RealTokenReserve:    g.TotalSupply,
				Bump:                poolBump,
			}
			if poolAcct.Data, err = pool.Marshal(); err != nil {
				return err
			}

			meta := state.TokenMetadata{Name: params.Name, Symbol: params.Symbol, URI: params.URI}
			if err := p.metadata.CreateMetadata(tc, metadataAddr, a.mint, meta); err != nil {
				return err
			}

			g.TokenCount++
			if err := p.storeGlobal(tc, a.global, g); err != nil {
				return err
			}

			if res != nil {
				*res = CreateTokenResult{
					Mint:       a.mint,
					TokenVault: a.vault,
					Escrow:     a.escrow,
					Pool:       a.pool,
					Metadata:   metadataAddr,
					GlobalInfo: a.global,
				}
			}

			if params.InitialBuy > 0 {
				var trade TradeResult
				if err := p.buyCore(tc, a, payer, params.InitialBuy, &trade); err != nil {
					return fmt.Errorf("initial buy: %w", err)
				}
				if res != nil {
					res.InitialBuy = &trade
				}
			}

			p.logger.Info("token created",
				zap.String("symbol", params.Symbol),
				zap.String("mint", a.mint.String()),
				zap.Uint64("initial_buy", params.InitialBuy))
			return nil
		},
	}, nil
}

// CreateToken builds and executes create_token.
func (p *Program) CreateToken(payer solana.PublicKey, params CreateTokenParams) (*CreateTokenResult, error) {
	var res CreateTokenResult
	ins, err := p.CreateTokenInstruction(payer, params, &res)
	if err != nil {
		return nil, err
	}
	if err := p.ledger.Execute(ins); err != nil {
		return nil, err
	}
	return &res, nil
}

func (p *Program) globalBump() (uint8, error) {
	_, bump, err := p.pda.GlobalInfo()
	if err != nil {
		return 0, fmt.Errorf("derive global info: %w", err)
	}
	return bump, nil
}

func (p *Program) poolBump(mint solana.PublicKey) (uint8, error) {
	_, bump, err := p.pda.TokenPool(mint)
	if err != nil {
		return 0, fmt.Errorf("derive token pool: %w", err)
	}
	return bump, nil
}
