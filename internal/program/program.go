// internal/program/program.go
//
// The launchpad program: token issuance and bonding-curve exchange executed
// as atomic instructions against program-derived accounts. Handlers validate
// every supplied account against its derivation before mutating anything;
// the first violated precondition aborts the whole instruction.
package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/liquidity"
	"github.com/rovshanmuradov/launchpad/internal/pda"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

// MetadataProgramID is the external metadata program the create path calls
// through the MetadataWriter boundary.
var MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// Params are the registry-level protocol parameters. The defaults configured
// on the engine seed the registry when it is initialized implicitly.
type Params struct {
	FeeBasisPoints      uint32
	MigrationThreshold  uint64
	TotalSupply         uint64
	InitialVirtualSol   uint64
	InitialVirtualToken uint64
}

func (p Params) validate() error {
	if p.FeeBasisPoints >= curve.FeeDenominator {
		return fmt.Errorf("fee %d bps: %w", p.FeeBasisPoints, state.ErrInvalidAmount)
	}
	if p.MigrationThreshold == 0 || p.TotalSupply == 0 {
		return fmt.Errorf("zero threshold or supply: %w", state.ErrInvalidAmount)
	}
	if p.InitialVirtualSol == 0 || p.InitialVirtualToken == 0 {
		return fmt.Errorf("zero virtual reserve: %w", state.ErrInvalidAmount)
	}
	return nil
}

// Config wires a Program to its ledger and external collaborators.
type Config struct {
	ProgramID       solana.PublicKey
	TokenProgramID  solana.PublicKey // defaults to the SPL token program
	MetadataProgram solana.PublicKey // defaults to MetadataProgramID
	Defaults        Params
}

type Program struct {
	id              solana.PublicKey
	tokenProgram    solana.PublicKey
	metadataProgram solana.PublicKey
	pda             *pda.Deriver
	ledger          *ledger.Ledger
	metadata        MetadataWriter
	sink            liquidity.Sink
	defaults        Params
	logger          *zap.Logger
}

func New(cfg Config, led *ledger.Ledger, metadata MetadataWriter, sink liquidity.Sink, logger *zap.Logger) (*Program, error) {
	if cfg.ProgramID.IsZero() {
		return nil, fmt.Errorf("program id is required")
	}
	if led == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if err := cfg.Defaults.validate(); err != nil {
		return nil, fmt.Errorf("default params: %w", err)
	}
	if cfg.TokenProgramID.IsZero() {
		cfg.TokenProgramID = solana.TokenProgramID
	}
	if cfg.MetadataProgram.IsZero() {
		cfg.MetadataProgram = MetadataProgramID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metadata == nil {
		metadata = NewAccountMetadataWriter(cfg.MetadataProgram)
	}
	if sink == nil {
		sink = liquidity.NewRecorder(logger)
	}
	return &Program{
		id:              cfg.ProgramID,
		tokenProgram:    cfg.TokenProgramID,
		metadataProgram: cfg.MetadataProgram,
		pda:             pda.NewDeriver(cfg.ProgramID),
		ledger:          led,
		metadata:        metadata,
		sink:            sink,
		defaults:        cfg.Defaults,
		logger:          logger,
	}, nil
}

// ID returns the program's own identity.
func (p *Program) ID() solana.PublicKey { return p.id }

// Deriver exposes the program's address derivation for clients.
func (p *Program) Deriver() *pda.Deriver { return p.pda }

// instruction is the generic carrier handlers are packed into: a name for
// logs, the declared account set, and the handler body.
type instruction struct {
	name  string
	metas []ledger.AccountMeta
	run   func(tc *ledger.TxContext) error
}

func (i *instruction) Name() string                       { return i.name }
func (i *instruction) Accounts() []ledger.AccountMeta     { return i.metas }
func (i *instruction) Execute(tc *ledger.TxContext) error { return i.run(tc) }

// tradeAccounts is the derived account set shared by the trading paths.
type tradeAccounts struct {
	mint    solana.PublicKey
	vault   solana.PublicKey
	escrow  solana.PublicKey
	global  solana.PublicKey
	pool    solana.PublicKey
	userATA solana.PublicKey
}

func (p *Program) tradeAccountsFor(user, mint solana.PublicKey) (tradeAccounts, error) {
	var a tradeAccounts
	var err error
	a.mint = mint
	if a.vault, _, err = p.pda.TokenVault(mint); err != nil {
		return a, fmt.Errorf("derive token vault: %w", err)
	}
	if a.escrow, _, err = p.pda.Escrow(mint); err != nil {
		return a, fmt.Errorf("derive escrow: %w", err)
	}
	if a.global, _, err = p.pda.GlobalInfo(); err != nil {
		return a, fmt.Errorf("derive global info: %w", err)
	}
	if a.pool, _, err = p.pda.TokenPool(mint); err != nil {
		return a, fmt.Errorf("derive token pool: %w", err)
	}
	if a.userATA, _, err = solana.FindAssociatedTokenAddress(user, mint); err != nil {
		return a, fmt.Errorf("derive associated token account: %w", err)
	}
	return a, nil
}

func (p *Program) loadOwned(tc *ledger.TxContext, addr solana.PublicKey, role string) (*ledger.Account, error) {
	acct, err := tc.Account(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", role, err)
	}
	if !acct.Owner.Equals(p.id) {
		return nil, fmt.Errorf("%s owned by %s: %w", role, acct.Owner.String(), state.ErrAccountMismatch)
	}
	return acct, nil
}

func (p *Program) loadGlobal(tc *ledger.TxContext, addr solana.PublicKey) (*state.GlobalInfo, error) {
	acct, err := p.loadOwned(tc, addr, "global info")
	if err != nil {
		return nil, err
	}
	return state.DecodeGlobalInfo(acct.Data)
}

func (p *Program) storeGlobal(tc *ledger.TxContext, addr solana.PublicKey, g *state.GlobalInfo) error {
	acct, err := tc.Account(addr)
	if err != nil {
		return err
	}
	data, err := g.Marshal()
	if err != nil {
		return err
	}
	acct.Data = data
	return nil
}

func (p *Program) loadPool(tc *ledger.TxContext, addr, mint solana.PublicKey) (*state.TokenPool, error) {
	acct, err := p.loadOwned(tc, addr, "token pool")
	if err != nil {
		return nil, err
	}
	pool, err := state.DecodeTokenPool(acct.Data)
	if err != nil {
		return nil, err
	}
	if !pool.Mint.Equals(mint) {
		return nil, fmt.Errorf("pool belongs to %s: %w", pool.Mint.String(), state.ErrAccountMismatch)
	}
	return pool, nil
}

func (p *Program) storePool(tc *ledger.TxContext, addr solana.PublicKey, pool *state.TokenPool) error {
	acct, err := tc.Account(addr)
	if err != nil {
		return err
	}
	data, err := pool.Marshal()
	if err != nil {
		return err
	}
	acct.Data = data
	return nil
}

func (p *Program) loadTokenAccount(tc *ledger.TxContext, addr solana.PublicKey, role string) (*state.TokenAccount, error) {
	acct, err := tc.Account(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", role, err)
	}
	if !acct.Owner.Equals(p.tokenProgram) {
		return nil, fmt.Errorf("%s owned by %s: %w", role, acct.Owner.String(), state.ErrAccountMismatch)
	}
	return state.DecodeTokenAccount(acct.Data)
}

func (p *Program) storeTokenAccount(tc *ledger.TxContext, addr solana.PublicKey, t *state.TokenAccount) error {
	acct, err := tc.Account(addr)
	if err != nil {
		return err
	}
	data, err := t.Marshal()
	if err != nil {
		return err
	}
	acct.Data = data
	return nil
}

// poolView projects the persisted pool into the pricing engine's view.
func poolView(pool *state.TokenPool) curve.Pool {
	return curve.Pool{
		VirtualSolReserve:    pool.VirtualSolReserve,
		VirtualTokenReserve:  pool.VirtualTokenReserve,
		RealSolReserve:       pool.RealSolReserve,
		RealTokenReserve:     pool.RealTokenReserve,
		CumulativeTokensSold: pool.CumulativeTokensSold,
		Migrated:             pool.Migrated,
	}
}

func applyPoolView(pool *state.TokenPool, v curve.Pool) {
	pool.VirtualSolReserve = v.VirtualSolReserve
	pool.VirtualTokenReserve = v.VirtualTokenReserve
	pool.RealSolReserve = v.RealSolReserve
	pool.RealTokenReserve = v.RealTokenReserve
	pool.CumulativeTokensSold = v.CumulativeTokensSold
	pool.Migrated = v.Migrated
}

// assertPoolBacking enforces the pairing between curve deltas and vault
// deltas. A divergence is a programming error in the handler, not a
// recoverable condition.
func assertPoolBacking(pool *state.TokenPool, escrowLamports, vaultAmount uint64) {
	if escrowLamports != pool.RealSolReserve || vaultAmount != pool.RealTokenReserve {
		panic(fmt.Sprintf(
			"reserve accounting mismatch for %s: escrow=%d real_sol=%d vault=%d real_token=%d",
			pool.Mint.String(), escrowLamports, pool.RealSolReserve, vaultAmount, pool.RealTokenReserve))
	}
}
