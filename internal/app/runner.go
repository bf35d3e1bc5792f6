// internal/app/runner.go
//
// Demo harness wiring the whole engine together: config, logging, the
// in-memory ledger, the instruction journal and a small concurrent trading
// scenario that takes one token all the way through migration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/eventlog"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/liquidity"
	"github.com/rovshanmuradov/launchpad/internal/logger"
	"github.com/rovshanmuradov/launchpad/internal/program"
	"github.com/rovshanmuradov/launchpad/internal/state"
	"github.com/rovshanmuradov/launchpad/internal/submit"
)

const lamportsPerSol = 1_000_000_000

type Runner struct {
	log       *logger.Logger
	cfg       *config.Config
	ledger    *ledger.Ledger
	program   *program.Program
	submitter *submit.Submitter
	journal   *eventlog.Log
	sink      *liquidity.Recorder
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Initialize(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	r.cfg = cfg

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	r.log = log

	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("parse program_id: %w", err)
	}

	r.ledger = ledger.New(log.Logger)
	r.sink = liquidity.NewRecorder(log.Logger)
	r.program, err = program.New(program.Config{
		ProgramID: programID,
		Defaults: program.Params{
			FeeBasisPoints:      cfg.FeeBasisPoints,
			MigrationThreshold:  cfg.MigrationThreshold,
			TotalSupply:         cfg.TotalSupply,
			InitialVirtualSol:   cfg.InitialVirtualSol,
			InitialVirtualToken: cfg.InitialVirtualToken,
		},
	}, r.ledger, nil, r.sink, log.Logger)
	if err != nil {
		return fmt.Errorf("init program: %w", err)
	}

	r.submitter = submit.New(r.ledger, log.Logger,
		submit.WithMaxElapsed(time.Duration(cfg.SubmitRetryMs)*time.Millisecond))

	r.journal, err = eventlog.Open(cfg.JournalPath, log.Logger)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	return nil
}

// Run drives the scenario: an admin initializes the registry, two creators
// launch tokens concurrently, traders buy and sell against both curves, one
// pool is pushed over the migration threshold and its liquidity is seeded
// into the AMM-side accounts.
func (r *Runner) Run(ctx context.Context) error {
	opLog := r.log.WithOperation("launch-scenario")

	admin := solana.NewWallet().PublicKey()
	r.ledger.Seed(admin, solana.SystemProgramID, 10*lamportsPerSol)
	if err := r.program.Initialize(admin); err != nil {
		return fmt.Errorf("initialize registry: %w", err)
	}

	// A threshold the demo traders can actually reach.
	demoThreshold := uint64(500_000_000_000_000)
	if err := r.program.SetParams(admin, program.ParamUpdate{
		MigrationThreshold: &demoThreshold,
	}); err != nil {
		return fmt.Errorf("set params: %w", err)
	}

	launches := []struct {
		name, symbol string
	}{
		{"Degen Dog", "DDOG"},
		{"Moon Cat", "MCAT"},
	}

	g, gctx := errgroup.WithContext(ctx)
	mints := make([]solana.PublicKey, len(launches))
	for i, launch := range launches {
		g.Go(func() error {
			creator := solana.NewWallet().PublicKey()
			r.ledger.Seed(creator, solana.SystemProgramID, 100*lamportsPerSol)

			// Both creators write the shared registry account, so the
			// launches go through the submitter to absorb the conflicts.
			var res program.CreateTokenResult
			ins, err := r.program.CreateTokenInstruction(creator, program.CreateTokenParams{
				Name:       launch.name,
				Symbol:     launch.symbol,
				URI:        "https://launchpad.example/" + launch.symbol + ".json",
				Decimals:   6,
				InitialBuy: 1 * lamportsPerSol,
			}, &res)
			if err != nil {
				return fmt.Errorf("create %s: %w", launch.symbol, err)
			}
			if err := r.submitter.Submit(gctx, ins); err != nil {
				return fmt.Errorf("create %s: %w", launch.symbol, err)
			}
			mints[i] = res.Mint

			r.recordTrade(gctx, "create_token", res.Mint, creator, res.InitialBuy)
			opLog.Info("token launched",
				zap.String("symbol", launch.symbol),
				zap.String("mint", res.Mint.String()))
			return r.trade(gctx, res.Mint)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := r.migrate(ctx, admin, mints[0]); err != nil {
		return err
	}

	if err := r.withdraw(ctx, admin); err != nil {
		return err
	}

	return r.report(ctx, mints)
}

// trade runs a handful of buys and one sell against the mint's curve through
// the submitter, so concurrent scenarios bounce off each other's write sets
// instead of corrupting them.
func (r *Runner) trade(ctx context.Context, mint solana.PublicKey) error {
	trader := solana.NewWallet().PublicKey()
	r.ledger.Seed(trader, solana.SystemProgramID, 200*lamportsPerSol)

	for i := 0; i < 3; i++ {
		var res program.TradeResult
		ins, err := r.program.BuyTokenInstruction(trader, mint, 5*lamportsPerSol, &res)
		if err != nil {
			return err
		}
		if err := r.submitter.Submit(ctx, ins); err != nil {
			return fmt.Errorf("buy %s: %w", mint.String(), err)
		}
		r.recordTrade(ctx, "buy_token", mint, trader, &res)
	}

	held, err := r.program.TokenBalance(trader, mint)
	if err != nil {
		return err
	}
	var res program.TradeResult
	ins, err := r.program.SellTokenInstruction(trader, mint, held/2, &res)
	if err != nil {
		return err
	}
	if err := r.submitter.Submit(ctx, ins); err != nil {
		return fmt.Errorf("sell %s: %w", mint.String(), err)
	}
	r.recordTrade(ctx, "sell_token", mint, trader, &res)
	return nil
}

// migrate buys until the pool crosses the threshold, then seeds the AMM.
func (r *Runner) migrate(ctx context.Context, admin, mint solana.PublicKey) error {
	whale := solana.NewWallet().PublicKey()
	r.ledger.Seed(whale, solana.SystemProgramID, 100_000*lamportsPerSol)

	for {
		res, err := r.program.BuyToken(whale, mint, 20*lamportsPerSol)
		if err != nil {
			return fmt.Errorf("whale buy: %w", err)
		}
		r.recordTrade(ctx, "buy_token", mint, whale, res)
		if res.Migrated {
			break
		}
	}

	coinDest := solana.NewWallet().PublicKey()
	pcDest := solana.NewWallet().PublicKey()
	coin := state.TokenAccount{Mint: mint, Owner: admin}
	coinData, err := coin.Marshal()
	if err != nil {
		return err
	}
	r.ledger.SeedWithData(coinDest, solana.TokenProgramID, 0, coinData)
	r.ledger.Seed(pcDest, solana.SystemProgramID, 0)

	res, err := r.program.AddLiquidity(admin, mint, coinDest, pcDest, currentPriceLamports(r.program, mint))
	if err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}

	r.log.Info("pool graduated to AMM",
		zap.String("mint", mint.String()),
		zap.String("sol_leg", formatSol(res.SolAmount)),
		zap.Uint64("token_leg", res.TokenAmount))
	return nil
}

func (r *Runner) withdraw(ctx context.Context, admin solana.PublicKey) error {
	g, err := r.program.GlobalInfo()
	if err != nil {
		return err
	}
	if g.AccruedFees == 0 {
		return nil
	}
	if err := r.program.WithdrawBalance(admin, g.AccruedFees); err != nil {
		return fmt.Errorf("withdraw fees: %w", err)
	}
	if err := r.journal.Record(ctx, eventlog.Event{
		Instruction: "withdraw_balance",
		Actor:       admin.String(),
		AmountOut:   g.AccruedFees,
	}); err != nil {
		return err
	}
	r.log.Info("fees withdrawn", zap.String("amount", formatSol(g.AccruedFees)))
	return nil
}

func (r *Runner) report(ctx context.Context, mints []solana.PublicKey) error {
	for _, mint := range mints {
		pool, err := r.program.Pool(mint)
		if err != nil {
			return err
		}
		meta, err := r.program.Metadata(mint)
		if err != nil {
			return err
		}
		r.log.Info("final pool state",
			zap.String("symbol", meta.Symbol),
			zap.String("mint", mint.String()),
			zap.String("real_sol", formatSol(pool.RealSolReserve)),
			zap.Uint64("real_tokens", pool.RealTokenReserve),
			zap.Uint64("tokens_sold", pool.CumulativeTokensSold),
			zap.Bool("migrated", pool.Migrated),
			zap.Bool("liquidity_seeded", pool.LiquiditySeeded))
	}

	events, err := r.journal.Recent(ctx, 10)
	if err != nil {
		return err
	}
	r.log.Info("journal tail", zap.Int("events", len(events)))
	return nil
}

func (r *Runner) recordTrade(ctx context.Context, name string, mint, actor solana.PublicKey, res *program.TradeResult) {
	ev := eventlog.Event{
		Instruction: name,
		Mint:        mint.String(),
		Actor:       actor.String(),
	}
	if res != nil {
		ev.AmountIn = res.Quote.AmountIn
		ev.AmountOut = res.Quote.AmountOut
		ev.Fee = res.Quote.Fee
	}
	if err := r.journal.Record(ctx, ev); err != nil {
		r.log.Warn("journal write failed", zap.Error(err))
	}
}

func (r *Runner) Close() {
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.log.Warn("journal close failed", zap.Error(err))
		}
	}
	if r.log != nil {
		_ = r.log.Sync()
	}
}

// currentPriceLamports approximates the spot price in lamports per whole
// token from the virtual reserves, as the hint handed to the AMM.
func currentPriceLamports(p *program.Program, mint solana.PublicKey) uint64 {
	pool, err := p.Pool(mint)
	if err != nil || pool.VirtualTokenReserve == 0 {
		return 0
	}
	price := decimal.NewFromUint64(pool.VirtualSolReserve).
		Div(decimal.NewFromUint64(pool.VirtualTokenReserve)).
		Mul(decimal.NewFromInt(1_000_000))
	return uint64(price.IntPart())
}

func formatSol(lamports uint64) string {
	return decimal.NewFromUint64(lamports).
		Div(decimal.NewFromInt(lamportsPerSol)).
		StringFixed(4) + " SOL"
}
