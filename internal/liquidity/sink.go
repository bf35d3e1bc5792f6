// internal/liquidity/sink.go
//
// Capability boundary for the external AMM the migration step feeds into.
// The engine drains a migrated pool's real reserves into the AMM-side
// accounts and hands the amounts to a Sink; the concrete pool-creation
// protocol belongs to the external system.
package liquidity

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// SeedParams describes one liquidity seeding: which mint migrated, where the
// two legs went, and how much of each. SolPrice is the caller-supplied price
// hint the AMM uses for its initial tick.
type SeedParams struct {
	Mint        solana.PublicKey
	CoinAccount solana.PublicKey
	PCAccount   solana.PublicKey
	TokenAmount uint64
	SolAmount   uint64
	SolPrice    uint64
}

type Sink interface {
	Seed(params SeedParams) error
}

// Recorder is an in-memory Sink for tests and the harness.
type Recorder struct {
	mu     sync.Mutex
	seeds  []SeedParams
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

func (r *Recorder) Seed(params SeedParams) error {
	r.mu.Lock()
	r.seeds = append(r.seeds, params)
	r.mu.Unlock()

	r.logger.Info("liquidity seeded to AMM",
		zap.String("mint", params.Mint.String()),
		zap.Uint64("token_amount", params.TokenAmount),
		zap.Uint64("sol_amount", params.SolAmount),
		zap.Uint64("sol_price", params.SolPrice))
	return nil
}

// Seeds returns a copy of everything recorded so far.
func (r *Recorder) Seeds() []SeedParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SeedParams, len(r.seeds))
	copy(out, r.seeds)
	return out
}
