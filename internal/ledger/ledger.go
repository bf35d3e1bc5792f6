// internal/ledger/ledger.go
//
// In-memory account ledger with the execution semantics of the host chain:
// every instruction declares its read and write sets up front, writable
// accounts are exclusively locked for the duration of the instruction, and
// all mutations are staged on clones that only replace the live accounts when
// the handler returns without error.
package ledger

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/state"
)

// Account is one ledger entry: an address, the program that owns it, a
// lamport balance and opaque data bytes.
type Account struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

func (a *Account) Clone() *Account {
	cp := *a
	cp.Data = append([]byte(nil), a.Data...)
	return &cp
}

// AccountMeta declares one account of an instruction's account set.
type AccountMeta struct {
	Address  solana.PublicKey
	Writable bool
	Signer   bool
}

// Instruction is one atomic unit of execution. Accounts must return the full
// read/write set before Execute runs; touching an undeclared account fails
// the instruction.
type Instruction interface {
	Name() string
	Accounts() []AccountMeta
	Execute(tc *TxContext) error
}

type Ledger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*Account
	guards   map[solana.PublicKey]*sync.RWMutex
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		accounts: make(map[solana.PublicKey]*Account),
		guards:   make(map[solana.PublicKey]*sync.RWMutex),
		logger:   logger,
	}
}

// Seed installs a genesis account outside any instruction. Used to fund
// wallets in tests and the harness; on a real ledger this is the job of the
// system program.
func (l *Ledger) Seed(addr, owner solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[addr] = &Account{Address: addr, Owner: owner, Lamports: lamports}
}

// SeedWithData installs a genesis account with data bytes, for accounts owned
// by programs outside the engine.
func (l *Ledger) SeedWithData(addr, owner solana.PublicKey, lamports uint64, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[addr] = &Account{
		Address:  addr,
		Owner:    owner,
		Lamports: lamports,
		Data:     append([]byte(nil), data...),
	}
}

// Account returns a clone of the account at addr, or false if it does not
// exist. Read-only; safe to call concurrently with Execute.
func (l *Ledger) Account(addr solana.PublicKey) (*Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[addr]
	if !ok {
		return nil, false
	}
	return acct.Clone(), true
}

// Balance returns the lamport balance at addr, zero if the account is absent.
func (l *Ledger) Balance(addr solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[addr]; ok {
		return acct.Lamports
	}
	return 0
}

func (l *Ledger) guard(addr solana.PublicKey) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.guards[addr]
	if !ok {
		g = &sync.RWMutex{}
		l.guards[addr] = g
	}
	return g
}

// Execute runs one instruction to completion or not at all. Conflicting
// write sets fail fast with ErrAccountInUse instead of blocking; the
// submitting side decides whether to retry, the way a chain scheduler
// re-queues a conflicting transaction.
func (l *Ledger) Execute(ins Instruction) error {
	metas := mergeMetas(ins.Accounts())

	unlock, err := l.lockSets(metas)
	if err != nil {
		l.logger.Debug("write-set conflict",
			zap.String("instruction", ins.Name()),
			zap.Error(err))
		return err
	}
	defer unlock()

	tc := &TxContext{
		ledger: l,
		metas:  make(map[solana.PublicKey]AccountMeta, len(metas)),
		staged: make(map[solana.PublicKey]*Account),
	}
	for _, m := range metas {
		tc.metas[m.Address] = m
	}

	if err := ins.Execute(tc); err != nil {
		l.logger.Debug("instruction aborted",
			zap.String("instruction", ins.Name()),
			zap.Error(err))
		return err
	}

	tc.commit()
	l.logger.Debug("instruction committed",
		zap.String("instruction", ins.Name()),
		zap.Int("accounts", len(metas)))
	return nil
}

// lockSets acquires guards for the whole account set in address order,
// exclusively for writable accounts and shared for read-only ones. Any
// contention releases everything already held.
func (l *Ledger) lockSets(metas []AccountMeta) (func(), error) {
	held := make([]func(), 0, len(metas))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, m := range metas {
		g := l.guard(m.Address)
		if m.Writable {
			if !g.TryLock() {
				release()
				return nil, fmt.Errorf("%s: %w", m.Address.String(), state.ErrAccountInUse)
			}
			held = append(held, g.Unlock)
		} else {
			if !g.TryRLock() {
				release()
				return nil, fmt.Errorf("%s: %w", m.Address.String(), state.ErrAccountInUse)
			}
			held = append(held, g.RUnlock)
		}
	}
	return release, nil
}

// mergeMetas collapses duplicate addresses (writable wins, signer sticks) and
// sorts by address so lock acquisition has a global order.
func mergeMetas(in []AccountMeta) []AccountMeta {
	byAddr := make(map[solana.PublicKey]AccountMeta, len(in))
	for _, m := range in {
		if prev, ok := byAddr[m.Address]; ok {
			prev.Writable = prev.Writable || m.Writable
			prev.Signer = prev.Signer || m.Signer
			byAddr[m.Address] = prev
			continue
		}
		byAddr[m.Address] = m
	}
	out := make([]AccountMeta, 0, len(byAddr))
	for _, m := range byAddr {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}
