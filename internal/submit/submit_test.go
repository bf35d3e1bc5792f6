package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

type testIns struct {
	name  string
	metas []ledger.AccountMeta
	run   func(tc *ledger.TxContext) error
}

func (i *testIns) Name() string                       { return i.name }
func (i *testIns) Accounts() []ledger.AccountMeta     { return i.metas }
func (i *testIns) Execute(tc *ledger.TxContext) error { return i.run(tc) }

func TestSubmitSucceedsFirstTry(t *testing.T) {
	led := ledger.New(nil)
	addr := solana.NewWallet().PublicKey()
	led.Seed(addr, solana.SystemProgramID, 100)

	s := New(led, nil)
	err := s.Submit(context.Background(), &testIns{
		name:  "noop",
		metas: []ledger.AccountMeta{{Address: addr, Writable: true}},
		run:   func(tc *ledger.TxContext) error { return nil },
	})
	assert.NoError(t, err)
}

func TestSubmitDoesNotRetryHandlerErrors(t *testing.T) {
	led := ledger.New(nil)
	addr := solana.NewWallet().PublicKey()
	led.Seed(addr, solana.SystemProgramID, 100)

	attempts := 0
	boom := errors.New("precondition failed")
	s := New(led, nil)
	err := s.Submit(context.Background(), &testIns{
		name:  "failing",
		metas: []ledger.AccountMeta{{Address: addr, Writable: true}},
		run: func(tc *ledger.TxContext) error {
			attempts++
			return boom
		},
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts, "handler errors are permanent")
}

func TestSubmitRetriesWriteSetConflicts(t *testing.T) {
	led := ledger.New(nil)
	addr := solana.NewWallet().PublicKey()
	led.Seed(addr, solana.SystemProgramID, 100)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	// Holder keeps the write lock until released, so the submitter's first
	// attempts bounce with ErrAccountInUse.
	go func() {
		done <- led.Execute(&testIns{
			name:  "holder",
			metas: []ledger.AccountMeta{{Address: addr, Writable: true}},
			run: func(tc *ledger.TxContext) error {
				close(entered)
				<-release
				return nil
			},
		})
	}()
	<-entered

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	s := New(led, nil, WithMaxElapsed(2*time.Second))
	err := s.Submit(context.Background(), &testIns{
		name:  "contender",
		metas: []ledger.AccountMeta{{Address: addr, Writable: true}},
		run:   func(tc *ledger.TxContext) error { return nil },
	})
	assert.NoError(t, err, "conflict resolves once the holder finishes")
	require.NoError(t, <-done)
}

func TestSubmitGivesUpAfterBudget(t *testing.T) {
	led := ledger.New(nil)
	addr := solana.NewWallet().PublicKey()
	led.Seed(addr, solana.SystemProgramID, 100)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	defer func() {
		close(release)
		require.NoError(t, <-done)
	}()

	go func() {
		done <- led.Execute(&testIns{
			name:  "holder",
			metas: []ledger.AccountMeta{{Address: addr, Writable: true}},
			run: func(tc *ledger.TxContext) error {
				close(entered)
				<-release
				return nil
			},
		})
	}()
	<-entered

	s := New(led, nil, WithMaxElapsed(50*time.Millisecond))
	err := s.Submit(context.Background(), &testIns{
		name:  "contender",
		metas: []ledger.AccountMeta{{Address: addr, Writable: true}},
		run:   func(tc *ledger.TxContext) error { return nil },
	})
	assert.ErrorIs(t, err, state.ErrAccountInUse)
}
