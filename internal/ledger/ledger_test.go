package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/state"
)

type testIns struct {
	name  string
	metas []AccountMeta
	run   func(tc *TxContext) error
}

func (i *testIns) Name() string                { return i.name }
func (i *testIns) Accounts() []AccountMeta     { return i.metas }
func (i *testIns) Execute(tc *TxContext) error { return i.run(tc) }

func wallets(n int) []solana.PublicKey {
	out := make([]solana.PublicKey, n)
	for i := range out {
		out[i] = solana.NewWallet().PublicKey()
	}
	return out
}

func TestTransferCommits(t *testing.T) {
	l := New(nil)
	w := wallets(2)
	l.Seed(w[0], solana.SystemProgramID, 1_000)
	l.Seed(w[1], solana.SystemProgramID, 0)

	err := l.Execute(&testIns{
		name: "transfer",
		metas: []AccountMeta{
			{Address: w[0], Writable: true, Signer: true},
			{Address: w[1], Writable: true},
		},
		run: func(tc *TxContext) error {
			return tc.Transfer(w[0], w[1], 400)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(600), l.Balance(w[0]))
	assert.Equal(t, uint64(400), l.Balance(w[1]))
}

func TestFailedInstructionRollsBack(t *testing.T) {
	l := New(nil)
	w := wallets(2)
	l.Seed(w[0], solana.SystemProgramID, 1_000)
	l.Seed(w[1], solana.SystemProgramID, 0)

	boom := errors.New("handler failed late")
	err := l.Execute(&testIns{
		name: "partial",
		metas: []AccountMeta{
			{Address: w[0], Writable: true},
			{Address: w[1], Writable: true},
		},
		run: func(tc *TxContext) error {
			if err := tc.Transfer(w[0], w[1], 999); err != nil {
				return err
			}
			return boom
		},
	})
	require.ErrorIs(t, err, boom)

	// The transfer inside the failed instruction must not be visible.
	assert.Equal(t, uint64(1_000), l.Balance(w[0]))
	assert.Equal(t, uint64(0), l.Balance(w[1]))
}

func TestUndeclaredAccountRejected(t *testing.T) {
	l := New(nil)
	w := wallets(2)
	l.Seed(w[0], solana.SystemProgramID, 1_000)
	l.Seed(w[1], solana.SystemProgramID, 1_000)

	err := l.Execute(&testIns{
		name:  "sneaky",
		metas: []AccountMeta{{Address: w[0], Writable: true}},
		run: func(tc *TxContext) error {
			_, err := tc.Account(w[1])
			return err
		},
	})
	assert.ErrorIs(t, err, state.ErrAccountNotDeclared)
}

func TestReadOnlyAccountNotCommitted(t *testing.T) {
	l := New(nil)
	w := wallets(1)
	l.Seed(w[0], solana.SystemProgramID, 1_000)

	err := l.Execute(&testIns{
		name:  "readonly-mutation",
		metas: []AccountMeta{{Address: w[0], Writable: false}},
		run: func(tc *TxContext) error {
			acct, err := tc.Account(w[0])
			if err != nil {
				return err
			}
			acct.Lamports = 0 // mutating the clone of a read-only account
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), l.Balance(w[0]))
}

func TestTransferInsufficientFunds(t *testing.T) {
	l := New(nil)
	w := wallets(2)
	l.Seed(w[0], solana.SystemProgramID, 100)
	l.Seed(w[1], solana.SystemProgramID, 0)

	err := l.Execute(&testIns{
		name: "overdraw",
		metas: []AccountMeta{
			{Address: w[0], Writable: true},
			{Address: w[1], Writable: true},
		},
		run: func(tc *TxContext) error {
			return tc.Transfer(w[0], w[1], 101)
		},
	})
	assert.ErrorIs(t, err, state.ErrInsufficientFunds)
}

func TestTransferDestinationOverflow(t *testing.T) {
	l := New(nil)
	w := wallets(2)
	l.Seed(w[0], solana.SystemProgramID, 10)
	l.Seed(w[1], solana.SystemProgramID, math.MaxUint64)

	err := l.Execute(&testIns{
		name: "overflow",
		metas: []AccountMeta{
			{Address: w[0], Writable: true},
			{Address: w[1], Writable: true},
		},
		run: func(tc *TxContext) error {
			return tc.Transfer(w[0], w[1], 5)
		},
	})
	assert.ErrorIs(t, err, state.ErrOverflow)

	assert.Equal(t, uint64(10), l.Balance(w[0]))
	assert.Equal(t, uint64(math.MaxUint64), l.Balance(w[1]))
}

func TestCreateRequiresWritableAndAbsent(t *testing.T) {
	l := New(nil)
	w := wallets(1)
	owner := solana.NewWallet().PublicKey()

	err := l.Execute(&testIns{
		name:  "create-readonly",
		metas: []AccountMeta{{Address: w[0], Writable: false}},
		run: func(tc *TxContext) error {
			_, err := tc.Create(w[0], owner)
			return err
		},
	})
	assert.ErrorIs(t, err, state.ErrAccountNotDeclared)

	l.Seed(w[0], owner, 0)
	err = l.Execute(&testIns{
		name:  "create-existing",
		metas: []AccountMeta{{Address: w[0], Writable: true}},
		run: func(tc *TxContext) error {
			_, err := tc.Create(w[0], owner)
			return err
		},
	})
	assert.ErrorIs(t, err, state.ErrAlreadyExists)
}

func TestConflictingWriteSetsFailFast(t *testing.T) {
	l := New(nil)
	w := wallets(1)
	l.Seed(w[0], solana.SystemProgramID, 1_000)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- l.Execute(&testIns{
			name:  "holder",
			metas: []AccountMeta{{Address: w[0], Writable: true}},
			run: func(tc *TxContext) error {
				close(entered)
				<-release
				return nil
			},
		})
	}()

	<-entered
	err := l.Execute(&testIns{
		name:  "contender",
		metas: []AccountMeta{{Address: w[0], Writable: true}},
		run: func(tc *TxContext) error {
			return nil
		},
	})
	assert.ErrorIs(t, err, state.ErrAccountInUse)

	close(release)
	require.NoError(t, <-done)
}

func TestDisjointWriteSetsRunInParallel(t *testing.T) {
	l := New(nil)
	w := wallets(8)
	for _, addr := range w {
		l.Seed(addr, solana.SystemProgramID, 1_000)
	}

	var g errgroup.Group
	for i := 0; i < len(w); i += 2 {
		from, to := w[i], w[i+1]
		g.Go(func() error {
			return l.Execute(&testIns{
				name: "pair-transfer",
				metas: []AccountMeta{
					{Address: from, Writable: true},
					{Address: to, Writable: true},
				},
				run: func(tc *TxContext) error {
					return tc.Transfer(from, to, 500)
				},
			})
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < len(w); i += 2 {
		assert.Equal(t, uint64(500), l.Balance(w[i]))
		assert.Equal(t, uint64(1_500), l.Balance(w[i+1]))
	}
}

func TestMergeMetasWritableWins(t *testing.T) {
	addr := solana.NewWallet().PublicKey()
	merged := mergeMetas([]AccountMeta{
		{Address: addr, Writable: false, Signer: true},
		{Address: addr, Writable: true},
	})
	require.Len(t, merged, 1)
	assert.True(t, merged[0].Writable)
	assert.True(t, merged[0].Signer)
}
