// internal/program/metadata.go
package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/state"
)

// MetadataWriter is the boundary to the external metadata program. The
// engine derives the metadata address and declares it writable; the writer
// decides what to store there.
type MetadataWriter interface {
	CreateMetadata(tc *ledger.TxContext, metadataAddr, mint solana.PublicKey, data state.TokenMetadata) error
}

// accountMetadataWriter stores the metadata record directly in the derived
// account, standing in for the real metadata program.
type accountMetadataWriter struct {
	program solana.PublicKey
}

func NewAccountMetadataWriter(metadataProgram solana.PublicKey) MetadataWriter {
	return &accountMetadataWriter{program: metadataProgram}
}

func (w *accountMetadataWriter) CreateMetadata(tc *ledger.TxContext, metadataAddr, mint solana.PublicKey, data state.TokenMetadata) error {
	acct, err := tc.Create(metadataAddr, w.program)
	if err != nil {
		return fmt.Errorf("metadata account: %w", err)
	}
	encoded, err := data.Marshal()
	if err != nil {
		return err
	}
	acct.Data = encoded
	return nil
}
