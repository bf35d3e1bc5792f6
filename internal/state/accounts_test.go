package state

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalInfoRoundTrip(t *testing.T) {
	in := GlobalInfo{
		Admin:               solana.NewWallet().PublicKey(),
		FeeBasisPoints:      100,
		MigrationThreshold:  793_100_000_000_000,
		AccruedFees:         12_345,
		TokenCount:          3,
		TotalSupply:         1_000_000_000_000_000,
		InitialVirtualSol:   30_000_000_000,
		InitialVirtualToken: 1_073_000_000_000_000,
		Bump:                254,
	}
	data, err := in.Marshal()
	require.NoError(t, err)

	out, err := DecodeGlobalInfo(data)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestTokenPoolRoundTrip(t *testing.T) {
	in := TokenPool{
		Mint:                 solana.NewWallet().PublicKey(),
		VirtualSolReserve:    31_000_000_000,
		VirtualTokenReserve:  1_041_000_000_000_000,
		RealSolReserve:       990_000_000,
		RealTokenReserve:     999_968_000_000_000,
		CumulativeTokensSold: 32_000_000_000,
		Migrated:             true,
		LiquiditySeeded:      false,
		Bump:                 253,
	}
	data, err := in.Marshal()
	require.NoError(t, err)

	out, err := DecodeTokenPool(data)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestDiscriminatorGuardsAccountType(t *testing.T) {
	pool := TokenPool{Mint: solana.NewWallet().PublicKey()}
	data, err := pool.Marshal()
	require.NoError(t, err)

	// Pool bytes must not decode as the registry.
	_, err = DecodeGlobalInfo(data)
	assert.ErrorIs(t, err, ErrAccountMismatch)

	_, err = DecodeGlobalInfo([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrAccountMismatch)
}

func TestMetadataRoundTrip(t *testing.T) {
	in := TokenMetadata{Name: "Degen Dog", Symbol: "DDOG", URI: "https://launchpad.example/DDOG.json"}
	data, err := in.Marshal()
	require.NoError(t, err)

	out, err := DecodeTokenMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}
