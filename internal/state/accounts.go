// internal/state/accounts.go
package state

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// accountDiscriminator returns the 8-byte tag prepended to every account's
// data, derived the same way Anchor derives it so layouts stay wire-compatible.
func accountDiscriminator(name string) [8]byte {
	h := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], h[:8])
	return d
}

var (
	GlobalInfoDiscriminator    = accountDiscriminator("GlobalInfo")
	TokenPoolDiscriminator     = accountDiscriminator("TokenPool")
	MintDiscriminator          = accountDiscriminator("Mint")
	TokenAccountDiscriminator  = accountDiscriminator("TokenAccount")
	TokenMetadataDiscriminator = accountDiscriminator("TokenMetadata")
)

// GlobalInfo is the protocol-wide singleton: admin identity, fee schedule,
// migration threshold and the running total of accrued protocol fees. The
// default supply and virtual reserves seed every newly created pool.
type GlobalInfo struct {
	Admin               solana.PublicKey
	FeeBasisPoints      uint32
	MigrationThreshold  uint64
	AccruedFees         uint64
	TokenCount          uint32
	TotalSupply         uint64
	InitialVirtualSol   uint64
	InitialVirtualToken uint64
	Bump                uint8
}

// TokenPool is the bonding-curve state for one mint. Virtual reserves drive
// pricing; real reserves mirror the escrow and token vault balances exactly.
type TokenPool struct {
	Mint                 solana.PublicKey
	VirtualSolReserve    uint64
	VirtualTokenReserve  uint64
	RealSolReserve       uint64
	RealTokenReserve     uint64
	CumulativeTokensSold uint64
	Migrated             bool
	LiquiditySeeded      bool
	Bump                 uint8
}

// Mint mirrors the token program's mint layout: the authority stays with the
// mint PDA itself for the life of the curve.
type Mint struct {
	Authority solana.PublicKey
	Supply    uint64
	Decimals  uint8
}

// TokenAccount mirrors the token program's account layout.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// TokenMetadata is the name/symbol/uri record stored under the external
// metadata program's derived account.
type TokenMetadata struct {
	Name   string
	Symbol string
	URI    string
}

func marshalAccount(disc [8]byte, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshalAccount(disc [8]byte, data []byte, v interface{}) error {
	if len(data) < 8 || !bytes.Equal(data[:8], disc[:]) {
		return fmt.Errorf("unexpected account discriminator: %w", ErrAccountMismatch)
	}
	if err := bin.NewBorshDecoder(data[8:]).Decode(v); err != nil {
		return fmt.Errorf("decode account: %w", err)
	}
	return nil
}

func (g *GlobalInfo) Marshal() ([]byte, error) {
	return marshalAccount(GlobalInfoDiscriminator, g)
}

func DecodeGlobalInfo(data []byte) (*GlobalInfo, error) {
	var g GlobalInfo
	if err := unmarshalAccount(GlobalInfoDiscriminator, data, &g); err != nil {
		return nil, fmt.Errorf("global info: %w", err)
	}
	return &g, nil
}

func (p *TokenPool) Marshal() ([]byte, error) {
	return marshalAccount(TokenPoolDiscriminator, p)
}

func DecodeTokenPool(data []byte) (*TokenPool, error) {
	var p TokenPool
	if err := unmarshalAccount(TokenPoolDiscriminator, data, &p); err != nil {
		return nil, fmt.Errorf("token pool: %w", err)
	}
	return &p, nil
}

func (m *Mint) Marshal() ([]byte, error) {
	return marshalAccount(MintDiscriminator, m)
}

func DecodeMint(data []byte) (*Mint, error) {
	var m Mint
	if err := unmarshalAccount(MintDiscriminator, data, &m); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	return &m, nil
}

func (t *TokenAccount) Marshal() ([]byte, error) {
	return marshalAccount(TokenAccountDiscriminator, t)
}

func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	var t TokenAccount
	if err := unmarshalAccount(TokenAccountDiscriminator, data, &t); err != nil {
		return nil, fmt.Errorf("token account: %w", err)
	}
	return &t, nil
}

func (m *TokenMetadata) Marshal() ([]byte, error) {
	return marshalAccount(TokenMetadataDiscriminator, m)
}

func DecodeTokenMetadata(data []byte) (*TokenMetadata, error) {
	var m TokenMetadata
	if err := unmarshalAccount(TokenMetadataDiscriminator, data, &m); err != nil {
		return nil, fmt.Errorf("token metadata: %w", err)
	}
	return &m, nil
}
