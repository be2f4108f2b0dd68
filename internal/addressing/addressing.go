package addressing

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Deriver maps (namespace tag, owning-entity key) pairs to stable base58
// addresses using Solana program-derived-address rules. The derivation is a
// pure function of the program id, so any client can compute the same
// addresses without a lookup service.
type Deriver struct {
	programID solana.PublicKey
}

// NewDeriver creates a Deriver for the given base58 program id.
func NewDeriver(programID string) (*Deriver, error) {
	pk, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}
	return &Deriver{programID: pk}, nil
}

func (d *Deriver) derive(seeds [][]byte) (string, error) {
	pda, _, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return "", fmt.Errorf("failed to derive address: %w", err)
	}
	return pda.String(), nil
}

// ConfigAddress derives the well-known singleton config address.
func (d *Deriver) ConfigAddress() (string, error) {
	return d.derive([][]byte{[]byte("config")})
}

// MarketAddress derives a market's address from its 128-bit id.
func (d *Deriver) MarketAddress(marketID uuid.UUID) (string, error) {
	id := marketID // copy so the slice below has a stable backing array
	return d.derive([][]byte{[]byte("market"), id[:]})
}

// EscrowAddress derives the escrow holding address owned by a market.
func (d *Deriver) EscrowAddress(marketAddress string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(marketAddress)
	if err != nil {
		return "", fmt.Errorf("invalid market address: %w", err)
	}
	return d.derive([][]byte{[]byte("escrow"), pk.Bytes()})
}

// OpinionAddress derives the address of a staker's opinion in a market.
func (d *Deriver) OpinionAddress(marketAddress, staker string) (string, error) {
	mpk, err := solana.PublicKeyFromBase58(marketAddress)
	if err != nil {
		return "", fmt.Errorf("invalid market address: %w", err)
	}
	spk, err := solana.PublicKeyFromBase58(staker)
	if err != nil {
		return "", fmt.Errorf("invalid staker address: %w", err)
	}
	return d.derive([][]byte{[]byte("opinion"), mpk.Bytes(), spk.Bytes()})
}

// VRFRequestAddress derives the address of a market's randomness request.
func (d *Deriver) VRFRequestAddress(marketAddress string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(marketAddress)
	if err != nil {
		return "", fmt.Errorf("invalid market address: %w", err)
	}
	return d.derive([][]byte{[]byte("vrf_request"), pk.Bytes()})
}

// ValidateIdentity checks that s is a well-formed base58 public key.
func ValidateIdentity(s string) error {
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return fmt.Errorf("invalid identity %q: %w", s, err)
	}
	return nil
}
