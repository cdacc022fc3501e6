package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Signer signs registry transactions with the operator-held ed25519 key.
// End users never sign; their wallet address is recorded as payload data
// while authorization stays with the operator.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	address    string
}

// NewSigner builds a signer from a hex-encoded ed25519 private key. Both
// 32-byte seeds and 64-byte expanded keys are accepted.
func NewSigner(keyHex string) (*Signer, error) {
	keyHex = strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode operator key: %w", err)
	}

	var privateKey ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		privateKey = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		privateKey = ed25519.PrivateKey(raw)
	default:
		return nil, fmt.Errorf("operator key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}

	publicKey := privateKey.Public().(ed25519.PublicKey)
	return &Signer{
		privateKey: privateKey,
		publicKey:  publicKey,
		address:    deriveAddress(publicKey),
	}, nil
}

// Address returns the operator account address.
func (s *Signer) Address() string { return s.address }

// PublicKeyHex returns the hex-encoded public key with 0x prefix.
func (s *Signer) PublicKeyHex() string {
	return "0x" + hex.EncodeToString(s.publicKey)
}

// Sign signs a hex-encoded signing message and returns the signed
// transaction ready for submission.
func (s *Signer) Sign(tx *TransactionRequest, signingMessage string) (*SignedTransaction, error) {
	message, err := hex.DecodeString(strings.TrimPrefix(signingMessage, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode signing message: %w", err)
	}

	signature := ed25519.Sign(s.privateKey, message)
	return &SignedTransaction{
		TransactionRequest: *tx,
		Signature: Ed25519Signature{
			Type:      "ed25519_signature",
			PublicKey: s.PublicKeyHex(),
			Signature: "0x" + hex.EncodeToString(signature),
		},
	}, nil
}

// deriveAddress computes the single-key account address: the SHA3-256 digest
// of the public key followed by the single-signature scheme byte 0x00.
func deriveAddress(publicKey ed25519.PublicKey) string {
	hasher := sha3.New256()
	hasher.Write(publicKey)
	hasher.Write([]byte{0x00})
	return "0x" + hex.EncodeToString(hasher.Sum(nil))
}
