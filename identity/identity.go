package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"openc/util"

	"golang.org/x/crypto/ed25519"
)

// Identity holds the signing key of the current user.
// Every state-changing registry call is signed with it,
// the registries resolve the signer to an account id.
type Identity struct {
	priv    ed25519.PrivateKey
	account string
}

// FromSeed builds an identity from a hex encoded ed25519 seed.
func FromSeed(seedHex string) (*Identity, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("user seed is not valid hex: %s", err)
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("user seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	return &Identity{
		priv:    priv,
		account: util.AccountFromPublicKey(pub),
	}, nil
}

// Account returns the textual account id derived from the public key.
func (id *Identity) Account() string {
	return id.account
}

// PublicKey returns the hex encoded public key.
func (id *Identity) PublicKey() string {
	return hex.EncodeToString(id.priv.Public().(ed25519.PublicKey))
}

// Sign returns the hex encoded signature of a request body.
func (id *Identity) Sign(body []byte) string {
	return hex.EncodeToString(ed25519.Sign(id.priv, body))
}

// Verify checks a hex signature of body against a hex public key.
func Verify(pubKeyHex, sigHex string, body []byte) error {
	pub, err := hex.DecodeString(pubKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return errors.New("invalid public key")
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return errors.New("invalid signature encoding")
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), body, sig) {
		return errors.New("signature mismatch")
	}

	return nil
}
