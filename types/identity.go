package types

import (
	"bytes"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"golang.org/x/crypto/blake2s"

	"github.com/veilproto/veil/crypto"
	"github.com/veilproto/veil/params"
)

// identitySeedPersonal is the blake2s personalization used when expanding
// a seed into key material. Changing it invalidates every derived identity.
var identitySeedPersonal = []byte("veil_idkeygen000")

// Identity holds an eddsa keypair over the bn254 twisted edwards curve.
// The secret scalar doubles as the object decryption key and as the
// nullifier key preimage.
type Identity struct {
	PrivateKey *eddsa.PrivateKey
	Address    string
}

// NewIdentity samples a fresh identity from crypto/rand.
func NewIdentity() (*Identity, error) {
	prv, err := eddsa.GenerateKey(crand.Reader)
	if err != nil {
		return nil, err
	}
	return fromPrivateKey(prv), nil
}

// DeriveIdentity deterministically derives the index-th identity of a
// seed. The same (seed, index) pair always yields the same keypair, so
// a wallet can rebuild all of its identities from one secret.
func DeriveIdentity(seed []byte, index uint32) (*Identity, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("empty identity seed")
	}
	stream, err := expandSeed(seed, index, 96)
	if err != nil {
		return nil, err
	}
	prv, err := eddsa.GenerateKey(bytes.NewReader(stream))
	if err != nil {
		return nil, err
	}
	return fromPrivateKey(prv), nil
}

func fromPrivateKey(prv *eddsa.PrivateKey) *Identity {
	pub := prv.Public().Bytes()
	return &Identity{
		PrivateKey: prv,
		Address:    EncodeAddress(pub),
	}
}

// Public returns the owner point on the twisted edwards curve.
func (id *Identity) Public() twistededwards.PointAffine {
	return id.PrivateKey.PublicKey.A
}

// Scalar returns the 32-byte big-endian secret scalar.
func (id *Identity) Scalar() []byte {
	return id.PrivateKey.Bytes()[32:64]
}

// SplitScalar returns the secret scalar split into two 16-byte halves,
// s = s0*2^128 + s1. The halves are what circuits take as witness so
// that each fits well below the snark field modulus.
func (id *Identity) SplitScalar() ([]byte, []byte) {
	s := id.Scalar()
	return s[:16], s[16:32]
}

// TryDecrypt attempts to open a published ciphertext with this
// identity's key. It returns the recovered object when the ciphertext
// was addressed to this identity, and an error otherwise. Wallets scan
// the ciphertext log with it.
func (id *Identity) TryDecrypt(p params.Profile, ct *crypto.Ciphertext) (*Object, error) {
	scalar := new(big.Int).SetBytes(id.Scalar())
	cells, err := crypto.Decrypt(scalar, ct)
	if err != nil {
		return nil, err
	}
	return ObjectFromPlaintext(p, cells, id.Public())
}

// expandSeed stretches (seed, index) into n pseudorandom bytes with
// blake2s, chaining 32-byte blocks keyed by the seed.
func expandSeed(seed []byte, index uint32, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	block := make([]byte, blake2s.Size)
	copy(block, identitySeedPersonal)
	binary.BigEndian.PutUint32(block[len(identitySeedPersonal):], index)
	for len(out) < n {
		h, err := blake2s.New256(seed)
		if err != nil {
			return nil, err
		}
		if _, err := h.Write(block); err != nil {
			return nil, err
		}
		block = h.Sum(nil)
		out = append(out, block...)
	}
	return out[:n], nil
}
