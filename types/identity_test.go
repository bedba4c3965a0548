package types

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/veilproto/veil/crypto"
	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/utils"
)

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)
	pub := id.Public()
	require.True(t, pub.IsOnCurve())
	require.NotEmpty(t, id.Address)
}

func TestDeriveIdentityDeterministic(t *testing.T) {
	seed := []byte("correct horse battery staple")

	a, err := DeriveIdentity(seed, 0)
	require.NoError(t, err)
	b, err := DeriveIdentity(seed, 0)
	require.NoError(t, err)
	require.Equal(t, a.Address, b.Address)
	require.Equal(t, a.Scalar(), b.Scalar())

	c, err := DeriveIdentity([]byte("other seed"), 0)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, c.Address)

	d, err := DeriveIdentity(seed, 1)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, d.Address, "indices must yield distinct identities")
}

func TestDeriveIdentityEmptySeed(t *testing.T) {
	_, err := DeriveIdentity(nil, 0)
	require.Error(t, err)
}

func TestSplitScalarRecombines(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	s0, s1 := id.SplitScalar()
	require.Len(t, s0, 16)
	require.Len(t, s1, 16)

	full := new(big.Int).SetBytes(s0)
	full.Lsh(full, 128)
	full.Add(full, new(big.Int).SetBytes(s1))
	require.Equal(t, new(big.Int).SetBytes(id.Scalar()), full)
}

func TestAddressRoundtrip(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	payload, err := DecodeAddress(id.Address)
	require.NoError(t, err)
	require.Equal(t, id.PrivateKey.Public().Bytes(), payload)
}

func TestDecodeAddressRejectsJunk(t *testing.T) {
	_, err := DecodeAddress("xx3abc")
	require.Error(t, err)

	_, err = DecodeAddress("vl3abc!!!")
	require.Error(t, err)
}

func TestTryDecryptScansCiphertexts(t *testing.T) {
	p := params.Tiny()
	alice, err := NewIdentity()
	require.NoError(t, err)
	bob, err := NewIdentity()
	require.NoError(t, err)

	obj, err := NewObject(p, utils.FrFromUint64(7), bob.Public(), uint256.NewInt(42), nil)
	require.NoError(t, err)

	ct, _, err := crypto.Encrypt(obj.Owner, obj.Plaintext())
	require.NoError(t, err)

	// bob finds his object
	got, err := bob.TryDecrypt(p, ct)
	require.NoError(t, err)
	cm := obj.Commitment()
	gotCm := got.Commitment()
	require.True(t, cm.Equal(&gotCm))
	require.Equal(t, uint256.NewInt(42), got.Value())

	// alice cannot open it
	_, err = alice.TryDecrypt(p, ct)
	require.Error(t, err)
}
