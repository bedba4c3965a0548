package types

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/utils"
)

func newTestObject(t *testing.T, value uint64) (*Object, *Identity) {
	t.Helper()
	id, err := NewIdentity()
	require.NoError(t, err)
	obj, err := NewObject(params.Tiny(), utils.FrFromUint64(7), id.Public(), uint256.NewInt(value), nil)
	require.NoError(t, err)
	return obj, id
}

func TestNewObjectPadsPayload(t *testing.T) {
	obj, _ := newTestObject(t, 100)
	require.Len(t, obj.Payload, params.Tiny().MaxPayload)
	require.Equal(t, uint256.NewInt(100), obj.Value())
}

func TestNewObjectRejectsWidePayload(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	extra := make([]fr.Element, params.Tiny().MaxPayload)
	_, err = NewObject(params.Tiny(), utils.FrFromUint64(7), id.Public(), uint256.NewInt(1), extra)
	require.Error(t, err)
}

func TestNewObjectRejectsOversizedValue(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	_, err = NewObject(params.Tiny(), utils.FrFromUint64(7), id.Public(), huge, nil)
	require.Error(t, err)
}

func TestCommitmentBindsEveryField(t *testing.T) {
	obj, _ := newTestObject(t, 100)
	cm := obj.Commitment()

	// deterministic
	again := obj.Commitment()
	require.True(t, cm.Equal(&again))

	// salt blinds
	mod := *obj
	mod.Salt = utils.RandFr()
	cm2 := mod.Commitment()
	require.False(t, cm.Equal(&cm2))

	// value changes the commitment
	mod = *obj
	mod.Payload = append([]fr.Element{}, obj.Payload...)
	mod.Payload[0] = utils.FrFromUint64(101)
	cm3 := mod.Commitment()
	require.False(t, cm.Equal(&cm3))
}

func TestCommitmentBindingSample(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	seen := make(map[[32]byte]bool)
	for i := 0; i < 256; i++ {
		obj, err := NewObject(params.Tiny(), utils.FrFromUint64(7), id.Public(), uint256.NewInt(uint64(i)), nil)
		require.NoError(t, err)
		cm := obj.Commitment()
		bz := cm.Bytes()
		require.False(t, seen[bz], "commitment collision at sample %d", i)
		seen[bz] = true
	}
}

func TestNullifierDependsOnOwnerAndSerial(t *testing.T) {
	obj, id := newTestObject(t, 100)

	nf := obj.Nullifier(id)
	again := obj.Nullifier(id)
	require.True(t, nf.Equal(&again))

	other, err := NewIdentity()
	require.NoError(t, err)
	nf2 := obj.Nullifier(other)
	require.False(t, nf.Equal(&nf2), "nullifier must be keyed by the owner")

	mod := *obj
	mod.Serial = utils.RandFr()
	nf3 := mod.Nullifier(id)
	require.False(t, nf.Equal(&nf3))
}

func TestPlaintextRoundtrip(t *testing.T) {
	obj, id := newTestObject(t, 55)

	cells := obj.Plaintext()
	require.Len(t, cells, 3+params.Tiny().MaxPayload)

	back, err := ObjectFromPlaintext(params.Tiny(), cells, id.Public())
	require.NoError(t, err)
	require.True(t, obj.TypeTag.Equal(&back.TypeTag))
	require.True(t, obj.Serial.Equal(&back.Serial))
	require.True(t, obj.Salt.Equal(&back.Salt))

	cm := obj.Commitment()
	cm2 := back.Commitment()
	require.True(t, cm.Equal(&cm2))
}

func TestObjectFromPlaintextRejectsWrongWidth(t *testing.T) {
	_, id := newTestObject(t, 1)
	_, err := ObjectFromPlaintext(params.Tiny(), make([]fr.Element, 2), id.Public())
	require.Error(t, err)
}
