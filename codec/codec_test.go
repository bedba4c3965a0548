package codec

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/veilproto/veil/crypto"
	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/types"
	"github.com/veilproto/veil/utils"
)

func testShape() types.Shape {
	return types.Shape{
		Kind:        types.KindTransfer,
		NumConsumed: 2,
		NumProduced: 1,
		Profile:     params.Tiny(),
	}
}

func testPublicInputs(t *testing.T, shape types.Shape) *types.PublicInputs {
	t.Helper()
	ct := &crypto.Ciphertext{
		EpkX:  utils.RandFr(),
		EpkY:  utils.RandFr(),
		Nonce: utils.RandFr(),
		Cells: []fr.Element{utils.RandFr(), utils.RandFr()},
	}
	return &types.PublicInputs{
		Kind:        shape.Kind,
		Root:        utils.RandFr(),
		TypeTag:     utils.FrFromUint64(7),
		Param:       utils.FrFromUint64(10),
		Nullifiers:  []fr.Element{utils.RandFr(), utils.RandFr()},
		Commitments: []fr.Element{utils.RandFr()},
		Ciphertexts: []*crypto.Ciphertext{ct},
	}
}

func TestPublicInputsRoundtrip(t *testing.T) {
	shape := testShape()
	pi := testPublicInputs(t, shape)

	bz, err := EncodePublicInputs(shape, pi)
	require.NoError(t, err)

	gotShape, got, err := DecodePublicInputs(bz)
	require.NoError(t, err)
	require.Equal(t, shape.ID(), gotShape.ID())
	require.Equal(t, pi.Kind, got.Kind)
	require.True(t, pi.Root.Equal(&got.Root))
	require.True(t, pi.TypeTag.Equal(&got.TypeTag))
	require.True(t, pi.Param.Equal(&got.Param))
	require.Equal(t, pi.Nullifiers, got.Nullifiers)
	require.Equal(t, pi.Commitments, got.Commitments)
	require.Len(t, got.Ciphertexts, 1)
	require.Equal(t, pi.Ciphertexts[0].Cells, got.Ciphertexts[0].Cells)
	require.Nil(t, got.IssuerPub)
}

func TestPublicInputsIssuerKeyRoundtrip(t *testing.T) {
	shape := types.Shape{Kind: types.KindIssue, NumProduced: 1, Profile: params.Tiny()}
	id, err := types.NewIdentity()
	require.NoError(t, err)
	pub := id.Public()

	pi := testPublicInputs(t, shape)
	pi.Kind = types.KindIssue
	pi.Nullifiers = nil
	pi.IssuerPub = &pub

	bz, err := EncodePublicInputs(shape, pi)
	require.NoError(t, err)

	_, got, err := DecodePublicInputs(bz)
	require.NoError(t, err)
	require.NotNil(t, got.IssuerPub)
	require.True(t, pub.Equal(got.IssuerPub))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := DecodePublicInputs([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, ErrSerialization)

	_, _, err = DecodePublicInputs(nil)
	require.ErrorIs(t, err, ErrSerialization)
}

func TestDecodeRejectsTruncation(t *testing.T) {
	shape := testShape()
	bz, err := EncodePublicInputs(shape, testPublicInputs(t, shape))
	require.NoError(t, err)

	_, _, err = DecodePublicInputs(bz[:len(bz)/2])
	require.ErrorIs(t, err, ErrSerialization)
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	shape := testShape()
	bz, err := EncodePublicInputs(shape, testPublicInputs(t, shape))
	require.NoError(t, err)

	_, _, err = DecodeProof(bz)
	require.ErrorIs(t, err, ErrSerialization)
	_, _, err = DecodeProvingKey(bz)
	require.ErrorIs(t, err, ErrSerialization)
	_, _, err = DecodeVerifyingKey(bz)
	require.ErrorIs(t, err, ErrSerialization)
}

func TestDecodeRejectsArityMismatch(t *testing.T) {
	shape := testShape()
	pi := testPublicInputs(t, shape)
	pi.Nullifiers = pi.Nullifiers[:1] // shape says two consumed

	bz, err := EncodePublicInputs(shape, pi)
	require.NoError(t, err)

	_, _, err = DecodePublicInputs(bz)
	require.ErrorIs(t, err, ErrSerialization)
}

func TestDecodeRejectsBadShape(t *testing.T) {
	shape := testShape()
	shape.Kind = types.Kind(42)

	// sealing does not validate the shape, opening must
	bz, err := EncodePublicInputs(shape, testPublicInputs(t, shape))
	require.NoError(t, err)

	_, _, err = DecodePublicInputs(bz)
	require.ErrorIs(t, err, ErrSerialization)
}
