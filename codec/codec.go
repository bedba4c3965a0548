package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/veilproto/veil/crypto"
	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/types"
	"github.com/veilproto/veil/utils"
)

// Version is the wire format version stamped into every envelope.
const Version = 1

// ErrSerialization is wrapped by every decode failure: malformed
// bytes, an unknown version, or an artifact kind or shape that does
// not match what the caller expected.
var ErrSerialization = errors.New("codec: serialization failure")

// artifact kinds
const (
	kindProvingKey byte = iota + 1
	kindVerifyingKey
	kindProof
	kindPublicInputs
)

// envelope frames every serialized artifact with its version, kind and
// the full shape it was built for. Artifacts of different shapes or
// profiles never decode into each other.
type envelope struct {
	Version uint32
	Kind    byte
	Shape   shapeRLP
	Payload []byte
}

type shapeRLP struct {
	Kind        uint8
	NumConsumed uint32
	NumProduced uint32
	ProfileName string
	TreeDepth   uint32
	MaxPayload  uint32
	ValueBits   uint32
}

func shapeToRLP(s types.Shape) shapeRLP {
	return shapeRLP{
		Kind:        uint8(s.Kind),
		NumConsumed: uint32(s.NumConsumed),
		NumProduced: uint32(s.NumProduced),
		ProfileName: s.Profile.Name,
		TreeDepth:   uint32(s.Profile.TreeDepth),
		MaxPayload:  uint32(s.Profile.MaxPayload),
		ValueBits:   uint32(s.Profile.ValueBits),
	}
}

func shapeFromRLP(s shapeRLP) (types.Shape, error) {
	shape := types.Shape{
		Kind:        types.Kind(s.Kind),
		NumConsumed: int(s.NumConsumed),
		NumProduced: int(s.NumProduced),
		Profile: params.Profile{
			Name:       s.ProfileName,
			TreeDepth:  int(s.TreeDepth),
			MaxPayload: int(s.MaxPayload),
			ValueBits:  int(s.ValueBits),
		},
	}
	if err := shape.Validate(); err != nil {
		return types.Shape{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return shape, nil
}

func seal(kind byte, shape types.Shape, payload []byte) ([]byte, error) {
	bz, err := rlp.EncodeToBytes(&envelope{
		Version: Version,
		Kind:    kind,
		Shape:   shapeToRLP(shape),
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return bz, nil
}

func open(kind byte, bz []byte) (types.Shape, []byte, error) {
	var env envelope
	if err := rlp.DecodeBytes(bz, &env); err != nil {
		return types.Shape{}, nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if env.Version != Version {
		return types.Shape{}, nil, fmt.Errorf("%w: unknown version %d", ErrSerialization, env.Version)
	}
	if env.Kind != kind {
		return types.Shape{}, nil, fmt.Errorf("%w: wrong artifact kind: expected(%d), got(%d)", ErrSerialization, kind, env.Kind)
	}
	shape, err := shapeFromRLP(env.Shape)
	if err != nil {
		return types.Shape{}, nil, err
	}
	return shape, env.Payload, nil
}

// EncodeProvingKey serializes a groth16 proving key bound to its shape.
func EncodeProvingKey(shape types.Shape, pk groth16.ProvingKey) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := pk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return seal(kindProvingKey, shape, buf.Bytes())
}

func DecodeProvingKey(bz []byte) (types.Shape, groth16.ProvingKey, error) {
	shape, payload, err := open(kindProvingKey, bz)
	if err != nil {
		return types.Shape{}, nil, err
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(payload)); err != nil {
		return types.Shape{}, nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return shape, pk, nil
}

// EncodeVerifyingKey serializes a groth16 verifying key bound to its shape.
func EncodeVerifyingKey(shape types.Shape, vk groth16.VerifyingKey) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return seal(kindVerifyingKey, shape, buf.Bytes())
}

func DecodeVerifyingKey(bz []byte) (types.Shape, groth16.VerifyingKey, error) {
	shape, payload, err := open(kindVerifyingKey, bz)
	if err != nil {
		return types.Shape{}, nil, err
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(payload)); err != nil {
		return types.Shape{}, nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return shape, vk, nil
}

// EncodeProof serializes a groth16 proof bound to its shape.
func EncodeProof(shape types.Shape, proof groth16.Proof) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return seal(kindProof, shape, buf.Bytes())
}

func DecodeProof(bz []byte) (types.Shape, groth16.Proof, error) {
	shape, payload, err := open(kindProof, bz)
	if err != nil {
		return types.Shape{}, nil, err
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(payload)); err != nil {
		return types.Shape{}, nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return shape, proof, nil
}

type ciphertextRLP struct {
	EpkX  []byte
	EpkY  []byte
	Nonce []byte
	Cells [][]byte
}

type publicInputsRLP struct {
	Kind        uint8
	Root        []byte
	TypeTag     []byte
	Param       []byte
	Nullifiers  [][]byte
	Commitments [][]byte
	Ciphertexts []ciphertextRLP
	IssuerPub   []byte
}

// EncodePublicInputs serializes the public side of a transition. Field
// elements travel as fixed 32-byte little-endian values.
func EncodePublicInputs(shape types.Shape, pi *types.PublicInputs) ([]byte, error) {
	enc := publicInputsRLP{
		Kind:        uint8(pi.Kind),
		Root:        utils.FrToLEBytes(pi.Root),
		TypeTag:     utils.FrToLEBytes(pi.TypeTag),
		Param:       utils.FrToLEBytes(pi.Param),
		Nullifiers:  frSliceToLE(pi.Nullifiers),
		Commitments: frSliceToLE(pi.Commitments),
	}
	for _, ct := range pi.Ciphertexts {
		enc.Ciphertexts = append(enc.Ciphertexts, ciphertextRLP{
			EpkX:  utils.FrToLEBytes(ct.EpkX),
			EpkY:  utils.FrToLEBytes(ct.EpkY),
			Nonce: utils.FrToLEBytes(ct.Nonce),
			Cells: frSliceToLE(ct.Cells),
		})
	}
	if pi.IssuerPub != nil {
		bz := pi.IssuerPub.Bytes()
		enc.IssuerPub = bz[:]
	}
	payload, err := rlp.EncodeToBytes(&enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return seal(kindPublicInputs, shape, payload)
}

func DecodePublicInputs(bz []byte) (types.Shape, *types.PublicInputs, error) {
	shape, payload, err := open(kindPublicInputs, bz)
	if err != nil {
		return types.Shape{}, nil, err
	}
	var dec publicInputsRLP
	if err := rlp.DecodeBytes(payload, &dec); err != nil {
		return types.Shape{}, nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if types.Kind(dec.Kind) != shape.Kind {
		return types.Shape{}, nil, fmt.Errorf("%w: kind mismatch between envelope and payload", ErrSerialization)
	}
	pi := &types.PublicInputs{Kind: types.Kind(dec.Kind)}
	if pi.Root, err = frFromLE(dec.Root); err != nil {
		return types.Shape{}, nil, err
	}
	if pi.TypeTag, err = frFromLE(dec.TypeTag); err != nil {
		return types.Shape{}, nil, err
	}
	if pi.Param, err = frFromLE(dec.Param); err != nil {
		return types.Shape{}, nil, err
	}
	if pi.Nullifiers, err = frSliceFromLE(dec.Nullifiers); err != nil {
		return types.Shape{}, nil, err
	}
	if pi.Commitments, err = frSliceFromLE(dec.Commitments); err != nil {
		return types.Shape{}, nil, err
	}
	for _, ct := range dec.Ciphertexts {
		out := &crypto.Ciphertext{}
		if out.EpkX, err = frFromLE(ct.EpkX); err != nil {
			return types.Shape{}, nil, err
		}
		if out.EpkY, err = frFromLE(ct.EpkY); err != nil {
			return types.Shape{}, nil, err
		}
		if out.Nonce, err = frFromLE(ct.Nonce); err != nil {
			return types.Shape{}, nil, err
		}
		if out.Cells, err = frSliceFromLE(ct.Cells); err != nil {
			return types.Shape{}, nil, err
		}
		pi.Ciphertexts = append(pi.Ciphertexts, out)
	}
	if len(dec.IssuerPub) > 0 {
		var pt twistededwards.PointAffine
		if _, err := pt.SetBytes(dec.IssuerPub); err != nil {
			return types.Shape{}, nil, fmt.Errorf("%w: bad issuer key: %v", ErrSerialization, err)
		}
		pi.IssuerPub = &pt
	}
	if len(pi.Nullifiers) != shape.NumConsumed || len(pi.Commitments) != shape.NumProduced || len(pi.Ciphertexts) != shape.NumProduced {
		return types.Shape{}, nil, fmt.Errorf("%w: public input arity does not match shape", ErrSerialization)
	}
	return shape, pi, nil
}

func frSliceToLE(in []fr.Element) [][]byte {
	out := make([][]byte, len(in))
	for i, e := range in {
		out[i] = utils.FrToLEBytes(e)
	}
	return out
}

func frFromLE(bz []byte) (fr.Element, error) {
	e, ok := utils.FrFromLEBytes(bz)
	if !ok {
		return fr.Element{}, fmt.Errorf("%w: bad field element encoding", ErrSerialization)
	}
	return e, nil
}

func frSliceFromLE(in [][]byte) ([]fr.Element, error) {
	out := make([]fr.Element, len(in))
	for i, bz := range in {
		e, err := frFromLE(bz)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}
