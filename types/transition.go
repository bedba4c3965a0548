package types

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"

	"github.com/veilproto/veil/crypto"
	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/utils"
)

// Kind enumerates the supported transition families.
type Kind uint8

const (
	KindTransfer Kind = iota + 1
	KindIssue
	KindRetire
)

func (k Kind) String() string {
	switch k {
	case KindTransfer:
		return "transfer"
	case KindIssue:
		return "issue"
	case KindRetire:
		return "retire"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Shape fixes the structure of a transition circuit: its kind, arities
// and parameter profile. Every proving artifact is bound to one shape.
type Shape struct {
	Kind        Kind
	NumConsumed int
	NumProduced int
	Profile     params.Profile
}

// ShapeID is the 32-byte digest identifying a shape. Artifacts carrying
// different shape IDs never interoperate.
type ShapeID [32]byte

func (id ShapeID) String() string { return fmt.Sprintf("%x", id[:]) }

// Validate checks the shape's arities against its kind.
func (s Shape) Validate() error {
	if err := s.Profile.Validate(); err != nil {
		return err
	}
	switch s.Kind {
	case KindTransfer:
		if s.NumConsumed < 1 || s.NumProduced < 1 {
			return fmt.Errorf("transfer shape needs consumed>=1 and produced>=1, got(%d,%d)", s.NumConsumed, s.NumProduced)
		}
	case KindIssue:
		if s.NumConsumed != 0 || s.NumProduced < 1 {
			return fmt.Errorf("issue shape needs consumed=0 and produced>=1, got(%d,%d)", s.NumConsumed, s.NumProduced)
		}
	case KindRetire:
		if s.NumConsumed < 1 || s.NumProduced != 0 {
			return fmt.Errorf("retire shape needs consumed>=1 and produced=0, got(%d,%d)", s.NumConsumed, s.NumProduced)
		}
	default:
		return fmt.Errorf("unknown transition kind: %d", uint8(s.Kind))
	}
	return nil
}

// ID derives the shape digest, MiMC over the canonical encoding of
// every field that affects circuit structure.
func (s Shape) ID() ShapeID {
	var kind, nin, nout, depth, payload, bits fr.Element
	kind.SetUint64(uint64(s.Kind))
	nin.SetUint64(uint64(s.NumConsumed))
	nout.SetUint64(uint64(s.NumProduced))
	depth.SetUint64(uint64(s.Profile.TreeDepth))
	payload.SetUint64(uint64(s.Profile.MaxPayload))
	bits.SetUint64(uint64(s.Profile.ValueBits))
	h := utils.MiMCHashElements(kind, nin, nout, depth, payload, bits)
	return ShapeID(h.Bytes())
}

// ConsumedObject is one existing object being spent: the full record,
// the owner identity, and the membership path of its commitment.
type ConsumedObject struct {
	Object    *Object
	Owner     *Identity
	LeafIndex uint64
	Siblings  []fr.Element
}

// ProducedObject is one fresh object being created for a recipient.
type ProducedObject struct {
	Object *Object
}

// Transition is the host-facing description of a state change. The
// composer pads it to its shape, derives all public values and builds
// the circuit witness.
type Transition struct {
	Kind     Kind
	TypeTag  fr.Element
	Root     fr.Element
	Param    fr.Element
	Consumed []ConsumedObject
	Produced []ProducedObject

	// Issuer signs issuance transitions. Ignored for other kinds.
	Issuer *Identity
}

// PublicInputs is everything a verifier learns about a transition.
// Field order mirrors the public section of the circuit.
type PublicInputs struct {
	Kind        Kind
	Root        fr.Element
	TypeTag     fr.Element
	Param       fr.Element
	Nullifiers  []fr.Element
	Commitments []fr.Element
	Ciphertexts []*crypto.Ciphertext
	IssuerPub   *twistededwards.PointAffine
}

// ShapeOf reconstructs the structural part of the shape encoded in a
// public input vector. The profile must be supplied by the caller.
func (pi *PublicInputs) ShapeOf(p params.Profile) Shape {
	return Shape{
		Kind:        pi.Kind,
		NumConsumed: len(pi.Nullifiers),
		NumProduced: len(pi.Commitments),
		Profile:     p,
	}
}

// IssuanceDigest hashes what an issuer signs:
// MiMC(tagI, typeTag, param, commitments...).
func IssuanceDigest(typeTag, param fr.Element, commitments []fr.Element) fr.Element {
	ins := make([]fr.Element, 0, 3+len(commitments))
	var tag fr.Element
	tag.SetUint64(DomainIssuance)
	ins = append(ins, tag, typeTag, param)
	ins = append(ins, commitments...)
	return utils.MiMCHashElements(ins...)
}

// SignIssuance signs the issuance digest with the issuer key. The
// signature is verified inside the circuit against the public issuer
// key.
func SignIssuance(issuer *Identity, digest fr.Element) (*eddsa.Signature, error) {
	bz := digest.Bytes()
	sigBytes, err := issuer.PrivateKey.Sign(bz[:], utils.MiMCHasher())
	if err != nil {
		return nil, err
	}
	sig := new(eddsa.Signature)
	if _, err := sig.SetBytes(sigBytes); err != nil {
		return nil, err
	}
	return sig, nil
}
