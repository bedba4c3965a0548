package circuit

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/holiman/uint256"

	"github.com/veilproto/veil/crypto"
	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/types"
	"github.com/veilproto/veil/utils"
)

// Compose pads a transition to its shape, derives every public value
// (nullifiers, commitments, ciphertexts, issuance signature) and builds
// the full witness assignment. Unused consumed slots are filled with
// dummy objects whose membership check is disabled; unused produced
// slots become ordinary zero-value objects for throwaway recipients.
func Compose(shape types.Shape, tr *types.Transition) (*TransitionCircuit, *types.PublicInputs, error) {
	if err := shape.Validate(); err != nil {
		return nil, nil, err
	}
	if tr.Kind != shape.Kind {
		return nil, nil, fmt.Errorf("kind mismatch: shape(%s), transition(%s)", shape.Kind, tr.Kind)
	}
	if len(tr.Consumed) > shape.NumConsumed {
		return nil, nil, fmt.Errorf("too many consumed objects: got(%d), shape(%d)", len(tr.Consumed), shape.NumConsumed)
	}
	if len(tr.Produced) > shape.NumProduced {
		return nil, nil, fmt.Errorf("too many produced objects: got(%d), shape(%d)", len(tr.Produced), shape.NumProduced)
	}
	p := shape.Profile

	consumed, err := padConsumed(p, tr, shape.NumConsumed)
	if err != nil {
		return nil, nil, err
	}
	produced, err := padProduced(p, tr, shape.NumProduced)
	if err != nil {
		return nil, nil, err
	}

	cc := Placeholder(shape)
	pi := &types.PublicInputs{
		Kind:    shape.Kind,
		Root:    tr.Root,
		TypeTag: tr.TypeTag,
		Param:   tr.Param,
	}
	cc.Root = tr.Root
	cc.TypeTag = tr.TypeTag
	cc.Param = tr.Param

	for i, in := range consumed {
		nf := in.obj.Object.Nullifier(in.obj.Owner)
		pi.Nullifiers = append(pi.Nullifiers, nf)
		cc.Nullifiers[i] = nf

		s0, s1 := in.obj.Owner.SplitScalar()
		cc.InSk0[i] = s0
		cc.InSk1[i] = s1
		for k, cell := range in.obj.Object.Payload {
			cc.InPayload[i][k] = cell
		}
		cc.InSerial[i] = in.obj.Object.Serial
		cc.InSalt[i] = in.obj.Object.Salt
		cc.InIndex[i] = in.obj.LeafIndex
		for l, sib := range in.obj.Siblings {
			cc.InSiblings[i][l] = sib
		}
		cc.InDummy[i] = in.dummyBit()
	}

	for j, out := range produced {
		cm := out.Object.Commitment()
		pi.Commitments = append(pi.Commitments, cm)
		cc.Commitments[j] = cm

		ct, enc, err := crypto.Encrypt(out.Object.Owner, out.Object.Plaintext())
		if err != nil {
			return nil, nil, err
		}
		pi.Ciphertexts = append(pi.Ciphertexts, ct)

		cc.Ciphertexts[j].EpkX = ct.EpkX
		cc.Ciphertexts[j].EpkY = ct.EpkY
		cc.Ciphertexts[j].Nonce = ct.Nonce
		for k, cell := range ct.Cells {
			cc.Ciphertexts[j].Cells[k] = cell
		}

		cc.OutOwnerX[j] = out.Object.Owner.X
		cc.OutOwnerY[j] = out.Object.Owner.Y
		for k, cell := range out.Object.Payload {
			cc.OutPayload[j][k] = cell
		}
		cc.OutSerial[j] = out.Object.Serial
		cc.OutSalt[j] = out.Object.Salt
		cc.OutR0[j] = enc.R0[:]
		cc.OutR1[j] = enc.R1[:]
	}

	if shape.Kind == types.KindIssue {
		if tr.Issuer == nil {
			return nil, nil, fmt.Errorf("issuance transition without issuer key")
		}
		digest := types.IssuanceDigest(tr.TypeTag, tr.Param, pi.Commitments)
		sig, err := types.SignIssuance(tr.Issuer, digest)
		if err != nil {
			return nil, nil, err
		}
		issuerPt := tr.Issuer.Public()
		pi.IssuerPub = &issuerPt

		cc.IssuerPub[0].Assign(utils.CURVEID, tr.Issuer.PrivateKey.Public().Bytes())
		cc.IssuerSig[0].Assign(utils.CURVEID, sig.Bytes())
	}
	return cc, pi, nil
}

// PublicAssignment builds the assignment a verifier feeds to
// frontend.NewWitness with the PublicOnly option. Private slots stay
// unassigned.
func PublicAssignment(p params.Profile, pi *types.PublicInputs) (*TransitionCircuit, error) {
	shape := pi.ShapeOf(p)
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	cc := Placeholder(shape)
	cc.Root = pi.Root
	cc.TypeTag = pi.TypeTag
	cc.Param = pi.Param
	for i, nf := range pi.Nullifiers {
		cc.Nullifiers[i] = nf
	}
	for j, cm := range pi.Commitments {
		cc.Commitments[j] = cm
	}
	if len(pi.Ciphertexts) != shape.NumProduced {
		return nil, fmt.Errorf("wrong ciphertext count: expected(%d), got(%d)", shape.NumProduced, len(pi.Ciphertexts))
	}
	for j, ct := range pi.Ciphertexts {
		if len(ct.Cells) != CiphertextCells(p) {
			return nil, fmt.Errorf("wrong ciphertext width: expected(%d), got(%d)", CiphertextCells(p), len(ct.Cells))
		}
		cc.Ciphertexts[j].EpkX = ct.EpkX
		cc.Ciphertexts[j].EpkY = ct.EpkY
		cc.Ciphertexts[j].Nonce = ct.Nonce
		for k, cell := range ct.Cells {
			cc.Ciphertexts[j].Cells[k] = cell
		}
	}
	if shape.Kind == types.KindIssue {
		if pi.IssuerPub == nil {
			return nil, fmt.Errorf("issuance public inputs without issuer key")
		}
		bz := pi.IssuerPub.Bytes()
		cc.IssuerPub[0].Assign(utils.CURVEID, bz[:])
	}
	return cc, nil
}

// consumedSlot pairs a consumed object with its dummy flag.
type consumedSlot struct {
	obj   types.ConsumedObject
	dummy bool
}

func (s consumedSlot) dummyBit() int {
	if s.dummy {
		return 1
	}
	return 0
}

func padConsumed(p params.Profile, tr *types.Transition, n int) ([]consumedSlot, error) {
	slots := make([]consumedSlot, 0, n)
	for _, in := range tr.Consumed {
		if in.Object == nil || in.Owner == nil {
			return nil, fmt.Errorf("consumed slot without object or owner")
		}
		if !in.Object.TypeTag.Equal(&tr.TypeTag) {
			return nil, fmt.Errorf("consumed object type tag mismatch")
		}
		ownerPt := in.Owner.Public()
		if !in.Object.Owner.Equal(&ownerPt) {
			return nil, fmt.Errorf("consumed object not owned by supplied key")
		}
		if len(in.Siblings) != p.TreeDepth {
			return nil, fmt.Errorf("wrong membership path length: expected(%d), got(%d)", p.TreeDepth, len(in.Siblings))
		}
		if len(in.Object.Payload) != p.MaxPayload {
			return nil, fmt.Errorf("wrong payload width: expected(%d), got(%d)", p.MaxPayload, len(in.Object.Payload))
		}
		slots = append(slots, consumedSlot{obj: in})
	}
	for len(slots) < n {
		id, err := types.NewIdentity()
		if err != nil {
			return nil, err
		}
		obj, err := types.NewObject(p, tr.TypeTag, id.Public(), uint256.NewInt(0), nil)
		if err != nil {
			return nil, err
		}
		slots = append(slots, consumedSlot{
			obj: types.ConsumedObject{
				Object:   obj,
				Owner:    id,
				Siblings: make([]fr.Element, p.TreeDepth),
			},
			dummy: true,
		})
	}
	return slots, nil
}

func padProduced(p params.Profile, tr *types.Transition, n int) ([]types.ProducedObject, error) {
	slots := make([]types.ProducedObject, 0, n)
	for _, out := range tr.Produced {
		if out.Object == nil {
			return nil, fmt.Errorf("produced slot without object")
		}
		if !out.Object.TypeTag.Equal(&tr.TypeTag) {
			return nil, fmt.Errorf("produced object type tag mismatch")
		}
		if len(out.Object.Payload) != p.MaxPayload {
			return nil, fmt.Errorf("wrong payload width: expected(%d), got(%d)", p.MaxPayload, len(out.Object.Payload))
		}
		slots = append(slots, out)
	}
	for len(slots) < n {
		id, err := types.NewIdentity()
		if err != nil {
			return nil, err
		}
		obj, err := types.NewObject(p, tr.TypeTag, id.Public(), uint256.NewInt(0), nil)
		if err != nil {
			return nil, err
		}
		slots = append(slots, types.ProducedObject{Object: obj})
	}
	return slots, nil
}
