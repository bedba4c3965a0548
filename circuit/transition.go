package circuit

import (
	"github.com/consensys/gnark-crypto/ecc"
	ecc_tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	std_tedwards "github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash"
	std_mimc "github.com/consensys/gnark/std/hash/mimc"
	std_eddsa "github.com/consensys/gnark/std/signature/eddsa"

	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/types"
	"github.com/veilproto/veil/utils"
)

// TransitionCircuit proves one state transition of a fixed shape. The
// shape (kind, arities, profile) is baked in at compile time, so every
// shape compiles to its own constraint system and keys.
type TransitionCircuit struct {
	kind    types.Kind
	profile params.Profile
	curveID ecc_tedwards.ID

	Root        frontend.Variable     `gnark:",public"`
	TypeTag     frontend.Variable     `gnark:",public"`
	Param       frontend.Variable     `gnark:",public"`
	Nullifiers  []frontend.Variable   `gnark:",public"`
	Commitments []frontend.Variable   `gnark:",public"`
	Ciphertexts []CiphertextVar       `gnark:",public"`
	IssuerPub   []std_eddsa.PublicKey `gnark:",public"`

	// consumed slots
	InSk0      []frontend.Variable
	InSk1      []frontend.Variable
	InPayload  [][]frontend.Variable
	InSerial   []frontend.Variable
	InSalt     []frontend.Variable
	InIndex    []frontend.Variable
	InSiblings [][]frontend.Variable
	InDummy    []frontend.Variable

	// produced slots
	OutOwnerX  []frontend.Variable
	OutOwnerY  []frontend.Variable
	OutPayload [][]frontend.Variable
	OutSerial  []frontend.Variable
	OutSalt    []frontend.Variable
	OutR0      []frontend.Variable
	OutR1      []frontend.Variable

	IssuerSig []std_eddsa.Signature
}

func (cc *TransitionCircuit) Define(api frontend.API) error {
	curve, err := std_tedwards.NewEdCurve(api, cc.curveID)
	if err != nil {
		return err
	}
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	sumIn := cc.verifyConsumed(api, curve, &hasher)
	sumOut := cc.verifyProduced(api, curve, &hasher)
	return cc.verifyKind(api, curve, &hasher, sumIn, sumOut)
}

// verifyConsumed checks ownership, membership and nullifier derivation
// of every consumed slot and returns the sum of consumed values. A
// dummy slot skips the membership check and contributes zero value,
// but its nullifier is still derived and published.
func (cc *TransitionCircuit) verifyConsumed(api frontend.API, curve std_tedwards.Curve, hasher hash.FieldHasher) frontend.Variable {
	sumIn := frontend.Variable(0)
	for i := range cc.InSk0 {
		dummy := cc.InDummy[i]
		api.AssertIsBoolean(dummy)

		pk := splitScalarMulBase(api, curve, cc.InSk0[i], cc.InSk1[i])
		curve.AssertIsOnCurve(pk)

		value := cc.InPayload[i][0]
		_ = api.ToBinary(value, cc.profile.ValueBits)

		cm := objectCommitment(hasher, cc.TypeTag, pk.X, pk.Y, cc.InPayload[i], cc.InSerial[i], cc.InSalt[i])
		root := merkleRootFromPath(api, hasher, cm, cc.InSiblings[i], cc.InIndex[i])
		api.AssertIsEqual(api.Mul(api.Sub(root, cc.Root), api.Sub(1, dummy)), 0)

		nf := nullifierDigest(hasher, cc.InSk0[i], cc.InSk1[i], cc.InSerial[i])
		api.AssertIsEqual(nf, cc.Nullifiers[i])

		sumIn = api.Add(sumIn, api.Select(dummy, 0, value))
	}

	// no two slots may spend the same object
	for i := 0; i < len(cc.Nullifiers); i++ {
		for j := i + 1; j < len(cc.Nullifiers); j++ {
			api.AssertIsDifferent(cc.Nullifiers[i], cc.Nullifiers[j])
		}
	}
	return sumIn
}

// verifyProduced binds every produced slot's commitment and ciphertext
// to the same object contents and returns the sum of produced values.
func (cc *TransitionCircuit) verifyProduced(api frontend.API, curve std_tedwards.Curve, hasher hash.FieldHasher) frontend.Variable {
	sumOut := frontend.Variable(0)
	for j := range cc.OutSerial {
		recipient := std_tedwards.Point{X: cc.OutOwnerX[j], Y: cc.OutOwnerY[j]}
		curve.AssertIsOnCurve(recipient)

		value := cc.OutPayload[j][0]
		_ = api.ToBinary(value, cc.profile.ValueBits)

		cm := objectCommitment(hasher, cc.TypeTag, recipient.X, recipient.Y, cc.OutPayload[j], cc.OutSerial[j], cc.OutSalt[j])
		api.AssertIsEqual(cm, cc.Commitments[j])

		ct := cc.Ciphertexts[j]
		epk := splitScalarMulBase(api, curve, cc.OutR0[j], cc.OutR1[j])
		api.AssertIsEqual(epk.X, ct.EpkX)
		api.AssertIsEqual(epk.Y, ct.EpkY)

		shared := splitScalarMul(api, curve, recipient, cc.OutR0[j], cc.OutR1[j])

		plaintext := make([]frontend.Variable, 0, len(ct.Cells))
		plaintext = append(plaintext, cc.TypeTag, cc.OutSerial[j], cc.OutSalt[j])
		plaintext = append(plaintext, cc.OutPayload[j]...)
		plaintext = append(plaintext, 0) // integrity cell
		for k := range ct.Cells {
			mask := keystreamCell(hasher, shared.X, shared.Y, ct.Nonce, k)
			api.AssertIsEqual(ct.Cells[k], api.Add(plaintext[k], mask))
		}

		sumOut = api.Add(sumOut, value)
	}
	return sumOut
}

// verifyKind enforces the value relation of the transition kind. Param
// is the fee for transfers, the issued amount for issuance and the
// retired amount for retirement.
func (cc *TransitionCircuit) verifyKind(api frontend.API, curve std_tedwards.Curve, hasher hash.FieldHasher, sumIn, sumOut frontend.Variable) error {
	_ = api.ToBinary(cc.Param, cc.profile.ValueBits)

	switch cc.kind {
	case types.KindTransfer:
		api.AssertIsEqual(sumIn, api.Add(sumOut, cc.Param))
	case types.KindIssue:
		api.AssertIsEqual(sumOut, cc.Param)

		hasher.Reset()
		hasher.Write(types.DomainIssuance, cc.TypeTag, cc.Param)
		hasher.Write(cc.Commitments...)
		digest := hasher.Sum()

		hasher.Reset()
		if err := std_eddsa.Verify(curve, cc.IssuerSig[0], digest, cc.IssuerPub[0], hasher); err != nil {
			return err
		}
	case types.KindRetire:
		api.AssertIsEqual(sumIn, cc.Param)
	}
	return nil
}

// Placeholder builds an unassigned circuit sized for shape, ready for
// frontend.Compile.
func Placeholder(shape types.Shape) *TransitionCircuit {
	p := shape.Profile
	cc := &TransitionCircuit{
		kind:    shape.Kind,
		profile: p,
		curveID: utils.CURVEID,

		Nullifiers:  make([]frontend.Variable, shape.NumConsumed),
		Commitments: make([]frontend.Variable, shape.NumProduced),
		Ciphertexts: make([]CiphertextVar, shape.NumProduced),

		InSk0:      make([]frontend.Variable, shape.NumConsumed),
		InSk1:      make([]frontend.Variable, shape.NumConsumed),
		InPayload:  make([][]frontend.Variable, shape.NumConsumed),
		InSerial:   make([]frontend.Variable, shape.NumConsumed),
		InSalt:     make([]frontend.Variable, shape.NumConsumed),
		InIndex:    make([]frontend.Variable, shape.NumConsumed),
		InSiblings: make([][]frontend.Variable, shape.NumConsumed),
		InDummy:    make([]frontend.Variable, shape.NumConsumed),

		OutOwnerX:  make([]frontend.Variable, shape.NumProduced),
		OutOwnerY:  make([]frontend.Variable, shape.NumProduced),
		OutPayload: make([][]frontend.Variable, shape.NumProduced),
		OutSerial:  make([]frontend.Variable, shape.NumProduced),
		OutSalt:    make([]frontend.Variable, shape.NumProduced),
		OutR0:      make([]frontend.Variable, shape.NumProduced),
		OutR1:      make([]frontend.Variable, shape.NumProduced),
	}
	for i := 0; i < shape.NumConsumed; i++ {
		cc.InPayload[i] = make([]frontend.Variable, p.MaxPayload)
		cc.InSiblings[i] = make([]frontend.Variable, p.TreeDepth)
	}
	for j := 0; j < shape.NumProduced; j++ {
		cc.OutPayload[j] = make([]frontend.Variable, p.MaxPayload)
		cc.Ciphertexts[j].Cells = make([]frontend.Variable, CiphertextCells(p))
	}
	if shape.Kind == types.KindIssue {
		cc.IssuerPub = make([]std_eddsa.PublicKey, 1)
		cc.IssuerSig = make([]std_eddsa.Signature, 1)
	}
	return cc
}

// CiphertextCells is the number of masked cells per ciphertext:
// typeTag, serial, salt, the payload, and the integrity cell.
func CiphertextCells(p params.Profile) int {
	return 3 + p.MaxPayload + 1
}

// Compile builds the constraint system for one shape.
func Compile(shape types.Shape) (constraint.ConstraintSystem, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, Placeholder(shape))
}

// CountConstraints compiles the shape and reports its constraint count.
func CountConstraints(shape types.Shape) (int, error) {
	ccs, err := Compile(shape)
	if err != nil {
		return 0, err
	}
	return ccs.GetNbConstraints(), nil
}
