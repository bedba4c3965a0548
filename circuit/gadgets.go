package circuit

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	std_tedwards "github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash"

	"github.com/veilproto/veil/types"
)

var e128 = new(big.Int).Lsh(big.NewInt(1), 128)

// CiphertextVar mirrors crypto.Ciphertext inside the circuit. All of
// its variables are public.
type CiphertextVar struct {
	EpkX  frontend.Variable
	EpkY  frontend.Variable
	Nonce frontend.Variable
	Cells []frontend.Variable
}

// splitScalarMul computes (hi*2^128 + lo) * pt. Both halves are range
// checked to 128 bits so the recombined scalar is well defined.
func splitScalarMul(api frontend.API, curve std_tedwards.Curve, pt std_tedwards.Point, hi, lo frontend.Variable) std_tedwards.Point {
	_ = api.ToBinary(hi, 128)
	_ = api.ToBinary(lo, 128)

	c1 := curve.ScalarMul(pt, hi)
	c128 := curve.ScalarMul(c1, e128.Bytes())
	c2 := curve.ScalarMul(pt, lo)
	return curve.Add(c128, c2)
}

// splitScalarMulBase derives the public key of a split secret scalar.
func splitScalarMulBase(api frontend.API, curve std_tedwards.Curve, hi, lo frontend.Variable) std_tedwards.Point {
	base := std_tedwards.Point{}
	base.X = curve.Params().Base[0]
	base.Y = curve.Params().Base[1]
	return splitScalarMul(api, curve, base, hi, lo)
}

// objectCommitment recomputes the note commitment of an object,
// matching the native derivation cell for cell.
func objectCommitment(h hash.FieldHasher, typeTag, ownerX, ownerY frontend.Variable, payload []frontend.Variable, serial, salt frontend.Variable) frontend.Variable {
	h.Reset()
	h.Write(types.DomainCommitment, typeTag, ownerX, ownerY)
	h.Write(payload...)
	h.Write(serial, salt)
	return h.Sum()
}

// nullifierDigest recomputes nf = H(tagN, H(tagK, s0, s1), serial).
func nullifierDigest(h hash.FieldHasher, sk0, sk1, serial frontend.Variable) frontend.Variable {
	h.Reset()
	h.Write(types.DomainNullifierKey, sk0, sk1)
	nk := h.Sum()

	h.Reset()
	h.Write(types.DomainNullifier, nk, serial)
	return h.Sum()
}

// merkleRootFromPath folds a leaf and its sibling digests back to a
// root. The index bits decide on which side the running digest sits at
// each level, matching the accumulator's node layout.
func merkleRootFromPath(api frontend.API, h hash.FieldHasher, leaf frontend.Variable, siblings []frontend.Variable, index frontend.Variable) frontend.Variable {
	h.Reset()
	h.Write(leaf)
	sum := h.Sum()

	dirs := api.ToBinary(index, len(siblings))
	for i, sib := range siblings {
		left := api.Select(dirs[i], sib, sum)
		right := api.Select(dirs[i], sum, sib)
		h.Reset()
		h.Write(left, right)
		sum = h.Sum()
	}
	return sum
}

// keystreamCell derives the cell mask H(tagS, shared.X, shared.Y, nonce, i).
func keystreamCell(h hash.FieldHasher, sharedX, sharedY, nonce frontend.Variable, i int) frontend.Variable {
	h.Reset()
	h.Write(types.DomainKeystream, sharedX, sharedY, nonce, i)
	return h.Sum()
}
