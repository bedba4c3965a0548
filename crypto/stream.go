package crypto

import (
	crand "crypto/rand"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"

	"github.com/veilproto/veil/utils"
)

// keystream domain tag, must stay in step with the in-circuit gadget.
const domainKeystream = 4

// Ciphertext is a hybrid encryption of a cell vector: an ephemeral
// Diffie-Hellman point, a nonce, and one masked cell per plaintext cell
// plus a trailing zero-cell acting as an integrity tag.
type Ciphertext struct {
	EpkX  fr.Element
	EpkY  fr.Element
	Nonce fr.Element
	Cells []fr.Element
}

// EncRandomness carries the split ephemeral scalar r = r0*2^128 + r1
// used for one encryption. Provers need it as witness.
type EncRandomness struct {
	R0 [16]byte
	R1 [16]byte
}

// Scalar recombines the halves into the full ephemeral scalar.
func (er *EncRandomness) Scalar() *big.Int {
	r := new(big.Int).SetBytes(er.R0[:])
	r.Lsh(r, 128)
	return r.Add(r, new(big.Int).SetBytes(er.R1[:]))
}

// Encrypt seals msg to the recipient point. The shared secret is
// r*Recipient, and cell i is masked with
// MiMC(tagS, shared.X, shared.Y, nonce, i). A zero cell is appended
// before masking so that Decrypt can reject foreign ciphertexts.
func Encrypt(recipient twistededwards.PointAffine, msg []fr.Element) (*Ciphertext, *EncRandomness, error) {
	if !recipient.IsOnCurve() {
		return nil, nil, fmt.Errorf("recipient point not on curve")
	}
	var er EncRandomness
	if _, err := crand.Read(er.R0[:]); err != nil {
		return nil, nil, err
	}
	if _, err := crand.Read(er.R1[:]); err != nil {
		return nil, nil, err
	}
	nonce := utils.RandFr()

	r := er.Scalar()
	base := curveBase()
	var epk, shared twistededwards.PointAffine
	epk.ScalarMultiplication(&base, r)
	shared.ScalarMultiplication(&recipient, r)

	padded := make([]fr.Element, len(msg)+1)
	copy(padded, msg)
	// padded[len(msg)] stays zero

	ct := &Ciphertext{
		EpkX:  epk.X,
		EpkY:  epk.Y,
		Nonce: nonce,
		Cells: make([]fr.Element, len(padded)),
	}
	for i := range padded {
		k := keystreamCell(shared, nonce, i)
		ct.Cells[i].Add(&padded[i], &k)
	}
	return ct, &er, nil
}

// Decrypt opens ct with the recipient's secret scalar. It returns the
// plaintext cells without the trailing tag cell, or an error when the
// ciphertext was not addressed to this key.
func Decrypt(scalar *big.Int, ct *Ciphertext) ([]fr.Element, error) {
	if len(ct.Cells) < 2 {
		return nil, fmt.Errorf("ciphertext too short: %d cells", len(ct.Cells))
	}
	var epk, shared twistededwards.PointAffine
	epk.X.Set(&ct.EpkX)
	epk.Y.Set(&ct.EpkY)
	if !epk.IsOnCurve() {
		return nil, fmt.Errorf("ephemeral point not on curve")
	}
	shared.ScalarMultiplication(&epk, scalar)

	out := make([]fr.Element, len(ct.Cells))
	for i := range ct.Cells {
		k := keystreamCell(shared, ct.Nonce, i)
		out[i].Sub(&ct.Cells[i], &k)
	}
	if !out[len(out)-1].IsZero() {
		return nil, fmt.Errorf("integrity cell mismatch")
	}
	return out[:len(out)-1], nil
}

func keystreamCell(shared twistededwards.PointAffine, nonce fr.Element, i int) fr.Element {
	var tag, idx fr.Element
	tag.SetUint64(domainKeystream)
	idx.SetUint64(uint64(i))
	return utils.MiMCHashElements(tag, shared.X, shared.Y, nonce, idx)
}

func curveBase() twistededwards.PointAffine {
	return twistededwards.GetEdwardsCurve().Base
}
