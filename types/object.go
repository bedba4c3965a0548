package types

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/holiman/uint256"

	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/utils"
)

// Hash domain tags. Every MiMC derivation is prefixed with one of these
// so that commitments, keys, nullifiers, keystream cells and issuance
// digests can never collide across roles.
const (
	DomainCommitment   = 1
	DomainNullifierKey = 2
	DomainNullifier    = 3
	DomainKeystream    = 4
	DomainIssuance     = 5
)

// Object is a confidential record. Payload[0] carries the object's value;
// the remaining payload cells are application data. Serial feeds the
// nullifier and Salt blinds the commitment.
type Object struct {
	TypeTag fr.Element
	Owner   twistededwards.PointAffine
	Payload []fr.Element
	Serial  fr.Element
	Salt    fr.Element
}

// NewObject builds an object owned by owner carrying the given value,
// sampling a fresh serial and salt. The payload is padded with zero
// cells up to the profile's payload width.
func NewObject(p params.Profile, typeTag fr.Element, owner twistededwards.PointAffine, value *uint256.Int, extra []fr.Element) (*Object, error) {
	if len(extra) > p.MaxPayload-1 {
		return nil, fmt.Errorf("payload too wide: got(%d), max(%d)", len(extra), p.MaxPayload-1)
	}
	if value.BitLen() > p.ValueBits {
		return nil, fmt.Errorf("value out of range: %d bits, max(%d)", value.BitLen(), p.ValueBits)
	}
	payload := make([]fr.Element, p.MaxPayload)
	payload[0].SetBigInt(value.ToBig())
	copy(payload[1:], extra)

	return &Object{
		TypeTag: typeTag,
		Owner:   owner,
		Payload: payload,
		Serial:  utils.RandFr(),
		Salt:    utils.RandFr(),
	}, nil
}

// Value returns Payload[0] as a uint256.
func (o *Object) Value() *uint256.Int {
	v := new(uint256.Int)
	bz := o.Payload[0].Bytes()
	v.SetBytes(bz[:])
	return v
}

// Commitment derives the object's note commitment,
// MiMC(tagC, typeTag, owner.X, owner.Y, payload..., serial, salt).
func (o *Object) Commitment() fr.Element {
	ins := make([]fr.Element, 0, 6+len(o.Payload))
	var tag fr.Element
	tag.SetUint64(DomainCommitment)
	ins = append(ins, tag, o.TypeTag, o.Owner.X, o.Owner.Y)
	ins = append(ins, o.Payload...)
	ins = append(ins, o.Serial, o.Salt)
	return utils.MiMCHashElements(ins...)
}

// NullifierKey derives nk = MiMC(tagK, s0, s1) from the split secret
// scalar of the object's owner.
func NullifierKey(id *Identity) fr.Element {
	s0, s1 := id.SplitScalar()
	var tag, e0, e1 fr.Element
	tag.SetUint64(DomainNullifierKey)
	e0.SetBytes(s0)
	e1.SetBytes(s1)
	return utils.MiMCHashElements(tag, e0, e1)
}

// Nullifier derives the spend tag MiMC(tagN, nk, serial). Only the
// owner can compute it, and it is unlinkable to the commitment without
// the owner's key.
func (o *Object) Nullifier(id *Identity) fr.Element {
	nk := NullifierKey(id)
	var tag fr.Element
	tag.SetUint64(DomainNullifier)
	return utils.MiMCHashElements(tag, nk, o.Serial)
}

// Plaintext returns the cell vector that is encrypted to the recipient:
// (typeTag, serial, salt, payload...). The owner point is omitted since
// the recipient knows their own key.
func (o *Object) Plaintext() []fr.Element {
	out := make([]fr.Element, 0, 3+len(o.Payload))
	out = append(out, o.TypeTag, o.Serial, o.Salt)
	out = append(out, o.Payload...)
	return out
}

// ObjectFromPlaintext rebuilds an object from a decrypted cell vector
// and the recipient's key.
func ObjectFromPlaintext(p params.Profile, cells []fr.Element, owner twistededwards.PointAffine) (*Object, error) {
	if len(cells) != 3+p.MaxPayload {
		return nil, fmt.Errorf("wrong plaintext width: expected(%d), got(%d)", 3+p.MaxPayload, len(cells))
	}
	payload := make([]fr.Element, p.MaxPayload)
	copy(payload, cells[3:])
	return &Object{
		TypeTag: cells[0],
		Owner:   owner,
		Payload: payload,
		Serial:  cells[1],
		Salt:    cells[2],
	}, nil
}
