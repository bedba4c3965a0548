package utils

import (
	crand "crypto/rand"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	_ "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc" // registers MIMC_BN254
	"github.com/consensys/gnark-crypto/ecc/twistededwards"
	gnark_hash "github.com/consensys/gnark-crypto/hash"
)

var (
	CURVEID = twistededwards.BN254
)

// MiMCHasher returns the MiMC hasher over the BN254 scalar field.
// The same permutation is used by the in-circuit gadgets, so native
// digests and circuit digests agree bit for bit.
func MiMCHasher() hash.Hash {
	return gnark_hash.MIMC_BN254.New()
}

// MiMCHash hashes the given byte strings chunk-wise as field elements.
// Each 32-byte chunk is canonicalized before being written so values
// larger than the modulus cannot desynchronize native and circuit hashing.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()

	blockSize := hasher.Size()

	hasher.Reset()
	for _, in := range ins {
		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}
			chunk := in[i:end]

			if len(chunk) == blockSize {
				var elem fr.Element
				elem.SetBytes(chunk)
				chunk = elem.Marshal()
			}
			if _, err := hasher.Write(chunk); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

// MiMCHashElements hashes field elements in order and returns the digest
// as a field element.
func MiMCHashElements(ins ...fr.Element) fr.Element {
	hasher := MiMCHasher()
	for i := range ins {
		b := ins[i].Bytes()
		if _, err := hasher.Write(b[:]); err != nil {
			panic(err)
		}
	}
	var out fr.Element
	out.SetBytes(hasher.Sum(nil))
	return out
}

func RandBytes(n int) []byte {
	rbz := make([]byte, n)
	_, _ = crand.Read(rbz)
	return rbz
}

// RandFr samples a uniform field element.
func RandFr() fr.Element {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		panic(err)
	}
	return e
}

// FrToLEBytes encodes a field element as exactly 32 little-endian bytes.
// The boundary layer uses this fixed-width encoding for public-input
// vectors regardless of host endianness.
func FrToLEBytes(e fr.Element) []byte {
	be := e.Bytes()
	le := make([]byte, fr.Bytes)
	for i := 0; i < fr.Bytes; i++ {
		le[i] = be[fr.Bytes-1-i]
	}
	return le
}

// FrFromLEBytes decodes a 32-byte little-endian encoding. It reports
// false when the value is not a canonical field element.
func FrFromLEBytes(bz []byte) (fr.Element, bool) {
	if len(bz) != fr.Bytes {
		return fr.Element{}, false
	}
	be := make([]byte, fr.Bytes)
	for i := 0; i < fr.Bytes; i++ {
		be[i] = bz[fr.Bytes-1-i]
	}
	var e fr.Element
	if err := e.SetBytesCanonical(be); err != nil {
		return fr.Element{}, false
	}
	return e, true
}

// FrFromUint64 is a small convenience used all over the transition
// composer.
func FrFromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}
