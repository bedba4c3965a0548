package utils

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
)

// The hasher is looked up through the gnark-crypto registry, which only
// knows MiMC after the registration import in this package.
func TestMiMCHasherRegistered(t *testing.T) {
	h := MiMCHasher()
	require.NotNil(t, h)
	require.Equal(t, fr.Bytes, h.Size())
}

func TestMiMCHashMatchesElementForm(t *testing.T) {
	a := RandFr()
	b := RandFr()

	ab := a.Bytes()
	bb := b.Bytes()
	h1 := MiMCHash(ab[:], bb[:])

	h2 := MiMCHashElements(a, b)
	h2b := h2.Bytes()
	require.Equal(t, h1, h2b[:], "byte and element hashing must agree")
}

func TestMiMCHashDeterministic(t *testing.T) {
	in := RandBytes(32)
	require.Equal(t, MiMCHash(in), MiMCHash(in))
	require.NotEqual(t, MiMCHash(in), MiMCHash(RandBytes(32)))
}

func TestFrLERoundtrip(t *testing.T) {
	for i := 0; i < 16; i++ {
		e := RandFr()
		bz := FrToLEBytes(e)
		require.Len(t, bz, fr.Bytes)

		back, ok := FrFromLEBytes(bz)
		require.True(t, ok)
		require.True(t, e.Equal(&back))
	}
}

func TestFrLERejectsBadInput(t *testing.T) {
	_, ok := FrFromLEBytes(nil)
	require.False(t, ok)

	_, ok = FrFromLEBytes(RandBytes(31))
	require.False(t, ok)

	// 2^256-1 is far above the modulus and not canonical
	overflow := make([]byte, fr.Bytes)
	for i := range overflow {
		overflow[i] = 0xff
	}
	_, ok = FrFromLEBytes(overflow)
	require.False(t, ok)
}

func TestFrFromUint64(t *testing.T) {
	e := FrFromUint64(42)
	var want fr.Element
	want.SetUint64(42)
	require.True(t, want.Equal(&e))
}
