// Package params fixes the security-relevant sizing of the proving core.
//
// Two profiles exist: Tiny, for tests and constraint-count experiments,
// and Production. The profile is folded into every circuit shape
// identifier, which makes artifacts from different profiles structurally
// incompatible: a verifying key built for one profile rejects proofs and
// public inputs of the other at decode time, before any pairing check.
package params

import (
	"fmt"
	"os"
)

// Profile names accepted by FromEnv.
const (
	ProfileTiny       = "tiny"
	ProfileProduction = "production"

	// EnvProfile is the environment variable consulted by FromEnv.
	EnvProfile = "VEIL_PROFILE"
)

// Profile carries the sizing constants of one security level.
type Profile struct {
	// Name tags serialized artifacts.
	Name string

	// TreeDepth is the fixed height of the commitment accumulator. A
	// tree of depth d stores 2^d leaves; authentication paths always
	// carry exactly d siblings.
	TreeDepth int

	// MaxPayload is the number of field elements in an object payload.
	// Payload slot 0 holds the object's value.
	MaxPayload int

	// ValueBits bounds object values in conservation checks. Values are
	// range-checked to this width inside the circuit so sums cannot
	// wrap around the field modulus.
	ValueBits int
}

// Tiny returns reduced parameters for tests and experiments.
func Tiny() Profile {
	return Profile{
		Name:       ProfileTiny,
		TreeDepth:  2,
		MaxPayload: 4,
		ValueBits:  64,
	}
}

// Production returns the full-strength parameters.
func Production() Profile {
	return Profile{
		Name:       ProfileProduction,
		TreeDepth:  32,
		MaxPayload: 9,
		ValueBits:  128,
	}
}

// FromEnv selects a profile via the VEIL_PROFILE environment variable.
// An unset variable selects Production.
func FromEnv() (Profile, error) {
	switch v := os.Getenv(EnvProfile); v {
	case "", ProfileProduction:
		return Production(), nil
	case ProfileTiny:
		return Tiny(), nil
	default:
		return Profile{}, fmt.Errorf("unknown %s value %q", EnvProfile, v)
	}
}

// Capacity is the number of leaves an accumulator of this profile holds.
func (p Profile) Capacity() uint64 {
	return 1 << uint(p.TreeDepth)
}

// Validate rejects degenerate profiles before they reach circuit setup.
func (p Profile) Validate() error {
	if p.TreeDepth < 0 || p.TreeDepth > 64 {
		return fmt.Errorf("tree depth %d out of range", p.TreeDepth)
	}
	if p.MaxPayload < 1 {
		return fmt.Errorf("payload length %d out of range", p.MaxPayload)
	}
	if p.ValueBits < 1 || p.ValueBits > 128 {
		return fmt.Errorf("value bits %d out of range", p.ValueBits)
	}
	return nil
}
