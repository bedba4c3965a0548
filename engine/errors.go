package engine

import (
	"errors"

	"github.com/veilproto/veil/codec"
)

var (
	// ErrSetupFailure wraps circuit compilation or key generation
	// failures.
	ErrSetupFailure = errors.New("engine: setup failure")

	// ErrMalformedWitness wraps structurally invalid prove inputs:
	// wrong arities, path lengths, payload widths or missing keys.
	ErrMalformedWitness = errors.New("engine: malformed witness")

	// ErrConstraintUnsatisfied wraps a witness that is structurally
	// fine but violates the circuit's constraints.
	ErrConstraintUnsatisfied = errors.New("engine: constraint system unsatisfied")

	// ErrSerialization is the codec sentinel, re-exported so callers
	// only need one package for errors.Is checks.
	ErrSerialization = codec.ErrSerialization
)
