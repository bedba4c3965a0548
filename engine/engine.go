// Package engine drives the groth16 lifecycle of transition circuits:
// per-shape setup, proving and verification, plus a byte-level boundary
// for hosts that treat keys, proofs and public inputs as opaque blobs.
package engine

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"

	"github.com/veilproto/veil/circuit"
	"github.com/veilproto/veil/codec"
	"github.com/veilproto/veil/params"
	"github.com/veilproto/veil/types"
)

// Engine proves and verifies transitions for one parameter profile.
type Engine struct {
	profile params.Profile
	log     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger injects the logger used for lifecycle events and the
// constraint solver trace.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an engine bound to a profile. Without WithLogger the
// engine stays silent.
func New(profile params.Profile, opts ...Option) (*Engine, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		profile: profile,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Profile() params.Profile { return e.profile }

// Artifacts holds everything produced by one trusted setup: the
// constraint system and the groth16 key pair, all bound to one shape.
type Artifacts struct {
	Shape types.Shape
	CCS   constraint.ConstraintSystem
	PK    groth16.ProvingKey
	VK    groth16.VerifyingKey
}

// Context is an explicit registry of per-shape artifacts. Populate it
// during setup, then share it freely; lookups after that point are
// read-only.
type Context struct {
	mu        sync.RWMutex
	artifacts map[types.ShapeID]*Artifacts
}

func NewContext() *Context {
	return &Context{artifacts: make(map[types.ShapeID]*Artifacts)}
}

func (c *Context) Register(a *Artifacts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts[a.Shape.ID()] = a
}

func (c *Context) Get(id types.ShapeID) (*Artifacts, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.artifacts[id]
	return a, ok
}

// Setup compiles the circuit for shape and runs the groth16 setup.
func (e *Engine) Setup(shape types.Shape) (*Artifacts, error) {
	if shape.Profile != e.profile {
		return nil, fmt.Errorf("%w: shape profile %q does not match engine profile %q",
			ErrSetupFailure, shape.Profile.Name, e.profile.Name)
	}
	e.log.Info().
		Str("kind", shape.Kind.String()).
		Int("consumed", shape.NumConsumed).
		Int("produced", shape.NumProduced).
		Msg("compiling transition circuit")

	ccs, err := circuit.Compile(shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetupFailure, err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetupFailure, err)
	}
	e.log.Info().
		Str("shape", shape.ID().String()).
		Int("constraints", ccs.GetNbConstraints()).
		Msg("setup complete")

	return &Artifacts{Shape: shape, CCS: ccs, PK: pk, VK: vk}, nil
}

// Prove composes the transition into a witness and produces a proof
// together with the derived public inputs. Structural problems surface
// as ErrMalformedWitness, unsatisfiable witnesses as
// ErrConstraintUnsatisfied.
func (e *Engine) Prove(art *Artifacts, tr *types.Transition) (groth16.Proof, *types.PublicInputs, error) {
	assignment, pi, err := circuit.Compose(art.Shape, tr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedWitness, err)
	}
	wtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedWitness, err)
	}
	proof, err := groth16.Prove(art.CCS, art.PK, wtn,
		backend.WithSolverOptions(solver.WithLogger(e.log)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConstraintUnsatisfied, err)
	}
	e.log.Debug().
		Str("shape", art.Shape.ID().String()).
		Str("kind", art.Shape.Kind.String()).
		Msg("proof generated")
	return proof, pi, nil
}

// Verify checks a proof against public inputs. It returns false with a
// nil error when the proof does not verify, and an error only when the
// inputs are structurally unusable. A shape mismatch between the public
// inputs and the artifacts is structural, not an honest rejection, so
// it surfaces as ErrSerialization rather than a bare false.
func (e *Engine) Verify(art *Artifacts, pi *types.PublicInputs, proof groth16.Proof) (bool, error) {
	expected := pi.ShapeOf(e.profile)
	if expected.ID() != art.Shape.ID() {
		return false, fmt.Errorf("%w: public inputs do not match artifact shape", ErrSerialization)
	}
	assignment, err := circuit.PublicAssignment(e.profile, pi)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	pubWtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := groth16.Verify(proof, art.VK, pubWtn); err != nil {
		e.log.Debug().Err(err).Msg("proof rejected")
		return false, nil
	}
	return true, nil
}

// SetupBytes runs Setup and returns the serialized key pair. The
// constraint system is recompiled from the shape on the proving side,
// so it is not part of the encoding.
func (e *Engine) SetupBytes(shape types.Shape) ([]byte, []byte, error) {
	art, err := e.Setup(shape)
	if err != nil {
		return nil, nil, err
	}
	pkBytes, err := codec.EncodeProvingKey(shape, art.PK)
	if err != nil {
		return nil, nil, err
	}
	vkBytes, err := codec.EncodeVerifyingKey(shape, art.VK)
	if err != nil {
		return nil, nil, err
	}
	return pkBytes, vkBytes, nil
}

// ProveBytes decodes a proving key envelope, recompiles the circuit for
// its shape and proves the transition. It returns the serialized proof
// and public inputs.
func (e *Engine) ProveBytes(pkBytes []byte, tr *types.Transition) ([]byte, []byte, error) {
	shape, pk, err := codec.DecodeProvingKey(pkBytes)
	if err != nil {
		return nil, nil, err
	}
	if shape.Profile != e.profile {
		return nil, nil, fmt.Errorf("%w: proving key profile %q does not match engine profile %q",
			ErrSerialization, shape.Profile.Name, e.profile.Name)
	}
	ccs, err := circuit.Compile(shape)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSetupFailure, err)
	}
	art := &Artifacts{Shape: shape, CCS: ccs, PK: pk}
	proof, pi, err := e.Prove(art, tr)
	if err != nil {
		return nil, nil, err
	}
	proofBytes, err := codec.EncodeProof(shape, proof)
	if err != nil {
		return nil, nil, err
	}
	publicBytes, err := codec.EncodePublicInputs(shape, pi)
	if err != nil {
		return nil, nil, err
	}
	return proofBytes, publicBytes, nil
}

// VerifyBytes decodes a verifying key, public inputs and a proof and
// checks them against each other. All three envelopes must carry the
// same shape.
func (e *Engine) VerifyBytes(vkBytes, publicBytes, proofBytes []byte) (bool, error) {
	vkShape, vk, err := codec.DecodeVerifyingKey(vkBytes)
	if err != nil {
		return false, err
	}
	piShape, pi, err := codec.DecodePublicInputs(publicBytes)
	if err != nil {
		return false, err
	}
	proofShape, proof, err := codec.DecodeProof(proofBytes)
	if err != nil {
		return false, err
	}
	if vkShape.ID() != piShape.ID() || vkShape.ID() != proofShape.ID() {
		return false, fmt.Errorf("%w: artifact shapes do not match", ErrSerialization)
	}
	if vkShape.Profile != e.profile {
		return false, fmt.Errorf("%w: verifying key profile %q does not match engine profile %q",
			ErrSerialization, vkShape.Profile.Name, e.profile.Name)
	}
	return e.Verify(&Artifacts{Shape: vkShape, VK: vk}, pi, proof)
}
