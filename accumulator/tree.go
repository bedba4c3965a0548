package accumulator

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/veilproto/veil/utils"
)

// ErrFull is returned by Append once the tree holds 2^depth leaves.
var ErrFull = errors.New("accumulator: tree is full")

// Tree is an append-only merkle accumulator over object commitments.
// Unoccupied slots are zero leaves, so every membership proof has
// exactly depth siblings regardless of how many commitments have been
// appended. Leaves are hashed before insertion and inner nodes hash the
// concatenation of their children, matching the in-circuit recomputation.
type Tree struct {
	depth  int
	leaves []fr.Element // leaf digests of appended commitments
	zeros  []fr.Element // zeros[l] is the digest of an all-empty subtree of height l
}

// New builds an empty accumulator of the given depth. Capacity is
// 2^depth leaves.
func New(depth int) (*Tree, error) {
	if depth < 0 || depth > 64 {
		return nil, fmt.Errorf("accumulator: bad depth %d", depth)
	}
	var zeroLeaf fr.Element
	zeros := make([]fr.Element, depth+1)
	zeros[0] = leafSum(zeroLeaf)
	for l := 0; l < depth; l++ {
		zeros[l+1] = nodeSum(zeros[l], zeros[l])
	}
	return &Tree{depth: depth, zeros: zeros}, nil
}

func (t *Tree) Depth() int       { return t.depth }
func (t *Tree) Size() uint64     { return uint64(len(t.leaves)) }
func (t *Tree) Capacity() uint64 { return uint64(1) << uint(t.depth) }

// Append inserts a commitment and returns its leaf index.
func (t *Tree) Append(cm fr.Element) (uint64, error) {
	if t.Size() >= t.Capacity() {
		return 0, ErrFull
	}
	t.leaves = append(t.leaves, leafSum(cm))
	return t.Size() - 1, nil
}

// Root returns the current accumulator root.
func (t *Tree) Root() fr.Element {
	level := t.currentLeaves()
	for l := 0; l < t.depth; l++ {
		level = t.foldLevel(level, l)
	}
	if len(level) == 0 {
		return t.zeros[t.depth]
	}
	return level[0]
}

// Proof returns the sibling digests of leaf index, bottom-up. Together
// with the commitment itself they recompute Root.
func (t *Tree) Proof(index uint64) ([]fr.Element, error) {
	if index >= t.Size() {
		return nil, fmt.Errorf("accumulator: index %d out of range, size(%d)", index, t.Size())
	}
	siblings := make([]fr.Element, t.depth)
	level := t.currentLeaves()
	idx := index
	for l := 0; l < t.depth; l++ {
		sib := idx ^ 1
		if sib < uint64(len(level)) {
			siblings[l] = level[sib]
		} else {
			siblings[l] = t.zeros[l]
		}
		level = t.foldLevel(level, l)
		idx >>= 1
	}
	return siblings, nil
}

func (t *Tree) currentLeaves() []fr.Element {
	out := make([]fr.Element, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// foldLevel reduces one level to its parents, padding a dangling right
// child with the empty-subtree digest of that height.
func (t *Tree) foldLevel(level []fr.Element, height int) []fr.Element {
	next := make([]fr.Element, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		left := level[i]
		right := t.zeros[height]
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, nodeSum(left, right))
	}
	return next
}

func leafSum(cm fr.Element) fr.Element {
	h := utils.MiMCHasher()
	bz := cm.Bytes()
	h.Write(bz[:])
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

func nodeSum(left, right fr.Element) fr.Element {
	h := utils.MiMCHasher()
	lb := left.Bytes()
	rb := right.Bytes()
	h.Write(lb[:])
	h.Write(rb[:])
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}
