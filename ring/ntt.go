package ring

import (
	"fmt"
	"math/bits"

	"github.com/tuneinsight/bfvrns/utils"
)

// NTTTable stores the precomputed constants of the Harvey negacyclic
// number theoretic transform of size N modulo a prime q = 1 mod 2N.
// The evaluation domain is in bit-reversed order: the j-th value is the evaluation
// at psi^(2*BitReverse(j)+1), psi being the minimal primitive 2N-th root of unity.
type NTTTable struct {
	N       int
	LogN    int
	Modulus uint64

	Root    uint64
	InvRoot uint64

	RootsForward       []uint64 // powers of Root in bit-reversed order
	RootsForwardShoup  []uint64
	RootsBackward      []uint64 // powers of InvRoot in the order consumed by the inverse transform
	RootsBackwardShoup []uint64

	NInv      uint64
	NInvShoup uint64

	lastRootScaled      uint64 // last backward root multiplied by NInv
	lastRootScaledShoup uint64
}

// NewNTTTable generates the NTT constants of size N modulo q.
func NewNTTTable(N int, q uint64) (t *NTTTable, err error) {

	if N < 2 || !utils.IsPowerOfTwo(N) {
		return nil, fmt.Errorf("cannot NewNTTTable: N must be a power of two greater than one but is %d", N)
	}

	if bits.Len64(q) > MaxInternalModulusBits+1 {
		return nil, fmt.Errorf("cannot NewNTTTable: modulus %d exceeds %d bits", q, MaxInternalModulusBits+1)
	}

	t = &NTTTable{N: N, LogN: bits.Len64(uint64(N)) - 1, Modulus: q}

	if t.Root, err = MinimalPrimitiveRoot(N<<1, q); err != nil {
		return nil, fmt.Errorf("cannot NewNTTTable: %w", err)
	}

	if t.InvRoot, err = ModInverse(t.Root, q); err != nil {
		return nil, fmt.Errorf("cannot NewNTTTable: %w", err)
	}

	u := GenBRedConstant(q)

	t.RootsForward = make([]uint64, N)
	t.RootsForwardShoup = make([]uint64, N)
	t.RootsBackward = make([]uint64, N)
	t.RootsBackwardShoup = make([]uint64, N)

	t.RootsForward[0] = 1
	t.RootsBackward[0] = 1

	power := t.Root
	for i := 1; i < N; i++ {
		t.RootsForward[utils.BitReverse64(uint64(i), t.LogN)] = power
		power = BRed(power, t.Root, q, u)
	}

	power = t.InvRoot
	for i := 1; i < N; i++ {
		t.RootsBackward[utils.BitReverse64(uint64(i-1), t.LogN)+1] = power
		power = BRed(power, t.InvRoot, q, u)
	}

	for i := 0; i < N; i++ {
		t.RootsForwardShoup[i] = ShoupConstant(t.RootsForward[i], q)
		t.RootsBackwardShoup[i] = ShoupConstant(t.RootsBackward[i], q)
	}

	if t.NInv, err = ModInverse(uint64(N), q); err != nil {
		return nil, fmt.Errorf("cannot NewNTTTable: %w", err)
	}

	t.NInvShoup = ShoupConstant(t.NInv, q)

	t.lastRootScaled = BRed(t.RootsBackward[N-1], t.NInv, q, u)
	t.lastRootScaledShoup = ShoupConstant(t.lastRootScaled, q)

	return
}

// ForwardLazy computes the forward negacyclic NTT of a in place.
// Inputs must be in [0, 4q) and outputs are in [0, 4q).
func (t *NTTTable) ForwardLazy(a []uint64) {

	q := t.Modulus
	twoQ := q << 1

	roots, rootsShoup := t.RootsForward, t.RootsForwardShoup

	var k int
	gap := t.N >> 1

	for m := 1; m < t.N; m <<= 1 {

		offset := 0

		for i := 0; i < m; i++ {

			k++

			w, wShoup := roots[k], rootsShoup[k]

			x := a[offset : offset+gap]
			y := a[offset+gap : offset+(gap<<1)]

			for j := range x {

				u := x[j]
				if u >= twoQ {
					u -= twoQ
				}

				v := MulModShoupLazy(y[j], w, wShoup, q)

				x[j] = u + v
				y[j] = u + twoQ - v
			}

			offset += gap << 1
		}

		gap >>= 1
	}
}

// Forward computes the forward negacyclic NTT of a in place.
// Inputs must be in [0, 4q) and outputs are in [0, q).
func (t *NTTTable) Forward(a []uint64) {
	t.ForwardLazy(a)
	reduceFromLazy(a, t.Modulus)
}

// BackwardLazy computes the inverse negacyclic NTT of a in place, including the scaling by N^-1.
// Inputs must be in [0, 2q) and outputs are in [0, 2q).
func (t *NTTTable) BackwardLazy(a []uint64) {

	q := t.Modulus
	twoQ := q << 1

	roots, rootsShoup := t.RootsBackward, t.RootsBackwardShoup

	var k int
	gap := 1

	for m := t.N >> 1; m > 1; m >>= 1 {

		offset := 0

		for i := 0; i < m; i++ {

			k++

			w, wShoup := roots[k], rootsShoup[k]

			x := a[offset : offset+gap]
			y := a[offset+gap : offset+(gap<<1)]

			for j := range x {

				u, v := x[j], y[j]

				s := u + v
				if s >= twoQ {
					s -= twoQ
				}

				x[j] = s
				y[j] = MulModShoupLazy(u+twoQ-v, w, wShoup, q)
			}

			offset += gap << 1
		}

		gap <<= 1
	}

	// last layer merged with the multiplication by N^-1
	x := a[:gap]
	y := a[gap : gap<<1]

	for j := range x {

		u := x[j]
		if u >= twoQ {
			u -= twoQ
		}

		v := y[j]

		s := u + v
		if s >= twoQ {
			s -= twoQ
		}

		x[j] = MulModShoupLazy(s, t.NInv, t.NInvShoup, q)
		y[j] = MulModShoupLazy(u+twoQ-v, t.lastRootScaled, t.lastRootScaledShoup, q)
	}
}

// Backward computes the inverse negacyclic NTT of a in place, including the scaling by N^-1.
// Inputs must be in [0, 2q) and outputs are in [0, q).
func (t *NTTTable) Backward(a []uint64) {
	t.BackwardLazy(a)
	q := t.Modulus
	for i := range a {
		if a[i] >= q {
			a[i] -= q
		}
	}
}

// reduceFromLazy reduces values in [0, 4q) to [0, q).
func reduceFromLazy(a []uint64, q uint64) {
	twoQ := q << 1
	for i := range a {
		v := a[i]
		if v >= twoQ {
			v -= twoQ
		}
		if v >= q {
			v -= q
		}
		a[i] = v
	}
}
