// Package ring implements RNS-accelerated modular arithmetic over the
// negacyclic polynomial ring Z_Q[X]/(X^N+1), with Harvey NTT, Barrett and
// Shoup reductions, RNS base conversions and the Galois automorphisms.
package ring

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/tuneinsight/bfvrns/utils"
)

// MinLogN and MaxLogN bound the supported ring degrees.
const (
	MinLogN = 1
	MaxLogN = 17
)

// SubRing is the ring Z_q[X]/(X^N+1) for a single NTT-friendly modulus q.
type SubRing struct {
	N            int
	Modulus      uint64
	BRedConstant [2]uint64
	MRedConstant uint64
	NTT          *NTTTable
}

// NewSubRing creates the SubRing of degree N modulo q.
func NewSubRing(N int, q uint64) (s *SubRing, err error) {
	s = &SubRing{N: N, Modulus: q, BRedConstant: GenBRedConstant(q), MRedConstant: MRedConstant(q)}
	if s.NTT, err = NewNTTTable(N, q); err != nil {
		return nil, err
	}
	return
}

// Ring is the ring Z_Q[X]/(X^N+1) with Q the product of the moduli of its SubRings.
type Ring struct {
	N        int
	LogN     int
	SubRings []*SubRing
	modulus  *big.Int
}

// NewRing creates a new RNS Ring with degree N and the given moduli.
// N must be a power of two and every modulus must be a prime congruent to 1 modulo 2N.
func NewRing(N int, moduli []uint64) (r *Ring, err error) {

	if N < 1<<MinLogN || N > 1<<MaxLogN || !utils.IsPowerOfTwo(N) {
		return nil, fmt.Errorf("cannot NewRing: invalid ring degree %d", N)
	}

	if len(moduli) == 0 {
		return nil, fmt.Errorf("cannot NewRing: moduli list is empty")
	}

	if !utils.AllDistinct(moduli) {
		return nil, fmt.Errorf("cannot NewRing: moduli are not distinct")
	}

	r = &Ring{N: N, LogN: bits.Len64(uint64(N)) - 1, SubRings: make([]*SubRing, len(moduli))}

	for i, q := range moduli {

		if !IsPrime(q) || q%uint64(N<<1) != 1 {
			return nil, fmt.Errorf("cannot NewRing: modulus %d is not an NTT-friendly prime for N=%d", q, N)
		}

		if r.SubRings[i], err = NewSubRing(N, q); err != nil {
			return nil, fmt.Errorf("cannot NewRing: %w", err)
		}
	}

	r.modulus = productOf(r.SubRings)

	return
}

func productOf(subRings []*SubRing) *big.Int {
	m := big.NewInt(1)
	for _, s := range subRings {
		m.Mul(m, new(big.Int).SetUint64(s.Modulus))
	}
	return m
}

// ModuliCount returns the number of moduli of the ring.
func (r *Ring) ModuliCount() int {
	return len(r.SubRings)
}

// Moduli returns the list of moduli of the ring.
func (r *Ring) Moduli() (moduli []uint64) {
	moduli = make([]uint64, len(r.SubRings))
	for i, s := range r.SubRings {
		moduli[i] = s.Modulus
	}
	return
}

// Modulus returns the product of the moduli of the ring.
func (r *Ring) Modulus() *big.Int {
	return new(big.Int).Set(r.modulus)
}

// Truncate returns a ring sharing the first moduliCount SubRings of r.
func (r *Ring) Truncate(moduliCount int) (*Ring, error) {
	if moduliCount < 1 || moduliCount > len(r.SubRings) {
		return nil, fmt.Errorf("cannot Truncate: %d moduli requested, ring has %d", moduliCount, len(r.SubRings))
	}
	return &Ring{N: r.N, LogN: r.LogN, SubRings: r.SubRings[:moduliCount], modulus: productOf(r.SubRings[:moduliCount])}, nil
}

// NewPoly creates a new polynomial with all coefficients set to 0.
func (r *Ring) NewPoly() Poly {
	return NewPoly(r.N, len(r.SubRings))
}
