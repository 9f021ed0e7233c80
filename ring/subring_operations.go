package ring

import (
	"math/bits"
)

// Add evaluates p3 = p1 + p2 (mod q).
func (s *SubRing) Add(p1, p2, p3 []uint64) {
	q := s.Modulus
	for j := range p3 {
		p3[j] = CRed(p1[j]+p2[j], q)
	}
}

// Sub evaluates p3 = p1 - p2 (mod q).
func (s *SubRing) Sub(p1, p2, p3 []uint64) {
	q := s.Modulus
	for j := range p3 {
		p3[j] = SubMod(p1[j], p2[j], q)
	}
}

// Neg evaluates p2 = -p1 (mod q).
func (s *SubRing) Neg(p1, p2 []uint64) {
	q := s.Modulus
	for j := range p2 {
		p2[j] = NegMod(p1[j], q)
	}
}

// Reduce evaluates p2 = p1 (mod q) for arbitrary 64-bit inputs.
func (s *SubRing) Reduce(p1, p2 []uint64) {
	q, u := s.Modulus, s.BRedConstant
	for j := range p2 {
		p2[j] = BRedAdd(p1[j], q, u)
	}
}

// MulScalar evaluates p2 = p1 * scalar (mod q).
func (s *SubRing) MulScalar(p1 []uint64, scalar uint64, p2 []uint64) {
	q := s.Modulus
	scalar = BRedAdd(scalar, q, s.BRedConstant)
	scalarShoup := ShoupConstant(scalar, q)
	for j := range p2 {
		p2[j] = MulModShoup(p1[j], scalar, scalarShoup, q)
	}
}

// MulScalarThenAdd evaluates p2 = p2 + p1 * scalar (mod q).
func (s *SubRing) MulScalarThenAdd(p1 []uint64, scalar uint64, p2 []uint64) {
	q := s.Modulus
	scalar = BRedAdd(scalar, q, s.BRedConstant)
	scalarShoup := ShoupConstant(scalar, q)
	for j := range p2 {
		p2[j] = CRed(p2[j]+MulModShoup(p1[j], scalar, scalarShoup, q), q)
	}
}

// MulCoeffsBarrett evaluates p3 = p1 * p2 (mod q) coefficient-wise.
func (s *SubRing) MulCoeffsBarrett(p1, p2, p3 []uint64) {
	q, u := s.Modulus, s.BRedConstant
	for j := range p3 {
		p3[j] = BRed(p1[j], p2[j], q, u)
	}
}

// MulCoeffsBarrettThenAdd evaluates p3 = p3 + p1 * p2 (mod q) coefficient-wise.
func (s *SubRing) MulCoeffsBarrettThenAdd(p1, p2, p3 []uint64) {
	q, u := s.Modulus, s.BRedConstant
	for j := range p3 {
		p3[j] = MulAddMod(p1[j], p2[j], p3[j], q, u)
	}
}

// MForm evaluates p2 = p1 * 2^64 (mod q), the Montgomery form of p1.
func (s *SubRing) MForm(p1, p2 []uint64) {
	q, u := s.Modulus, s.BRedConstant
	for j := range p2 {
		p2[j] = MForm(p1[j], q, u)
	}
}

// MulCoeffsMontgomery evaluates p3 = p1 * p2 * 2^-64 (mod q) coefficient-wise.
// With p2 in Montgomery form, p3 = p1 * p2 (mod q).
func (s *SubRing) MulCoeffsMontgomery(p1, p2, p3 []uint64) {
	q, qInv := s.Modulus, s.MRedConstant
	for j := range p3 {
		p3[j] = MRed(p1[j], p2[j], q, qInv)
	}
}

// MulByMonomial evaluates p2 = p1 * X^k in Z_q[X]/(X^N+1), for k in [0, 2N).
// p1 and p2 must not alias.
func (s *SubRing) MulByMonomial(p1 []uint64, k int, p2 []uint64) {

	N := s.N
	q := s.Modulus
	mask := N - 1

	k &= (N << 1) - 1

	for i := 0; i < N; i++ {
		idx := i + k
		v := p1[i]
		if (idx/N)&1 == 1 {
			v = NegMod(v, q)
		}
		p2[idx&mask] = v
	}
}

// ApplyGalois evaluates p2 = p1(X^galEl) in Z_q[X]/(X^N+1) on coefficient-domain inputs,
// for galEl odd. p1 and p2 must not alias.
func (s *SubRing) ApplyGalois(p1 []uint64, galEl uint64, p2 []uint64) {

	N := uint64(s.N)
	q := s.Modulus
	mask := (N << 1) - 1

	for i := uint64(0); i < N; i++ {
		idx := (i * galEl) & mask
		if idx >= N {
			p2[idx-N] = NegMod(p1[i], q)
		} else {
			p2[idx] = p1[i]
		}
	}
}

// LazyAccumulator is a 128-bit accumulator for products of 60-bit values.
// At most MaxLazyAccumulations products can be accumulated before a Reduce.
type LazyAccumulator struct {
	hi, lo uint64
}

// MaxLazyAccumulations is the number of products of two 60-bit values that can be
// summed in 128 bits without overflow.
const MaxLazyAccumulations = 256

// MulAdd adds a*b to the accumulator.
func (acc *LazyAccumulator) MulAdd(a, b uint64) {
	hi, lo := bits.Mul64(a, b)
	var carry uint64
	acc.lo, carry = bits.Add64(acc.lo, lo, 0)
	acc.hi += hi + carry
}

// Reduce returns the accumulated value modulo q and resets the accumulator
// to that reduced value.
func (acc *LazyAccumulator) Reduce(q uint64, u [2]uint64) uint64 {
	r := BRedWide(acc.hi, acc.lo, q, u)
	acc.hi, acc.lo = 0, r
	return r
}
