package bfv

import (
	"math/bits"

	"github.com/tuneinsight/bfvrns/ring"
)

// scalePlainThenAdd evaluates c0 = c0 + round(Q*m/t) over the primes of cd, for m the
// coefficients of pt (which must be smaller than t). Subtracts instead when negate is true.
//
// round(Q*m/t) is computed as floor(Q/t)*m + floor(((Q mod t)*m + (t+1)/2) / t).
func scalePlainThenAdd(cd *ContextData, pt []uint64, c0 ring.Poly, negate bool) {

	t := cd.PlainModulus
	qModT := cd.CoeffModPlainModulus
	half := cd.PlainUpperHalfThreshold

	fix := make([]uint64, len(pt))
	for j, m := range pt {
		hi, lo := bits.Mul64(qModT, m)
		var carry uint64
		lo, carry = bits.Add64(lo, half, 0)
		hi += carry
		fix[j], _ = bits.Div64(hi, lo, t)
	}

	for i, s := range cd.Ring.SubRings {

		q := s.Modulus
		u := s.BRedConstant
		delta := cd.CoeffDivPlainModulus[i]
		c := c0.Coeffs[i]

		for j, m := range pt {
			v := mulAddModFix(delta, m, fix[j], q, u)
			if negate {
				c[j] = ring.SubMod(c[j], v, q)
			} else {
				c[j] = ring.AddMod(c[j], v, q)
			}
		}
	}
}

// mulAddModFix returns (delta*m + fix) mod q for delta < q and arbitrary m and fix.
func mulAddModFix(delta, m, fix, q uint64, u [2]uint64) uint64 {
	return ring.MulAddMod(delta, ring.BRedAdd(m, q, u), ring.BRedAdd(fix, q, u), q, u)
}

// liftPlain writes on out the coefficients of pt mapped from [0, t) to their centered
// representative modulo each prime of cd: values at least (t+1)/2 are lifted to
// value + (q_i - t).
func liftPlain(cd *ContextData, pt []uint64, out ring.Poly) {

	threshold := cd.PlainUpperHalfThreshold

	for i, s := range cd.Ring.SubRings {

		q := s.Modulus
		u := s.BRedConstant
		inc := cd.PlainUpperHalfIncrement[i]
		o := out.Coeffs[i]

		for j, m := range pt {
			if m >= threshold {
				o[j] = ring.AddMod(ring.BRedAdd(m, q, u), inc, q)
			} else {
				o[j] = ring.BRedAdd(m, q, u)
			}
		}

		for j := len(pt); j < len(o); j++ {
			o[j] = 0
		}
	}
}

// liftScalar returns the centered lift of m in [0, t) modulo the i-th prime of cd.
func liftScalar(cd *ContextData, i int, m uint64) uint64 {
	s := cd.Ring.SubRings[i]
	v := ring.BRedAdd(m, s.Modulus, s.BRedConstant)
	if m >= cd.PlainUpperHalfThreshold {
		v = ring.AddMod(v, cd.PlainUpperHalfIncrement[i], s.Modulus)
	}
	return v
}
