package ring

import (
	"math/big"
	"math/bits"
)

// GenBRedConstant computes the constant for the Barrett reduction: floor(2^128/q) as [hi, lo].
func GenBRedConstant(q uint64) (u [2]uint64) {
	bigR := new(big.Int).Lsh(big.NewInt(1), 128)
	bigR.Quo(bigR, new(big.Int).SetUint64(q))
	u[0] = new(big.Int).Rsh(bigR, 64).Uint64()
	u[1] = bigR.Uint64()
	return
}

// BRedAdd computes a mod q.
func BRedAdd(a, q uint64, u [2]uint64) (r uint64) {
	s0, _ := bits.Mul64(a, u[0])
	r = a - s0*q
	if r >= q {
		r -= q
	}
	if r >= q {
		r -= q
	}
	return
}

// BRed computes x*y mod q.
func BRed(x, y, q uint64, u [2]uint64) (r uint64) {
	ahi, alo := bits.Mul64(x, y)
	return BRedWide(ahi, alo, q, u)
}

// BRedWide computes (ahi*2^64 + alo) mod q, for any 128-bit input
// and q smaller than 2^62.
func BRedWide(ahi, alo, q uint64, u [2]uint64) (r uint64) {

	var lhi, mhi, mlo, s0, s1, carry uint64

	// computes the 128-bit floor((a * u) / 2^128), keeping only its lower word

	lhi, _ = bits.Mul64(alo, u[1])

	mhi, mlo = bits.Mul64(alo, u[0])

	s0, carry = bits.Add64(mlo, lhi, 0)

	s1 = mhi + carry

	mhi, mlo = bits.Mul64(ahi, u[1])

	_, carry = bits.Add64(mlo, s0, 0)

	lhi = mhi + carry

	s0 = ahi*u[0] + s1 + lhi

	// the quotient estimate is off by at most 2
	r = alo - s0*q

	if r >= q {
		r -= q
	}

	if r >= q {
		r -= q
	}

	return
}

// MulAddMod computes (x*y + z) mod q.
func MulAddMod(x, y, z, q uint64, u [2]uint64) uint64 {
	ahi, alo := bits.Mul64(x, y)
	var carry uint64
	alo, carry = bits.Add64(alo, z, 0)
	return BRedWide(ahi+carry, alo, q, u)
}

// CRed reduces a in [0, 2q) to [0, q).
func CRed(a, q uint64) uint64 {
	if a >= q {
		return a - q
	}
	return a
}

// ShoupConstant returns floor(w * 2^64 / q), for w < q.
func ShoupConstant(w, q uint64) (wShoup uint64) {
	wShoup, _ = bits.Div64(w, 0, q)
	return
}

// MulModShoupLazy computes x*w mod q in [0, 2q), given wShoup = ShoupConstant(w, q).
func MulModShoupLazy(x, w, wShoup, q uint64) uint64 {
	hi, _ := bits.Mul64(x, wShoup)
	return w*x - hi*q
}

// MulModShoup computes x*w mod q, given wShoup = ShoupConstant(w, q).
func MulModShoup(x, w, wShoup, q uint64) (r uint64) {
	r = MulModShoupLazy(x, w, wShoup, q)
	if r >= q {
		r -= q
	}
	return
}

// AddMod computes (a + b) mod q for a, b in [0, q).
func AddMod(a, b, q uint64) uint64 {
	return CRed(a+b, q)
}

// SubMod computes (a - b) mod q for a, b in [0, q).
func SubMod(a, b, q uint64) uint64 {
	if a >= b {
		return a - b
	}
	return a + q - b
}

// NegMod computes -a mod q for a in [0, q).
func NegMod(a, q uint64) uint64 {
	if a == 0 {
		return 0
	}
	return q - a
}

// MRedConstant computes the constant -q^-1 mod 2^64 of the Montgomery reduction, for q odd.
func MRedConstant(q uint64) (qInv uint64) {
	// Newton iteration doubling the number of correct bits each step
	qInv = q
	for i := 0; i < 5; i++ {
		qInv *= 2 - q*qInv
	}
	return -qInv
}

// MForm returns a * 2^64 mod q.
func MForm(a, q uint64, u [2]uint64) uint64 {
	return BRedWide(BRedAdd(a, q, u), 0, q, u)
}

// MRed computes x * y * 2^-64 mod q for x, y in [0, q), given qInv = MRedConstant(q).
func MRed(x, y, q, qInv uint64) (r uint64) {
	ahi, alo := bits.Mul64(x, y)
	H, _ := bits.Mul64(alo*qInv, q)
	// alo + lo(alo*qInv*q) is 0 mod 2^64 and carries iff alo is not zero
	r = ahi + H
	if alo != 0 {
		r++
	}
	if r >= q {
		r -= q
	}
	return
}
