package ring

// Add evaluates p3 = p1 + p2 coefficient-wise in the ring.
func (r *Ring) Add(p1, p2, p3 Poly) {
	for i, s := range r.SubRings {
		s.Add(p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i])
	}
}

// Sub evaluates p3 = p1 - p2 coefficient-wise in the ring.
func (r *Ring) Sub(p1, p2, p3 Poly) {
	for i, s := range r.SubRings {
		s.Sub(p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i])
	}
}

// Neg evaluates p2 = -p1 coefficient-wise in the ring.
func (r *Ring) Neg(p1, p2 Poly) {
	for i, s := range r.SubRings {
		s.Neg(p1.Coeffs[i], p2.Coeffs[i])
	}
}

// Reduce evaluates p2 = p1 mod Q for arbitrary 64-bit coefficients.
func (r *Ring) Reduce(p1, p2 Poly) {
	for i, s := range r.SubRings {
		s.Reduce(p1.Coeffs[i], p2.Coeffs[i])
	}
}

// MulScalar evaluates p2 = p1 * scalar coefficient-wise in the ring.
func (r *Ring) MulScalar(p1 Poly, scalar uint64, p2 Poly) {
	for i, s := range r.SubRings {
		s.MulScalar(p1.Coeffs[i], scalar, p2.Coeffs[i])
	}
}

// MulScalarRNS evaluates p2 = p1 * scalar coefficient-wise in the ring,
// with scalar given in its RNS representation.
func (r *Ring) MulScalarRNS(p1 Poly, scalar []uint64, p2 Poly) {
	for i, s := range r.SubRings {
		s.MulScalar(p1.Coeffs[i], scalar[i], p2.Coeffs[i])
	}
}

// MulCoeffsBarrett evaluates p3 = p1 * p2 coefficient-wise in the ring.
func (r *Ring) MulCoeffsBarrett(p1, p2, p3 Poly) {
	for i, s := range r.SubRings {
		s.MulCoeffsBarrett(p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i])
	}
}

// MulCoeffsBarrettThenAdd evaluates p3 = p3 + p1 * p2 coefficient-wise in the ring.
func (r *Ring) MulCoeffsBarrettThenAdd(p1, p2, p3 Poly) {
	for i, s := range r.SubRings {
		s.MulCoeffsBarrettThenAdd(p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i])
	}
}

// MForm evaluates p2 = p1 * 2^64 coefficient-wise in the ring.
func (r *Ring) MForm(p1, p2 Poly) {
	for i, s := range r.SubRings {
		s.MForm(p1.Coeffs[i], p2.Coeffs[i])
	}
}

// MulCoeffsMontgomery evaluates p3 = p1 * p2 * 2^-64 coefficient-wise in the ring.
func (r *Ring) MulCoeffsMontgomery(p1, p2, p3 Poly) {
	for i, s := range r.SubRings {
		s.MulCoeffsMontgomery(p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i])
	}
}

// MulByMonomial evaluates p2 = p1 * X^k in the ring, for k in [0, 2N).
// p1 and p2 may alias.
func (r *Ring) MulByMonomial(p1 Poly, k int, p2 Poly) {
	tmp := make([]uint64, r.N)
	for i, s := range r.SubRings {
		s.MulByMonomial(p1.Coeffs[i], k, tmp)
		copy(p2.Coeffs[i], tmp)
	}
}

// NTT evaluates p2 = NTT(p1) with outputs in [0, q).
func (r *Ring) NTT(p1, p2 Poly) {
	for i, s := range r.SubRings {
		if &p1.Coeffs[i][0] != &p2.Coeffs[i][0] {
			copy(p2.Coeffs[i], p1.Coeffs[i])
		}
		s.NTT.Forward(p2.Coeffs[i])
	}
}

// NTTLazy evaluates p2 = NTT(p1) with outputs in [0, 4q).
func (r *Ring) NTTLazy(p1, p2 Poly) {
	for i, s := range r.SubRings {
		if &p1.Coeffs[i][0] != &p2.Coeffs[i][0] {
			copy(p2.Coeffs[i], p1.Coeffs[i])
		}
		s.NTT.ForwardLazy(p2.Coeffs[i])
	}
}

// INTT evaluates p2 = INTT(p1) with outputs in [0, q).
func (r *Ring) INTT(p1, p2 Poly) {
	for i, s := range r.SubRings {
		if &p1.Coeffs[i][0] != &p2.Coeffs[i][0] {
			copy(p2.Coeffs[i], p1.Coeffs[i])
		}
		s.NTT.Backward(p2.Coeffs[i])
	}
}

// INTTLazy evaluates p2 = INTT(p1) with outputs in [0, 2q).
func (r *Ring) INTTLazy(p1, p2 Poly) {
	for i, s := range r.SubRings {
		if &p1.Coeffs[i][0] != &p2.Coeffs[i][0] {
			copy(p2.Coeffs[i], p1.Coeffs[i])
		}
		s.NTT.BackwardLazy(p2.Coeffs[i])
	}
}

// ApplyGalois evaluates p2 = p1(X^galEl) on coefficient-domain polynomials.
// p1 and p2 must not alias.
func (r *Ring) ApplyGalois(p1 Poly, galEl uint64, p2 Poly) {
	for i, s := range r.SubRings {
		s.ApplyGalois(p1.Coeffs[i], galEl, p2.Coeffs[i])
	}
}
