package ring

import (
	"fmt"
	"math/big"
	"math/bits"
)

// RNSTool stores the auxiliary bases and the precomputed constants used by the
// BEHZ full-RNS ciphertext multiplication, by the rescaling by the last prime
// of the modulus and by the RNS decryption scale-and-round.
//
// The auxiliary primes are MaxInternalModulusBits-bit NTT-friendly primes: the
// base B, the correction prime m_sk and the prime gamma used at decryption.
// Bsk is the base B extended with m_sk and m_tilde is 2^32.
type RNSTool struct {
	N int

	RingQ   *Ring
	RingBsk *Ring

	BaseQ         *RNSBase
	BaseB         *RNSBase
	BaseBsk       *RNSBase
	BaseBskMTilde *RNSBase
	BaseTGamma    *RNSBase

	T      uint64
	MSk    uint64
	MTilde uint64
	Gamma  uint64

	qToBsk    *BaseConverter
	qToMTilde *BaseConverter
	bToQ      *BaseConverter
	bToMSk    *BaseConverter
	qToTGamma *BaseConverter

	mTildeModQ           []uint64 // m_tilde mod q_i
	prodBModQ            []uint64 // prod(B) mod q_i
	prodQModBsk          []uint64 // Q mod bsk_i
	invProdQModBsk       []uint64 // Q^-1 mod bsk_i
	invMTildeModBsk      []uint64 // m_tilde^-1 mod bsk_i
	invProdBModMSk       uint64   // prod(B)^-1 mod m_sk
	negInvProdQModMTilde uint64   // -Q^-1 mod m_tilde
	prodTGammaModQ       []uint64 // t*gamma mod q_i
	negInvQModTGamma     []uint64 // -Q^-1 mod {t, gamma}
	invGammaModT         uint64   // gamma^-1 mod t
	invQLastModQ         []uint64 // q_last^-1 mod q_i for i < k-1
	invQLastModT         uint64   // q_last^-1 mod t
	qLastModT            uint64   // q_last mod t
}

// NewRNSTool creates the RNSTool for the ring ringQ and the plaintext modulus t.
// Q must be coprime with t.
func NewRNSTool(ringQ *Ring, t uint64) (rt *RNSTool, err error) {

	N := ringQ.N
	k := ringQ.ModuliCount()

	if t < 2 {
		return nil, fmt.Errorf("cannot NewRNSTool: plaintext modulus must be at least 2 but is %d", t)
	}

	rt = &RNSTool{N: N, RingQ: ringQ, T: t, MTilde: 1 << 32}

	if rt.BaseQ, err = NewRNSBase(ringQ.Moduli()); err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	// The base B must be large enough so that the products of the tensoring
	// never wrap around Q*prod(B)*m_sk. 32 bits are reserved for the cross terms.
	baseBSize := k
	if 32+bits.Len64(t)+ringQ.Modulus().BitLen() >= MaxInternalModulusBits*k+MaxInternalModulusBits {
		baseBSize++
	}

	primes, err := GenerateNTTPrimes(MaxInternalModulusBits, N<<1, baseBSize+2)
	if err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	rt.MSk = primes[0]
	rt.Gamma = primes[1]

	if rt.BaseB, err = NewRNSBase(primes[2:]); err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	if rt.BaseBsk, err = rt.BaseB.Extend(rt.MSk); err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	if rt.BaseBskMTilde, err = rt.BaseBsk.Extend(rt.MTilde); err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	if rt.BaseTGamma, err = NewRNSBase([]uint64{t, rt.Gamma}); err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	if rt.RingBsk, err = NewRing(N, rt.BaseBsk.Moduli()); err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	baseMTilde, err := NewRNSBase([]uint64{rt.MTilde})
	if err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	baseMSk, err := NewRNSBase([]uint64{rt.MSk})
	if err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	rt.qToBsk = NewBaseConverter(rt.BaseQ, rt.BaseBsk)
	rt.qToMTilde = NewBaseConverter(rt.BaseQ, baseMTilde)
	rt.bToQ = NewBaseConverter(rt.BaseB, rt.BaseQ)
	rt.bToMSk = NewBaseConverter(rt.BaseB, baseMSk)
	rt.qToTGamma = NewBaseConverter(rt.BaseQ, rt.BaseTGamma)

	if err = rt.genConstants(); err != nil {
		return nil, fmt.Errorf("cannot NewRNSTool: %w", err)
	}

	return
}

func modBig(x *big.Int, q uint64) uint64 {
	return new(big.Int).Mod(x, new(big.Int).SetUint64(q)).Uint64()
}

func (rt *RNSTool) genConstants() (err error) {

	Q := rt.BaseQ.Product()
	prodB := rt.BaseB.Product()
	qModuli := rt.BaseQ.Moduli()
	bskModuli := rt.BaseBsk.Moduli()
	k := len(qModuli)

	rt.mTildeModQ = make([]uint64, k)
	rt.prodBModQ = make([]uint64, k)
	rt.prodTGammaModQ = make([]uint64, k)

	for i, q := range qModuli {
		rt.mTildeModQ[i] = rt.MTilde % q
		rt.prodBModQ[i] = modBig(prodB, q)
		rt.prodTGammaModQ[i] = BRed(rt.T%q, rt.Gamma%q, q, GenBRedConstant(q))
	}

	rt.prodQModBsk = make([]uint64, len(bskModuli))
	rt.invProdQModBsk = make([]uint64, len(bskModuli))
	rt.invMTildeModBsk = make([]uint64, len(bskModuli))

	for i, b := range bskModuli {

		rt.prodQModBsk[i] = modBig(Q, b)

		if rt.invProdQModBsk[i], err = ModInverse(rt.prodQModBsk[i], b); err != nil {
			return
		}

		if rt.invMTildeModBsk[i], err = ModInverse(rt.MTilde%b, b); err != nil {
			return
		}
	}

	if rt.invProdBModMSk, err = ModInverse(modBig(prodB, rt.MSk), rt.MSk); err != nil {
		return
	}

	var invQ uint64
	if invQ, err = ModInverse(modBig(Q, rt.MTilde), rt.MTilde); err != nil {
		return
	}
	rt.negInvProdQModMTilde = (rt.MTilde - invQ) & (rt.MTilde - 1)

	rt.negInvQModTGamma = make([]uint64, 2)
	for i, m := range []uint64{rt.T, rt.Gamma} {
		if invQ, err = ModInverse(modBig(Q, m), m); err != nil {
			return
		}
		rt.negInvQModTGamma[i] = NegMod(invQ, m)
	}

	if rt.invGammaModT, err = ModInverse(rt.Gamma%rt.T, rt.T); err != nil {
		return
	}

	rt.invQLastModQ = make([]uint64, k-1)
	qLast := qModuli[k-1]
	for i := 0; i < k-1; i++ {
		if rt.invQLastModQ[i], err = ModInverse(qLast%qModuli[i], qModuli[i]); err != nil {
			return
		}
	}

	rt.qLastModT = qLast % rt.T
	if rt.invQLastModT, err = ModInverse(rt.qLastModT, rt.T); err != nil {
		return
	}

	return
}

// InvQLastModQ returns q_last^-1 mod q_i for every modulus q_i of Q but the last.
func (rt *RNSTool) InvQLastModQ() []uint64 {
	return append([]uint64{}, rt.invQLastModQ...)
}

// InvQLastModT returns q_last^-1 mod t.
func (rt *RNSTool) InvQLastModT() uint64 {
	return rt.invQLastModT
}

// QLastModT returns q_last mod t.
func (rt *RNSTool) QLastModT() uint64 {
	return rt.qLastModT
}

// NewBskPoly allocates a polynomial with one row per modulus of Bsk.
func (rt *RNSTool) NewBskPoly() Poly {
	return rt.RingBsk.NewPoly()
}

// FastBConvMTilde computes the fast base conversion of [in * m_tilde]_Q to Bsk and to {m_tilde}.
// in must be reduced modulo Q, in the coefficient domain.
func (rt *RNSTool) FastBConvMTilde(in Poly, outBsk Poly, outMTilde []uint64) {

	temp := NewPoly(rt.N, rt.BaseQ.Size())

	for i, s := range rt.RingQ.SubRings {
		s.MulScalar(in.Coeffs[i], rt.mTildeModQ[i], temp.Coeffs[i])
	}

	rt.qToBsk.FastConvert(temp.Coeffs, outBsk.Coeffs)
	rt.qToMTilde.FastConvert(temp.Coeffs, [][]uint64{outMTilde})
}

// SmMrq performs the small Montgomery reduction by m_tilde, removing the
// multiple of Q introduced by FastBConvMTilde: out = (in + Q*r) / m_tilde in Bsk,
// with r = -in * Q^-1 mod m_tilde taken in the centered interval.
func (rt *RNSTool) SmMrq(inBsk Poly, inMTilde []uint64, out Poly) {

	mTilde := rt.MTilde
	mask := mTilde - 1
	half := mTilde >> 1

	r := make([]uint64, rt.N)
	for j := range r {
		r[j] = (inMTilde[j] * rt.negInvProdQModMTilde) & mask
	}

	for i, s := range rt.RingBsk.SubRings {

		b := s.Modulus
		u := s.BRedConstant
		prodQ := rt.prodQModBsk[i]
		inv := rt.invMTildeModBsk[i]
		invShoup := ShoupConstant(inv, b)

		in, o := inBsk.Coeffs[i], out.Coeffs[i]

		for j, rj := range r {
			if rj >= half {
				rj += b - mTilde
			}
			o[j] = MulModShoup(MulAddMod(prodQ, rj, in[j], b, u), inv, invShoup, b)
		}
	}
}

// FastFloor computes out = floor(in / Q) in Bsk, up to an error of at most |Q|,
// from the representation of in over Q (inQ) and over Bsk (inBsk).
// Both inputs must be reduced and in the coefficient domain.
func (rt *RNSTool) FastFloor(inQ, inBsk, out Poly) {

	rt.qToBsk.FastConvert(inQ.Coeffs, out.Coeffs)

	for i, s := range rt.RingBsk.SubRings {

		b := s.Modulus
		inv := rt.invProdQModBsk[i]
		invShoup := ShoupConstant(inv, b)

		in, o := inBsk.Coeffs[i], out.Coeffs[i]

		for j := range o {
			o[j] = MulModShoup(in[j]+b-o[j], inv, invShoup, b)
		}
	}
}

// FastBConvSk converts in from Bsk to Q with the Shenoy-Kumaresan correction
// computed with the redundant modulus m_sk. The conversion is exact for inputs
// bounded by prod(B)/2 in absolute value.
func (rt *RNSTool) FastBConvSk(inBsk, out Poly) {

	sizeB := rt.BaseB.Size()
	mSk := rt.MSk
	uMSk := GenBRedConstant(mSk)
	halfMSk := mSk >> 1

	inB := inBsk.Coeffs[:sizeB]
	inMSk := inBsk.Coeffs[sizeB]

	rt.bToQ.FastConvert(inB, out.Coeffs)

	alpha := make([]uint64, rt.N)
	rt.bToMSk.FastConvert(inB, [][]uint64{alpha})

	for j := range alpha {
		alpha[j] = BRed(alpha[j]+mSk-inMSk[j], rt.invProdBModMSk, mSk, uMSk)
	}

	for i, s := range rt.RingQ.SubRings {

		q := s.Modulus
		u := s.BRedConstant
		prodBModQ := rt.prodBModQ[i]
		negProdBModQ := NegMod(prodBModQ, q)

		o := out.Coeffs[i]

		for j, a := range alpha {
			if a > halfMSk {
				o[j] = MulAddMod(prodBModQ, BRedAdd(mSk-a, q, u), o[j], q, u)
			} else {
				o[j] = MulAddMod(negProdBModQ, BRedAdd(a, q, u), o[j], q, u)
			}
		}
	}
}

// DivideAndRoundQLastInplace computes round(in / q_last) over the first k-1 moduli of Q,
// in the coefficient domain. The last row of in is used as scratch space.
func (rt *RNSTool) DivideAndRoundQLastInplace(in Poly) {

	k := rt.BaseQ.Size()
	last := in.Coeffs[k-1]
	sLast := rt.RingQ.SubRings[k-1]
	qLast := sLast.Modulus
	half := qLast >> 1

	for j := range last {
		last[j] = CRed(last[j]+half, qLast)
	}

	temp := make([]uint64, rt.N)

	for i := 0; i < k-1; i++ {
		s := rt.RingQ.SubRings[i]
		rt.roundLastToQi(s, last, half, temp)
		s.Sub(in.Coeffs[i], temp, in.Coeffs[i])
		s.MulScalar(in.Coeffs[i], rt.invQLastModQ[i], in.Coeffs[i])
	}
}

// DivideAndRoundQLastNTTInplace is DivideAndRoundQLastInplace for NTT-domain inputs.
func (rt *RNSTool) DivideAndRoundQLastNTTInplace(in Poly) {

	k := rt.BaseQ.Size()
	last := in.Coeffs[k-1]
	sLast := rt.RingQ.SubRings[k-1]
	qLast := sLast.Modulus
	half := qLast >> 1

	sLast.NTT.Backward(last)

	for j := range last {
		last[j] = CRed(last[j]+half, qLast)
	}

	temp := make([]uint64, rt.N)

	for i := 0; i < k-1; i++ {
		s := rt.RingQ.SubRings[i]
		rt.roundLastToQi(s, last, half, temp)
		s.NTT.Forward(temp)
		s.Sub(in.Coeffs[i], temp, in.Coeffs[i])
		s.MulScalar(in.Coeffs[i], rt.invQLastModQ[i], in.Coeffs[i])
	}
}

// roundLastToQi writes (last - half) mod q_i on temp, last being already offset by half.
func (rt *RNSTool) roundLastToQi(s *SubRing, last []uint64, half uint64, temp []uint64) {
	q := s.Modulus
	u := s.BRedConstant
	halfMod := BRedAdd(half, q, u)
	for j := range last {
		temp[j] = SubMod(BRedAdd(last[j], q, u), halfMod, q)
	}
}

// DecryptScaleAndRound computes out = round(t/Q * in) mod t, for in the
// coefficient-domain value of the decryption polynomial over Q.
func (rt *RNSTool) DecryptScaleAndRound(in Poly, out []uint64) {

	N := rt.N
	t, gamma := rt.T, rt.Gamma
	halfGamma := gamma >> 1

	temp := NewPoly(N, rt.BaseQ.Size())
	for i, s := range rt.RingQ.SubRings {
		s.MulScalar(in.Coeffs[i], rt.prodTGammaModQ[i], temp.Coeffs[i])
	}

	tGamma := [][]uint64{make([]uint64, N), make([]uint64, N)}
	rt.qToTGamma.FastConvert(temp.Coeffs, tGamma)

	uT := GenBRedConstant(t)
	uGamma := GenBRedConstant(gamma)

	for j := 0; j < N; j++ {

		vt := BRed(tGamma[0][j], rt.negInvQModTGamma[0], t, uT)
		vg := BRed(tGamma[1][j], rt.negInvQModTGamma[1], gamma, uGamma)

		var r uint64
		if vg > halfGamma {
			r = AddMod(vt, BRedAdd(gamma-vg, t, uT), t)
		} else {
			r = SubMod(vt, BRedAdd(vg, t, uT), t)
		}

		if r != 0 {
			r = BRed(r, rt.invGammaModT, t, uT)
		}

		out[j] = r
	}
}
