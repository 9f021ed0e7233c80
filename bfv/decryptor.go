package bfv

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils"
)

// Decryptor decrypts ciphertexts with a secret key. It holds no mutable state and
// can be shared between goroutines.
type Decryptor struct {
	ctx *Context
	sk  *SecretKey
}

// NewDecryptor creates a new Decryptor for the secret key sk.
func NewDecryptor(ctx *Context, sk *SecretKey) (dec *Decryptor, err error) {

	if err = checkScheme("NewDecryptor", ctx.params.Scheme()); err != nil {
		return nil, err
	}

	if sk == nil || sk.ParmsID != ctx.KeyParmsID() {
		return nil, fmt.Errorf("cannot NewDecryptor: %w: secret key is not at the key level", ErrParameterMismatch)
	}

	return &Decryptor{ctx: ctx, sk: sk}, nil
}

// Decrypt writes on pt the decryption of ct, with the correction factor of ct removed.
// The plaintext keeps its significant coefficients only, and at least one.
func (dec *Decryptor) Decrypt(ct *Ciphertext, pt *Plaintext) (err error) {

	if pt == nil {
		return fmt.Errorf("cannot Decrypt: %w: plaintext is nil", ErrParameterMismatch)
	}

	cd, phase, err := dec.phase("Decrypt", ct)
	if err != nil {
		return
	}

	t := cd.PlainModulus
	values := make([]uint64, cd.N())
	cd.RNSTool.DecryptScaleAndRound(phase, values)

	if f := ct.CorrectionFactor % t; f != 1 {
		var inv uint64
		if inv, err = ring.ModInverse(f, t); err != nil {
			return fmt.Errorf("cannot Decrypt: %w: correction factor %d is not invertible modulo %d", ErrParameterMismatch, f, t)
		}
		u := ring.GenBRedConstant(t)
		for i := range values {
			values[i] = ring.BRed(values[i], inv, t, u)
		}
	}

	pt.Set(values)
	pt.Scale = 1
	pt.Resize(utils.Max(1, pt.SignificantCoeffCount()))

	return
}

// DecryptNew decrypts ct on a new plaintext.
func (dec *Decryptor) DecryptNew(ct *Ciphertext) (pt *Plaintext, err error) {
	pt = NewPlaintext(0)
	return pt, dec.Decrypt(ct, pt)
}

// InvariantNoiseBudget returns the number of bits of noise that ct can still absorb
// before it stops decrypting correctly. Zero means that the decryption is likely wrong.
func (dec *Decryptor) InvariantNoiseBudget(ct *Ciphertext) (budget int, err error) {

	cd, phase, err := dec.phase("InvariantNoiseBudget", ct)
	if err != nil {
		return
	}

	cd.Ring.MulScalar(phase, cd.PlainModulus, phase)

	norm := maxCenteredNorm(cd, phase)

	if budget = cd.TotalCoeffModulus.BitLen() - norm.BitLen() - 1; budget < 0 {
		budget = 0
	}

	return
}

// phase returns the coefficient-domain value of c0 + c1*s + ... + c_{n-1}*s^{n-1} over the
// primes of the level of ct.
func (dec *Decryptor) phase(op string, ct *Ciphertext) (cd *ContextData, phase ring.Poly, err error) {

	if ct == nil || ct.Value == nil {
		return nil, phase, fmt.Errorf("cannot %s: %w: ciphertext is nil", op, ErrParameterMismatch)
	}

	if !dec.ctx.isDataLevel(ct.ParmsID) {
		return nil, phase, fmt.Errorf("cannot %s: %w: ParmsID %s is not a data level", op, ErrParameterMismatch, ct.ParmsID)
	}

	cd = dec.ctx.GetContextData(ct.ParmsID)

	if ct.N() != cd.N() || ct.ModuliCount() != cd.ModuliCount() {
		return nil, phase, fmt.Errorf("cannot %s: %w: ciphertext shape does not match its ParmsID", op, ErrParameterMismatch)
	}

	if ct.Size() < CiphertextSizeMin || ct.Size() > CiphertextSizeMax {
		return nil, phase, fmt.Errorf("cannot %s: %w: size %d not in [%d, %d]", op, ErrInvalidSize, ct.Size(), CiphertextSizeMin, CiphertextSizeMax)
	}

	ringQ := cd.Ring
	s := dec.sk.Value.Truncate(cd.ModuliCount())

	phase = ringQ.NewPoly()
	tmp := ringQ.NewPoly()

	// Horner evaluation in the NTT domain
	for i := ct.Size() - 1; i >= 0; i-- {

		if ct.IsNTTForm {
			tmp.Copy(ct.Poly(i))
		} else {
			ringQ.NTT(ct.Poly(i), tmp)
		}

		if i != ct.Size()-1 {
			ringQ.MulCoeffsBarrett(phase, s, phase)
		}

		ringQ.Add(phase, tmp, phase)
	}

	ringQ.INTT(phase, phase)

	return
}

// centeredCoeffs returns the coefficients of p composed modulo Q and mapped to (-Q/2, Q/2].
func centeredCoeffs(cd *ContextData, p ring.Poly) (values []*big.Int) {
	values = cd.RNSTool.BaseQ.ComposeArray(p)
	for _, v := range values {
		if v.Cmp(cd.UpperHalfThreshold) >= 0 {
			v.Sub(v, cd.TotalCoeffModulus)
		}
	}
	return
}

// maxCenteredNorm returns the largest absolute value of the centered coefficients of p.
func maxCenteredNorm(cd *ContextData, p ring.Poly) (norm *big.Int) {
	norm = new(big.Int)
	for _, v := range centeredCoeffs(cd, p) {
		if v.Abs(v).Cmp(norm) > 0 {
			norm.Set(v)
		}
	}
	return
}
