package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvrns/ring"
)

// checkPlain validates a coefficient-domain plaintext with at most N coefficients smaller than t.
func checkPlain(op string, cd *ContextData, pt *Plaintext) error {

	if pt == nil {
		return fmt.Errorf("cannot %s: %w: plaintext is nil", op, ErrParameterMismatch)
	}

	if pt.IsNTTForm() {
		return fmt.Errorf("cannot %s: %w: plaintext must be in the coefficient domain", op, ErrParameterMismatch)
	}

	if pt.CoeffCount() > cd.N() {
		return fmt.Errorf("cannot %s: %w: plaintext has %d coefficients but N is %d", op, ErrInvalidSize, pt.CoeffCount(), cd.N())
	}

	t := cd.PlainModulus
	for i, c := range pt.Coeffs {
		if c >= t {
			return fmt.Errorf("cannot %s: %w: plaintext coefficient %d is not reduced modulo %d", op, ErrParameterMismatch, i, t)
		}
	}

	return nil
}

// plainPoly returns a view of an NTT-form plaintext as a polynomial of the level cd.
func plainPoly(cd *ContextData, pt *Plaintext) (p ring.Poly) {
	N := cd.N()
	p.Buff = pt.Coeffs
	p.Coeffs = make([][]uint64, cd.ModuliCount())
	for i := range p.Coeffs {
		p.Coeffs[i] = pt.Coeffs[i*N : (i+1)*N]
	}
	return
}

// AddPlain evaluates opOut = op0 + pt. op0 must be in the coefficient domain.
func (eval *Evaluator) AddPlain(op0 *Ciphertext, pt *Plaintext, opOut *Ciphertext) (err error) {
	return eval.addOrSubPlain("AddPlain", op0, pt, opOut, false)
}

// AddPlainNew evaluates op0 + pt on a new ciphertext.
func (eval *Evaluator) AddPlainNew(op0 *Ciphertext, pt *Plaintext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.AddPlain(op0, pt, opOut)
}

// SubPlain evaluates opOut = op0 - pt. op0 must be in the coefficient domain.
func (eval *Evaluator) SubPlain(op0 *Ciphertext, pt *Plaintext, opOut *Ciphertext) (err error) {
	return eval.addOrSubPlain("SubPlain", op0, pt, opOut, true)
}

// SubPlainNew evaluates op0 - pt on a new ciphertext.
func (eval *Evaluator) SubPlainNew(op0 *Ciphertext, pt *Plaintext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.SubPlain(op0, pt, opOut)
}

func (eval *Evaluator) addOrSubPlain(op string, op0 *Ciphertext, pt *Plaintext, opOut *Ciphertext, sub bool) (err error) {

	cd, err := eval.checkCiphertext(op, op0)
	if err != nil {
		return
	}

	if op0.IsNTTForm {
		return fmt.Errorf("cannot %s: %w: ciphertext must be in the coefficient domain", op, ErrParameterMismatch)
	}

	if err = checkPlain(op, cd, pt); err != nil {
		return
	}

	values := pt.Coeffs

	// the message of op0 is scaled by its correction factor
	if f := op0.CorrectionFactor; f != 1 {
		t := cd.PlainModulus
		u := ring.GenBRedConstant(t)
		values = make([]uint64, len(pt.Coeffs))
		for i, c := range pt.Coeffs {
			values[i] = ring.BRed(c, f%t, t, u)
		}
	}

	res := op0.CopyNew()
	res.Seed = nil

	scalePlainThenAdd(cd, values, res.Poly(0), sub)

	return commit(op, res, opOut)
}

// MultiplyPlain evaluates opOut = op0 * pt. A coefficient-domain op0 takes a coefficient-domain pt
// and an NTT-form op0 takes a pt in NTT form at the same level. A plaintext with a single
// non-zero coefficient is applied as a scaled negacyclic shift.
func (eval *Evaluator) MultiplyPlain(op0 *Ciphertext, pt *Plaintext, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("MultiplyPlain", op0)
	if err != nil {
		return
	}

	if pt == nil {
		return fmt.Errorf("cannot MultiplyPlain: %w: plaintext is nil", ErrParameterMismatch)
	}

	res := op0.CopyNew()
	res.Seed = nil

	ringQ := cd.Ring

	switch {
	case op0.IsNTTForm:

		if pt.ParmsID != op0.ParmsID {
			return fmt.Errorf("cannot MultiplyPlain: %w: plaintext must be in NTT form at the level of the ciphertext", ErrParameterMismatch)
		}

		if pt.CoeffCount() != cd.ModuliCount()*cd.N() {
			return fmt.Errorf("cannot MultiplyPlain: %w: NTT plaintext has %d coefficients", ErrInvalidSize, pt.CoeffCount())
		}

		ptQ := ringQ.NewPoly()
		ringQ.MForm(plainPoly(cd, pt), ptQ)

		for _, p := range res.Value.Polys() {
			ringQ.MulCoeffsMontgomery(p, ptQ, p)
		}

	default:

		if err = checkPlain("MultiplyPlain", cd, pt); err != nil {
			return
		}

		if pt.NonZeroCoeffCount() == 1 {
			multiplyPlainMonomial(cd, res, pt)
			break
		}

		ptQ := ringQ.NewPoly()
		liftPlain(cd, pt.Coeffs, ptQ)
		ringQ.NTT(ptQ, ptQ)
		ringQ.MForm(ptQ, ptQ)

		for _, p := range res.Value.Polys() {
			ringQ.NTT(p, p)
			ringQ.MulCoeffsMontgomery(p, ptQ, p)
			ringQ.INTT(p, p)
		}
	}

	return commit("MultiplyPlain", res, opOut)
}

// MultiplyPlainNew evaluates op0 * pt on a new ciphertext.
func (eval *Evaluator) MultiplyPlainNew(op0 *Ciphertext, pt *Plaintext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.MultiplyPlain(op0, pt, opOut)
}

// multiplyPlainMonomial multiplies ct in place by m * X^e, for pt = m * X^e.
func multiplyPlainMonomial(cd *ContextData, ct *Ciphertext, pt *Plaintext) {

	e := pt.SignificantCoeffCount() - 1
	m := pt.Coeffs[e]

	ringQ := cd.Ring

	scalars := make([]uint64, ringQ.ModuliCount())
	for i := range scalars {
		scalars[i] = liftScalar(cd, i, m)
	}

	for _, p := range ct.Value.Polys() {
		ringQ.MulByMonomial(p, e, p)
		ringQ.MulScalarRNS(p, scalars, p)
	}
}

// TransformToNTT evaluates opOut = NTT(op0) on every polynomial of a coefficient-domain op0.
func (eval *Evaluator) TransformToNTT(op0, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("TransformToNTT", op0)
	if err != nil {
		return
	}

	if op0.IsNTTForm {
		return fmt.Errorf("cannot TransformToNTT: %w: ciphertext is already in NTT form", ErrParameterMismatch)
	}

	res := op0.CopyNew()
	res.Seed = nil

	for _, p := range res.Value.Polys() {
		cd.Ring.NTT(p, p)
	}
	res.IsNTTForm = true

	return commit("TransformToNTT", res, opOut)
}

// TransformToNTTNew evaluates NTT(op0) on a new ciphertext.
func (eval *Evaluator) TransformToNTTNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.TransformToNTT(op0, opOut)
}

// TransformFromNTT evaluates opOut = INTT(op0) on every polynomial of an NTT-form op0.
func (eval *Evaluator) TransformFromNTT(op0, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("TransformFromNTT", op0)
	if err != nil {
		return
	}

	if !op0.IsNTTForm {
		return fmt.Errorf("cannot TransformFromNTT: %w: ciphertext is not in NTT form", ErrParameterMismatch)
	}

	res := op0.CopyNew()
	res.Seed = nil

	for _, p := range res.Value.Polys() {
		cd.Ring.INTT(p, p)
	}
	res.IsNTTForm = false

	return commit("TransformFromNTT", res, opOut)
}

// TransformFromNTTNew evaluates INTT(op0) on a new ciphertext.
func (eval *Evaluator) TransformFromNTTNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.TransformFromNTT(op0, opOut)
}

// TransformPlainToNTT lifts the coefficients of pt modulo the primes of the level id and
// replaces them by their NTT, binding pt to that level.
func (eval *Evaluator) TransformPlainToNTT(pt *Plaintext, id ParmsID) (err error) {

	cd, err := eval.ctx.contextDataOf("TransformPlainToNTT", id)
	if err != nil {
		return
	}

	if err = checkPlain("TransformPlainToNTT", cd, pt); err != nil {
		return
	}

	p := cd.Ring.NewPoly()
	liftPlain(cd, pt.Coeffs, p)
	cd.Ring.NTT(p, p)

	pt.Coeffs = p.Buff
	pt.ParmsID = id

	return
}
