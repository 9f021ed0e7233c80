package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils"
)

// Evaluator evaluates homomorphic operations on BFV ciphertexts. It only holds
// references to immutable objects (the context and the evaluation keys) and allocates
// its scratch space per call, so it can be shared between goroutines.
//
// Every operation writing on an output ciphertext either fully updates it or leaves it
// untouched when an error is returned. The output may alias any of the inputs.
type Evaluator struct {
	ctx *Context
	rlk *RelinKeys
	gks *GaloisKeys
}

// NewEvaluator creates a new Evaluator. The relinearization and Galois keys can be nil,
// in which case the operations that need them return ErrMissingKey.
func NewEvaluator(ctx *Context, rlk *RelinKeys, gks *GaloisKeys) (eval *Evaluator, err error) {

	if err = checkScheme("NewEvaluator", ctx.params.Scheme()); err != nil {
		return nil, err
	}

	if err = checkEvaluationKeys("NewEvaluator", ctx, rlk, gks); err != nil {
		return nil, err
	}

	return &Evaluator{ctx: ctx, rlk: rlk, gks: gks}, nil
}

func checkEvaluationKeys(op string, ctx *Context, rlk *RelinKeys, gks *GaloisKeys) error {

	if rlk != nil && rlk.ParmsID != ctx.KeyParmsID() {
		return fmt.Errorf("cannot %s: %w: relinearization keys are not at the key level", op, ErrParameterMismatch)
	}

	if gks != nil && gks.ParmsID != ctx.KeyParmsID() {
		return fmt.Errorf("cannot %s: %w: Galois keys are not at the key level", op, ErrParameterMismatch)
	}

	return nil
}

// ShallowCopy returns a copy of the Evaluator sharing its context and keys.
func (eval *Evaluator) ShallowCopy() *Evaluator {
	return &Evaluator{ctx: eval.ctx, rlk: eval.rlk, gks: eval.gks}
}

// WithKey returns a copy of the Evaluator using the given keys, which are validated
// as by NewEvaluator.
func (eval *Evaluator) WithKey(rlk *RelinKeys, gks *GaloisKeys) (*Evaluator, error) {
	if err := checkEvaluationKeys("WithKey", eval.ctx, rlk, gks); err != nil {
		return nil, err
	}
	return &Evaluator{ctx: eval.ctx, rlk: rlk, gks: gks}, nil
}

// Context returns the context of the Evaluator.
func (eval *Evaluator) Context() *Context {
	return eval.ctx
}

// checkCiphertext validates that ct is a ciphertext of a data level of the chain and
// returns this level.
func (eval *Evaluator) checkCiphertext(op string, ct *Ciphertext) (cd *ContextData, err error) {

	if ct == nil || ct.Value == nil {
		return nil, fmt.Errorf("cannot %s: %w: ciphertext is nil", op, ErrParameterMismatch)
	}

	if !eval.ctx.isDataLevel(ct.ParmsID) {
		return nil, fmt.Errorf("cannot %s: %w: ParmsID %s is not a data level", op, ErrParameterMismatch, ct.ParmsID)
	}

	cd = eval.ctx.GetContextData(ct.ParmsID)

	if ct.N() != cd.N() || ct.ModuliCount() != cd.ModuliCount() {
		return nil, fmt.Errorf("cannot %s: %w: ciphertext shape does not match its ParmsID", op, ErrParameterMismatch)
	}

	if ct.Size() < CiphertextSizeMin || ct.Size() > CiphertextSizeMax {
		return nil, fmt.Errorf("cannot %s: %w: size %d not in [%d, %d]", op, ErrInvalidSize, ct.Size(), CiphertextSizeMin, CiphertextSizeMax)
	}

	return
}

// checkBinary validates two operands at the same level and in the same domain.
func (eval *Evaluator) checkBinary(op string, op0, op1 *Ciphertext) (cd *ContextData, err error) {

	if cd, err = eval.checkCiphertext(op, op0); err != nil {
		return
	}

	if _, err = eval.checkCiphertext(op, op1); err != nil {
		return
	}

	if op0.ParmsID != op1.ParmsID {
		return nil, fmt.Errorf("cannot %s: %w: operands are at different levels", op, ErrParameterMismatch)
	}

	if op0.IsNTTForm != op1.IsNTTForm {
		return nil, fmt.Errorf("cannot %s: %w: operands are not in the same domain", op, ErrParameterMismatch)
	}

	return
}

// commit writes res on opOut, unless res is transparent.
func commit(op string, res, opOut *Ciphertext) error {

	if opOut == nil {
		return fmt.Errorf("cannot %s: %w: output ciphertext is nil", op, ErrParameterMismatch)
	}

	if res.IsTransparent() {
		return fmt.Errorf("cannot %s: %w", op, ErrTransparentCiphertext)
	}

	opOut.Value = res.Value
	opOut.copyMetadata(res)

	return nil
}

// Negate evaluates opOut = -op0.
func (eval *Evaluator) Negate(op0, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("Negate", op0)
	if err != nil {
		return
	}

	res := op0.CopyNew()
	res.Seed = nil
	for _, p := range res.Value.Polys() {
		cd.Ring.Neg(p, p)
	}

	return commit("Negate", res, opOut)
}

// NegateNew evaluates -op0 on a new ciphertext.
func (eval *Evaluator) NegateNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.Negate(op0, opOut)
}

// Add evaluates opOut = op0 + op1. Operands of different sizes are zero-extended.
// If the correction factors differ, the operands are first multiplied by balancing factors.
func (eval *Evaluator) Add(op0, op1, opOut *Ciphertext) (err error) {
	return eval.addOrSub("Add", op0, op1, opOut, false)
}

// AddNew evaluates op0 + op1 on a new ciphertext.
func (eval *Evaluator) AddNew(op0, op1 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.Add(op0, op1, opOut)
}

// Sub evaluates opOut = op0 - op1. Operands of different sizes are zero-extended.
func (eval *Evaluator) Sub(op0, op1, opOut *Ciphertext) (err error) {
	return eval.addOrSub("Sub", op0, op1, opOut, true)
}

// SubNew evaluates op0 - op1 on a new ciphertext.
func (eval *Evaluator) SubNew(op0, op1 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.Sub(op0, op1, opOut)
}

func (eval *Evaluator) addOrSub(op string, op0, op1, opOut *Ciphertext, sub bool) (err error) {

	cd, err := eval.checkBinary(op, op0, op1)
	if err != nil {
		return
	}

	res, err := addOrSubNew(cd, op0, op1, sub)
	if err != nil {
		return fmt.Errorf("cannot %s: %w", op, err)
	}

	return commit(op, res, opOut)
}

func addOrSubNew(cd *ContextData, op0, op1 *Ciphertext, sub bool) (res *Ciphertext, err error) {

	size := op0.Size()
	if op1.Size() > size {
		size = op1.Size()
	}

	if res, err = newCiphertext(cd, size); err != nil {
		return
	}
	res.copyMetadata(op0)

	e0, e1 := uint64(1), uint64(1)
	if op0.CorrectionFactor != op1.CorrectionFactor {
		if res.CorrectionFactor, e0, e1, err = balanceCorrectionFactors(op0.CorrectionFactor, op1.CorrectionFactor, cd.PlainModulus); err != nil {
			return nil, err
		}
	}

	ringQ := cd.Ring
	tmp := ringQ.NewPoly()

	for i := 0; i < size; i++ {

		r := res.Poly(i)

		if i < op0.Size() {
			ringQ.MulScalar(op0.Poly(i), e0, r)
		}

		if i < op1.Size() {
			ringQ.MulScalar(op1.Poly(i), e1, tmp)
			if sub {
				ringQ.Sub(r, tmp, r)
			} else {
				ringQ.Add(r, tmp, r)
			}
		}
	}

	return
}

// AddMany evaluates opOut = sum(ops).
func (eval *Evaluator) AddMany(ops []*Ciphertext, opOut *Ciphertext) (err error) {

	if len(ops) == 0 {
		return fmt.Errorf("cannot AddMany: %w: empty list of operands", ErrInvalidSize)
	}

	var cd *ContextData
	for _, op := range ops {
		if cd, err = eval.checkBinary("AddMany", ops[0], op); err != nil {
			return
		}
	}

	acc := ops[0]
	if len(ops) == 1 {
		acc = acc.CopyNew()
	}

	for _, op := range ops[1:] {
		if acc, err = addOrSubNew(cd, acc, op, false); err != nil {
			return fmt.Errorf("cannot AddMany: %w", err)
		}
	}

	return commit("AddMany", acc, opOut)
}

// balanceCorrectionFactors returns (f, e0, e1) such that e0*f0 = e1*f1 = f mod t, minimizing
// |e0| + |e1| over the centered representatives modulo t.
func balanceCorrectionFactors(f0, f1, t uint64) (f, e0, e1 uint64, err error) {

	halfT := t >> 1

	sumAbs := func(x, y uint64) uint64 {
		abs := func(v uint64) uint64 {
			if v > halfT {
				return t - v
			}
			return v
		}
		return abs(x) + abs(y)
	}

	inv, err := ring.ModInverse(f0%t, t)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: correction factor %d is not invertible modulo %d", ErrParameterMismatch, f0, t)
	}

	u := ring.GenBRedConstant(t)

	ratio := ring.BRed(inv, f1%t, t, u)

	e0, e1 = ratio, 1
	sum := sumAbs(e0, e1)

	toMod := func(v int64) uint64 {
		if v < 0 {
			return ring.NegMod(uint64(-v)%t, t)
		}
		return uint64(v) % t
	}

	// extended Euclidean algorithm on (t, ratio), with the invariant a = b * ratio mod t
	prevA, prevB := int64(t), int64(0)
	a, b := int64(ratio), int64(1)

	for a != 0 {

		q := prevA / a
		prevA, a = a, prevA%a
		prevB, b = b, prevB-b*q

		aMod, bMod := toMod(a), toMod(b)

		if aMod != 0 && utils.GCD(aMod, t) == 1 {
			if s := sumAbs(aMod, bMod); s < sum {
				sum, e0, e1 = s, aMod, bMod
			}
		}
	}

	return ring.BRed(e0, f0%t, t, u), e0, e1, nil
}
