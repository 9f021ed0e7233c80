package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvrns/ring"
)

// ApplyGalois evaluates opOut = op0(X^galEl), key switching the result back to the secret key
// with the Galois key of galEl. op0 must be of size 2 and in the coefficient domain.
func (eval *Evaluator) ApplyGalois(op0 *Ciphertext, galEl uint64, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("ApplyGalois", op0)
	if err != nil {
		return
	}

	res := op0.CopyNew()
	res.Seed = nil

	if err = eval.applyGaloisInplace("ApplyGalois", cd, res, galEl); err != nil {
		return
	}

	return commit("ApplyGalois", res, opOut)
}

// ApplyGaloisNew evaluates op0(X^galEl) on a new ciphertext.
func (eval *Evaluator) ApplyGaloisNew(op0 *Ciphertext, galEl uint64) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.ApplyGalois(op0, galEl, opOut)
}

func (eval *Evaluator) applyGaloisInplace(op string, cd *ContextData, ct *Ciphertext, galEl uint64) (err error) {

	if ct.Size() != 2 {
		return fmt.Errorf("cannot %s: %w: ciphertext of size %d must be relinearized first", op, ErrInvalidSize, ct.Size())
	}

	if ct.IsNTTForm {
		return fmt.Errorf("cannot %s: %w: ciphertext must be in the coefficient domain", op, ErrParameterMismatch)
	}

	gt := cd.GaloisTool

	if !gt.IsValidGaloisElement(galEl) {
		return fmt.Errorf("cannot %s: %w: invalid Galois element %d", op, ErrInvalidParameters, galEl)
	}

	if !eval.ctx.UsingKeySwitching() {
		return fmt.Errorf("cannot %s: %w: parameters do not support key switching", op, ErrMissingKey)
	}

	if eval.gks == nil || !eval.gks.HasElt(galEl) {
		return fmt.Errorf("cannot %s: %w: Galois key of element %d", op, ErrMissingKey, galEl)
	}

	row := eval.gks.Keys[ring.IndexFromElt(galEl)]
	if err = checkKeyRow(op, eval.ctx, row, ct.ModuliCount()); err != nil {
		return
	}

	ringQ := cd.Ring
	tmp := ringQ.NewPoly()

	c0, c1 := ct.Poly(0), ct.Poly(1)

	gt.ApplyGalois(ringQ, c0, galEl, tmp)
	c0.Copy(tmp)

	gt.ApplyGalois(ringQ, c1, galEl, tmp)
	c1.Zero()

	switchKeyInplace(eval.ctx, ct, tmp, row)

	return
}

// RotateRows rotates the two rows of the batched plaintext matrix encrypted in op0 cyclically
// by steps positions to the left (to the right for negative steps). A rotation without a
// dedicated Galois key is composed from the power-of-two rotations of its non-adjacent form.
func (eval *Evaluator) RotateRows(op0 *Ciphertext, steps int, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("RotateRows", op0)
	if err != nil {
		return
	}

	if !eval.ctx.params.UsingBatching() {
		return fmt.Errorf("cannot RotateRows: %w: parameters do not support batching", ErrInvalidParameters)
	}

	res := op0.CopyNew()
	res.Seed = nil

	if steps != 0 {
		if err = eval.rotateInplace(cd, res, steps); err != nil {
			return
		}
	}

	return commit("RotateRows", res, opOut)
}

// RotateRowsNew rotates the rows of op0 by steps positions on a new ciphertext.
func (eval *Evaluator) RotateRowsNew(op0 *Ciphertext, steps int) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.RotateRows(op0, steps, opOut)
}

func (eval *Evaluator) rotateInplace(cd *ContextData, ct *Ciphertext, steps int) (err error) {

	gt := cd.GaloisTool

	galEl, err := gt.EltFromStep(steps)
	if err != nil {
		return fmt.Errorf("cannot RotateRows: %w: %s", ErrInvalidParameters, err)
	}

	if eval.gks != nil && eval.gks.HasElt(galEl) {
		return eval.applyGaloisInplace("RotateRows", cd, ct, galEl)
	}

	digits := naf(steps)

	if len(digits) == 1 {
		return fmt.Errorf("cannot RotateRows: %w: Galois key of step %d", ErrMissingKey, steps)
	}

	for _, digit := range digits {
		// rotating a row of N/2 slots by N/2 is the identity
		if digit == gt.N>>1 || digit == -(gt.N>>1) {
			continue
		}
		if err = eval.rotateInplace(cd, ct, digit); err != nil {
			return
		}
	}

	return
}

// RotateColumns swaps the two rows of the batched plaintext matrix encrypted in op0.
func (eval *Evaluator) RotateColumns(op0, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("RotateColumns", op0)
	if err != nil {
		return
	}

	if !eval.ctx.params.UsingBatching() {
		return fmt.Errorf("cannot RotateColumns: %w: parameters do not support batching", ErrInvalidParameters)
	}

	res := op0.CopyNew()
	res.Seed = nil

	if err = eval.applyGaloisInplace("RotateColumns", cd, res, uint64(2*cd.N()-1)); err != nil {
		return
	}

	return commit("RotateColumns", res, opOut)
}

// RotateColumnsNew swaps the two rows of the batched plaintext matrix on a new ciphertext.
func (eval *Evaluator) RotateColumnsNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.RotateColumns(op0, opOut)
}

// naf returns the non-adjacent form of value as a list of signed powers of two.
func naf(value int) (digits []int) {

	sign := value < 0
	if sign {
		value = -value
	}

	for i := 0; value != 0; i++ {

		var zi int
		if value&1 == 1 {
			zi = 2 - (value & 3)
		}

		value = (value - zi) >> 1

		if zi != 0 {
			if sign {
				zi = -zi
			}
			digits = append(digits, zi<<i)
		}
	}

	return
}
