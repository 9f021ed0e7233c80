package bfv

import (
	"fmt"
)

// ModSwitchToNext switches op0 to the next level of the chain, dividing and rounding every
// polynomial by the last prime of its level. op0 keeps its domain.
func (eval *Evaluator) ModSwitchToNext(op0, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("ModSwitchToNext", op0)
	if err != nil {
		return
	}

	res, err := modSwitchToNext("ModSwitchToNext", cd, op0)
	if err != nil {
		return
	}

	return commit("ModSwitchToNext", res, opOut)
}

// ModSwitchToNextNew switches op0 to the next level on a new ciphertext.
func (eval *Evaluator) ModSwitchToNextNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.ModSwitchToNext(op0, opOut)
}

// ModSwitchTo switches op0 down the chain until it reaches the level id.
func (eval *Evaluator) ModSwitchTo(op0 *Ciphertext, id ParmsID, opOut *Ciphertext) (err error) {

	cd, err := eval.checkCiphertext("ModSwitchTo", op0)
	if err != nil {
		return
	}

	target, err := eval.ctx.contextDataOf("ModSwitchTo", id)
	if err != nil {
		return
	}

	if target.ChainIndex > cd.ChainIndex {
		return fmt.Errorf("cannot ModSwitchTo: %w: from chain index %d to %d", ErrChainDirection, cd.ChainIndex, target.ChainIndex)
	}

	res := op0.CopyNew()
	res.Seed = nil

	for cd.ChainIndex > target.ChainIndex {
		if res, err = modSwitchToNext("ModSwitchTo", cd, res); err != nil {
			return
		}
		cd = cd.Next()
	}

	return commit("ModSwitchTo", res, opOut)
}

// ModSwitchToNew switches op0 down to the level id on a new ciphertext.
func (eval *Evaluator) ModSwitchToNew(op0 *Ciphertext, id ParmsID) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.ModSwitchTo(op0, id, opOut)
}

func modSwitchToNext(op string, cd *ContextData, ct *Ciphertext) (res *Ciphertext, err error) {

	next := cd.Next()
	if next == nil {
		return nil, fmt.Errorf("cannot %s: %w", op, ErrEndOfChain)
	}

	if res, err = newCiphertext(next, ct.Size()); err != nil {
		return nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	res.copyMetadata(ct)
	res.ParmsID = next.ParmsID

	tmp := cd.Ring.NewPoly()

	for i, p := range ct.Value.Polys() {
		tmp.Copy(p)
		if ct.IsNTTForm {
			cd.RNSTool.DivideAndRoundQLastNTTInplace(tmp)
		} else {
			cd.RNSTool.DivideAndRoundQLastInplace(tmp)
		}
		res.Poly(i).Copy(tmp.Truncate(next.ModuliCount()))
	}

	return
}

// ModSwitchPlainToNext switches an NTT-form plaintext to the next level of the chain,
// dropping the residues of the last prime of its level.
func (eval *Evaluator) ModSwitchPlainToNext(pt *Plaintext) (err error) {

	if pt == nil || !pt.IsNTTForm() {
		return fmt.Errorf("cannot ModSwitchPlainToNext: %w: plaintext must be in NTT form", ErrParameterMismatch)
	}

	cd, err := eval.ctx.contextDataOf("ModSwitchPlainToNext", pt.ParmsID)
	if err != nil {
		return
	}

	next := cd.Next()
	if next == nil {
		return fmt.Errorf("cannot ModSwitchPlainToNext: %w", ErrEndOfChain)
	}

	pt.Coeffs = pt.Coeffs[:next.ModuliCount()*next.N()]
	pt.ParmsID = next.ParmsID

	return
}

// ModSwitchPlainTo switches an NTT-form plaintext down the chain until it reaches the level id.
func (eval *Evaluator) ModSwitchPlainTo(pt *Plaintext, id ParmsID) (err error) {

	if pt == nil || !pt.IsNTTForm() {
		return fmt.Errorf("cannot ModSwitchPlainTo: %w: plaintext must be in NTT form", ErrParameterMismatch)
	}

	cd, err := eval.ctx.contextDataOf("ModSwitchPlainTo", pt.ParmsID)
	if err != nil {
		return
	}

	target, err := eval.ctx.contextDataOf("ModSwitchPlainTo", id)
	if err != nil {
		return
	}

	if target.ChainIndex > cd.ChainIndex {
		return fmt.Errorf("cannot ModSwitchPlainTo: %w: from chain index %d to %d", ErrChainDirection, cd.ChainIndex, target.ChainIndex)
	}

	pt.Coeffs = pt.Coeffs[:target.ModuliCount()*target.N()]
	pt.ParmsID = target.ParmsID

	return
}
