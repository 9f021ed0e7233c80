package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils"
)

// Multiply evaluates opOut = op0 * op1 with the BEHZ full-RNS tensoring. The result has
// size op0.Size() + op1.Size() - 1 and is not relinearized. Both operands must be in the
// coefficient domain and at the same level.
func (eval *Evaluator) Multiply(op0, op1, opOut *Ciphertext) (err error) {

	cd, err := eval.checkMulOperands("Multiply", op0, op1)
	if err != nil {
		return
	}

	res, err := multiplyBEHZ(cd, op0, op1)
	if err != nil {
		return fmt.Errorf("cannot Multiply: %w", err)
	}

	return commit("Multiply", res, opOut)
}

// MultiplyNew evaluates op0 * op1 on a new ciphertext.
func (eval *Evaluator) MultiplyNew(op0, op1 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.Multiply(op0, op1, opOut)
}

// MulRelin evaluates opOut = op0 * op1 followed by a relinearization to size 2.
func (eval *Evaluator) MulRelin(op0, op1, opOut *Ciphertext) (err error) {

	cd, err := eval.checkMulOperands("MulRelin", op0, op1)
	if err != nil {
		return
	}

	res, err := multiplyBEHZ(cd, op0, op1)
	if err != nil {
		return fmt.Errorf("cannot MulRelin: %w", err)
	}

	if err = eval.relinearizeInplace("MulRelin", res, 2); err != nil {
		return
	}

	return commit("MulRelin", res, opOut)
}

// MulRelinNew evaluates op0 * op1 followed by a relinearization on a new ciphertext.
func (eval *Evaluator) MulRelinNew(op0, op1 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.MulRelin(op0, op1, opOut)
}

// Square evaluates opOut = op0 * op0. Ciphertexts of size 2 use the dedicated
// three-product tensoring.
func (eval *Evaluator) Square(op0, opOut *Ciphertext) (err error) {

	cd, err := eval.checkMulOperands("Square", op0, op0)
	if err != nil {
		return
	}

	res, err := multiplyBEHZ(cd, op0, op0)
	if err != nil {
		return fmt.Errorf("cannot Square: %w", err)
	}

	return commit("Square", res, opOut)
}

// SquareNew evaluates op0 * op0 on a new ciphertext.
func (eval *Evaluator) SquareNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.Square(op0, opOut)
}

// MultiplyMany evaluates opOut = prod(ops) with a balanced product tree,
// relinearizing after every multiplication.
func (eval *Evaluator) MultiplyMany(ops []*Ciphertext, opOut *Ciphertext) (err error) {

	if len(ops) == 0 {
		return fmt.Errorf("cannot MultiplyMany: %w: empty list of operands", ErrInvalidSize)
	}

	var cd *ContextData
	for _, op := range ops {
		if cd, err = eval.checkMulOperands("MultiplyMany", ops[0], op); err != nil {
			return
		}
	}

	if len(ops) == 1 {
		return commit("MultiplyMany", ops[0].CopyNew(), opOut)
	}

	queue := append([]*Ciphertext{}, ops...)

	for len(queue) > 1 {

		var res *Ciphertext
		if res, err = multiplyBEHZ(cd, queue[0], queue[1]); err != nil {
			return fmt.Errorf("cannot MultiplyMany: %w", err)
		}

		if err = eval.relinearizeInplace("MultiplyMany", res, 2); err != nil {
			return
		}

		queue = append(queue[2:], res)
	}

	return commit("MultiplyMany", queue[0], opOut)
}

// Exponentiate evaluates opOut = op0^exponent with square-and-multiply,
// relinearizing after every multiplication.
func (eval *Evaluator) Exponentiate(op0 *Ciphertext, exponent uint64, opOut *Ciphertext) (err error) {

	cd, err := eval.checkMulOperands("Exponentiate", op0, op0)
	if err != nil {
		return
	}

	if exponent == 0 {
		return fmt.Errorf("cannot Exponentiate: %w: exponent cannot be zero", ErrInvalidParameters)
	}

	var acc *Ciphertext
	power := op0

	for e := exponent; e > 0; e >>= 1 {

		if e&1 == 1 {
			if acc == nil {
				acc = power
			} else if acc, err = eval.mulRelinNew("Exponentiate", cd, acc, power); err != nil {
				return
			}
		}

		if e > 1 {
			if power, err = eval.mulRelinNew("Exponentiate", cd, power, power); err != nil {
				return
			}
		}
	}

	if acc == op0 {
		acc = op0.CopyNew()
	}

	return commit("Exponentiate", acc, opOut)
}

func (eval *Evaluator) mulRelinNew(op string, cd *ContextData, op0, op1 *Ciphertext) (res *Ciphertext, err error) {
	if res, err = multiplyBEHZ(cd, op0, op1); err != nil {
		return nil, fmt.Errorf("cannot %s: %w", op, err)
	}
	return res, eval.relinearizeInplace(op, res, 2)
}

func (eval *Evaluator) checkMulOperands(op string, op0, op1 *Ciphertext) (cd *ContextData, err error) {

	if cd, err = eval.checkBinary(op, op0, op1); err != nil {
		return
	}

	if op0.IsNTTForm || op1.IsNTTForm {
		return nil, fmt.Errorf("cannot %s: %w: operands must be in the coefficient domain", op, ErrParameterMismatch)
	}

	if op0.Size()+op1.Size()-1 > CiphertextSizeMax {
		return nil, fmt.Errorf("cannot %s: %w: result size %d exceeds %d", op, ErrInvalidSize, op0.Size()+op1.Size()-1, CiphertextSizeMax)
	}

	return
}

// behzOperand is a ciphertext lifted to the NTT domain over Q and over Bsk.
type behzOperand struct {
	q   []ring.Poly
	bsk []ring.Poly
}

// liftBEHZ extends every polynomial of ct from Q to Bsk (fast base conversion followed by the
// small Montgomery reduction) and returns its lazy NTT over both bases.
func liftBEHZ(cd *ContextData, ct *Ciphertext) (op behzOperand) {

	rt := cd.RNSTool
	ringQ := cd.Ring
	ringBsk := rt.RingBsk

	op.q = make([]ring.Poly, ct.Size())
	op.bsk = make([]ring.Poly, ct.Size())

	tmpBsk := rt.NewBskPoly()
	tmpMTilde := make([]uint64, cd.N())

	for i, p := range ct.Value.Polys() {

		op.q[i] = ringQ.NewPoly()
		ringQ.NTTLazy(p, op.q[i])

		rt.FastBConvMTilde(p, tmpBsk, tmpMTilde)

		op.bsk[i] = rt.NewBskPoly()
		rt.SmMrq(tmpBsk, tmpMTilde, op.bsk[i])
		ringBsk.NTTLazy(op.bsk[i], op.bsk[i])
	}

	return
}

// multiplyBEHZ returns the tensor product of op0 and op1, scaled by t/Q and rounded.
func multiplyBEHZ(cd *ContextData, op0, op1 *Ciphertext) (res *Ciphertext, err error) {

	rt := cd.RNSTool
	ringQ := cd.Ring
	ringBsk := rt.RingBsk

	size0, size1 := op0.Size(), op1.Size()
	destSize := size0 + size1 - 1

	if res, err = newCiphertext(cd, destSize); err != nil {
		return
	}

	res.copyMetadata(op0)
	res.CorrectionFactor = mulModT(op0.CorrectionFactor, op1.CorrectionFactor, cd.PlainModulus)

	a := liftBEHZ(cd, op0)

	var b behzOperand
	if op0 == op1 {
		b = a
	} else {
		b = liftBEHZ(cd, op1)
	}

	destQ := make([]ring.Poly, destSize)
	destBsk := make([]ring.Poly, destSize)
	for i := range destQ {
		destQ[i] = ringQ.NewPoly()
		destBsk[i] = rt.NewBskPoly()
	}

	if op0 == op1 && size0 == 2 {

		// (c0, c1)^2 = (c0^2, 2*c0*c1, c1^2)
		for _, base := range []struct {
			r    *ring.Ring
			in   []ring.Poly
			dest []ring.Poly
		}{{ringQ, a.q, destQ}, {ringBsk, a.bsk, destBsk}} {
			base.r.MulCoeffsBarrett(base.in[0], base.in[0], base.dest[0])
			base.r.MulCoeffsBarrett(base.in[0], base.in[1], base.dest[1])
			base.r.Add(base.dest[1], base.dest[1], base.dest[1])
			base.r.MulCoeffsBarrett(base.in[1], base.in[1], base.dest[2])
		}

	} else {

		for d := 0; d < destSize; d++ {

			last0 := utils.Min(d, size0-1)
			first1 := utils.Min(d, size1-1)
			first0 := d - first1

			for i := first0; i <= last0; i++ {
				j := d - i
				ringQ.MulCoeffsBarrettThenAdd(a.q[i], b.q[j], destQ[d])
				ringBsk.MulCoeffsBarrettThenAdd(a.bsk[i], b.bsk[j], destBsk[d])
			}
		}
	}

	t := cd.PlainModulus
	floorBsk := rt.NewBskPoly()

	for d := 0; d < destSize; d++ {

		ringQ.INTTLazy(destQ[d], destQ[d])
		ringBsk.INTTLazy(destBsk[d], destBsk[d])

		ringQ.MulScalar(destQ[d], t, destQ[d])
		ringBsk.MulScalar(destBsk[d], t, destBsk[d])

		rt.FastFloor(destQ[d], destBsk[d], floorBsk)
		rt.FastBConvSk(floorBsk, res.Poly(d))
	}

	return
}

func mulModT(a, b, t uint64) uint64 {
	return ring.BRed(a%t, b%t, t, ring.GenBRedConstant(t))
}
