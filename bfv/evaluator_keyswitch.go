package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvrns/ring"
)

// switchKeyInplace adds to the first two polynomials of ct the key switching of target
// with the row of keys. ct must be in the coefficient domain and target is the coefficient-domain
// polynomial to switch, over the primes of ct.
//
// The target is decomposed into its residues modulo the primes of ct, each residue is
// multiplied in the NTT domain with the corresponding key over the primes of ct and the special
// prime, and the sum is divided by the special prime with rounding.
func switchKeyInplace(ctx *Context, ct *Ciphertext, target ring.Poly, keys []PublicKey) {

	keyCD := ctx.KeyContextData()
	keyRing := keyCD.Ring
	specialIndex := keyRing.ModuliCount() - 1
	invSpecialModQ := keyCD.RNSTool.InvQLastModQ()

	N := ct.N()
	decompCount := ct.ModuliCount()
	moduli := keyRing.Moduli()

	// prod[i][c] is the c-th component of the product over the i-th prime,
	// the last entry being the special prime.
	prod := make([][2][]uint64, decompCount+1)

	operand := make([]uint64, N)
	acc := [2][]ring.LazyAccumulator{make([]ring.LazyAccumulator, N), make([]ring.LazyAccumulator, N)}

	for i := 0; i <= decompCount; i++ {

		keyIndex := i
		if i == decompCount {
			keyIndex = specialIndex
		}

		s := keyRing.SubRings[keyIndex]
		qKey := s.Modulus

		for c := 0; c < 2; c++ {
			for n := range acc[c] {
				acc[c][n] = ring.LazyAccumulator{}
			}
		}

		for j := 0; j < decompCount; j++ {

			if moduli[j] > qKey {
				s.Reduce(target.Coeffs[j], operand)
			} else {
				copy(operand, target.Coeffs[j])
			}

			s.NTT.Forward(operand)

			for c := 0; c < 2; c++ {

				key := keys[j].Value.Poly(c).Coeffs[keyIndex]
				a := acc[c]

				for n := range a {
					a[n].MulAdd(operand[n], key[n])
				}

				if (j+1)%ring.MaxLazyAccumulations == 0 {
					for n := range a {
						a[n].Reduce(qKey, s.BRedConstant)
					}
				}
			}
		}

		for c := 0; c < 2; c++ {
			prod[i][c] = make([]uint64, N)
			for n := range prod[i][c] {
				prod[i][c][n] = acc[c][n].Reduce(qKey, s.BRedConstant)
			}
		}
	}

	sSpecial := keyRing.SubRings[specialIndex]
	qSpecial := sSpecial.Modulus
	uSpecial := sSpecial.BRedConstant
	half := qSpecial >> 1

	tmp := make([]uint64, N)

	for c := 0; c < 2; c++ {

		last := prod[decompCount][c]
		sSpecial.NTT.BackwardLazy(last)

		// rounding instead of flooring
		for n := range last {
			last[n] = ring.BRedAdd(last[n]+half, qSpecial, uSpecial)
		}

		out := ct.Poly(c)

		for i := 0; i < decompCount; i++ {

			s := keyRing.SubRings[i]
			qi := s.Modulus
			ui := s.BRedConstant
			fix := qi - ring.BRedAdd(half, qi, ui)

			for n, v := range last {
				if qSpecial > qi {
					v = ring.BRedAdd(v, qi, ui)
				}
				tmp[n] = v + fix
			}

			p := prod[i][c]
			s.NTT.BackwardLazy(p)

			for n := range p {
				p[n] += (qi << 1) - tmp[n]
			}

			s.MulScalar(p, invSpecialModQ[i], p)
			s.Add(out.Coeffs[i], p, out.Coeffs[i])
		}
	}
}

// checkKeyRow returns ErrParameterMismatch if row cannot switch a polynomial over moduliCount primes.
func checkKeyRow(op string, ctx *Context, row []PublicKey, moduliCount int) error {

	if len(row) < moduliCount {
		return fmt.Errorf("cannot %s: %w: key row has %d keys for %d primes", op, ErrParameterMismatch, len(row), moduliCount)
	}

	keyCD := ctx.KeyContextData()

	for j := 0; j < moduliCount; j++ {
		if v := row[j].Value; v == nil || v.Value == nil || v.Size() != 2 || v.N() != keyCD.N() || v.ModuliCount() != keyCD.ModuliCount() {
			return fmt.Errorf("cannot %s: %w: key %d of the row is not a key-level ciphertext of size 2", op, ErrParameterMismatch, j)
		}
	}

	return nil
}

// Relinearize reduces op0 to a ciphertext of size 2 encrypting the same message, using the
// relinearization keys of the Evaluator. A ciphertext of size 2 is copied.
func (eval *Evaluator) Relinearize(op0, opOut *Ciphertext) (err error) {

	if _, err = eval.checkCiphertext("Relinearize", op0); err != nil {
		return
	}

	res := op0.CopyNew()
	res.Seed = nil

	if err = eval.relinearizeInplace("Relinearize", res, 2); err != nil {
		return
	}

	return commit("Relinearize", res, opOut)
}

// RelinearizeNew relinearizes op0 on a new ciphertext.
func (eval *Evaluator) RelinearizeNew(op0 *Ciphertext) (opOut *Ciphertext, err error) {
	opOut = new(Ciphertext)
	return opOut, eval.Relinearize(op0, opOut)
}

// relinearizeInplace reduces ct to the given size, key switching its last polynomial with
// the key of the matching power of the secret key until it reaches that size.
func (eval *Evaluator) relinearizeInplace(op string, ct *Ciphertext, size int) (err error) {

	if size < CiphertextSizeMin || size > ct.Size() {
		return fmt.Errorf("cannot %s: %w: cannot relinearize size %d to size %d", op, ErrInvalidSize, ct.Size(), size)
	}

	if size == ct.Size() {
		return
	}

	if ct.IsNTTForm {
		return fmt.Errorf("cannot %s: %w: ciphertext must be in the coefficient domain", op, ErrParameterMismatch)
	}

	if !eval.ctx.UsingKeySwitching() {
		return fmt.Errorf("cannot %s: %w: parameters do not support key switching", op, ErrMissingKey)
	}

	if eval.rlk == nil {
		return fmt.Errorf("cannot %s: %w: evaluator has no relinearization keys", op, ErrMissingKey)
	}

	for power := size; power < ct.Size(); power++ {
		if !eval.rlk.HasPower(power) {
			return fmt.Errorf("cannot %s: %w: not enough relinearization keys for size %d", op, ErrInvalidSize, ct.Size())
		}
	}

	for power := size; power < ct.Size(); power++ {
		if err = checkKeyRow(op, eval.ctx, eval.rlk.Keys[power-2], ct.ModuliCount()); err != nil {
			return
		}
	}

	for ct.Size() > size {
		last := ct.Size() - 1
		switchKeyInplace(eval.ctx, ct, ct.Poly(last), eval.rlk.Keys[last-2])
		if err = ct.Resize(last); err != nil {
			return fmt.Errorf("cannot %s: %w", op, err)
		}
	}

	return
}
