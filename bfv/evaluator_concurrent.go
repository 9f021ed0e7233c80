package bfv

import (
	"fmt"
	"runtime"

	"github.com/tuneinsight/bfvrns/utils"
	"github.com/tuneinsight/bfvrns/utils/concurrency"
)

// MulRelinMany evaluates opOut[i] = op0[i] * op1[i] followed by a relinearization, running up to
// workers products concurrently on shallow copies of the Evaluator. A non-positive workers uses
// runtime.NumCPU(). The first error is returned and the outputs of the failed products are left untouched.
//
// opOut[i] may alias op0[i] or op1[i], but must not share memory with the operands or outputs
// of any other product, otherwise ErrParameterMismatch is returned before any product runs.
func (eval *Evaluator) MulRelinMany(op0, op1, opOut []*Ciphertext, workers int) (err error) {

	if len(op0) != len(op1) || len(op0) != len(opOut) {
		return fmt.Errorf("cannot MulRelinMany: %w: operand lists of lengths %d, %d and %d", ErrInvalidSize, len(op0), len(op1), len(opOut))
	}

	for i := range opOut {
		for j := range opOut {
			if i != j && (sharesMemory(opOut[i], op0[j]) || sharesMemory(opOut[i], op1[j]) || sharesMemory(opOut[i], opOut[j])) {
				return fmt.Errorf("cannot MulRelinMany: %w: output %d shares memory with product %d", ErrParameterMismatch, i, j)
			}
		}
	}

	if len(op0) == 0 {
		return
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	evals := make([]*Evaluator, utils.Min(workers, len(op0)))
	for i := range evals {
		evals[i] = eval.ShallowCopy()
	}

	rm := concurrency.NewResourceManager(evals)

	for i := range op0 {
		i := i
		rm.Run(func(e *Evaluator) error {
			if err := e.MulRelin(op0[i], op1[i], opOut[i]); err != nil {
				return fmt.Errorf("product %d: %w", i, err)
			}
			return nil
		})
	}

	return rm.Wait()
}

// sharesMemory returns true if a and b are the same ciphertext or use the same backing array.
func sharesMemory(a, b *Ciphertext) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b || (a.Value != nil && b.Value != nil && utils.Alias1D(a.Value.Buff, b.Value.Buff))
}
