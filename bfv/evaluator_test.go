package bfv

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils"
	"github.com/tuneinsight/bfvrns/utils/sampling"
)

func mulSlots(a, b []uint64, t uint64) (c []uint64) {
	c = make([]uint64, len(a))
	for i := range a {
		c[i] = a[i] * b[i] % t
	}
	return
}

func addSlots(a, b []uint64, t uint64) (c []uint64) {
	c = make([]uint64, len(a))
	for i := range a {
		c[i] = (a[i] + b[i]) % t
	}
	return
}

func swapRows(values []uint64) (out []uint64) {
	half := len(values) >> 1
	return append(append([]uint64{}, values[half:]...), values[:half]...)
}

// negacyclicMul returns a * b in Z_t[X]/(X^N+1).
func negacyclicMul(a, b []uint64, t uint64, N int) (c []uint64) {
	c = make([]uint64, N)
	for i, x := range a {
		for j, y := range b {
			v := x * y % t
			if k := i + j; k < N {
				c[k] = (c[k] + v) % t
			} else {
				c[k-N] = (c[k-N] + t - v) % t
			}
		}
	}
	return
}

func randomCoeffs(N int, t uint64) (coeffs []uint64) {
	coeffs = make([]uint64, N)
	for i := range coeffs {
		coeffs[i] = sampling.RandUint64() % t
	}
	return
}

// decryptCoeffs returns the N coefficients of the decryption of ct.
func decryptCoeffs(tc *TestContext, ct *Ciphertext, t *testing.T) []uint64 {
	pt, err := tc.Dec.DecryptNew(ct)
	require.NoError(t, err)
	pt.Resize(tc.Params.N())
	return pt.Coeffs
}

func TestToyCircuit(t *testing.T) {

	tc, err := NewTestContext(TestScenario)
	require.NoError(t, err)

	require.Equal(t, 8, tc.Params.N())
	require.Equal(t, uint64(17), tc.Params.PlaintextModulus())
	require.Equal(t, 2, tc.Params.QCount())

	ct3, err := tc.Enc.EncryptNew(NewPlaintextFromValues([]uint64{3}))
	require.NoError(t, err)

	ct5, err := tc.Enc.EncryptNew(NewPlaintextFromValues([]uint64{5}))
	require.NoError(t, err)

	t.Run("Multiply", func(t *testing.T) {
		ct, err := tc.Evl.MulRelinNew(ct3, ct5)
		require.NoError(t, err)
		require.Equal(t, 2, ct.Size())
		pt, err := tc.Dec.DecryptNew(ct)
		require.NoError(t, err)
		require.Equal(t, []uint64{15}, pt.Coeffs)
	})

	t.Run("Add", func(t *testing.T) {
		ct, err := tc.Evl.AddNew(ct3, ct5)
		require.NoError(t, err)
		pt, err := tc.Dec.DecryptNew(ct)
		require.NoError(t, err)
		require.Equal(t, []uint64{8}, pt.Coeffs)
	})
}

func testEvaluator(tc *TestContext, t *testing.T) {

	T := tc.Params.PlaintextModulus()
	N := tc.Params.N()

	t.Run(name("Evaluator/Add", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, _, ct1 := NewTestVector(tc, ParmsIDZero)

		ct, err := tc.Evl.AddNew(ct0, ct1)
		require.NoError(t, err)
		VerifyTestVectors(tc, ct, addSlots(values0, values1, T), t)

		// in place
		require.NoError(t, tc.Evl.Add(ct0, ct1, ct0))
		VerifyTestVectors(tc, ct0, addSlots(values0, values1, T), t)
	})

	t.Run(name("Evaluator/Sub/Negate", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, _, ct1 := NewTestVector(tc, ParmsIDZero)

		neg := make([]uint64, len(values1))
		for i, v := range values1 {
			neg[i] = (T - v) % T
		}

		ct, err := tc.Evl.SubNew(ct0, ct1)
		require.NoError(t, err)
		VerifyTestVectors(tc, ct, addSlots(values0, neg, T), t)

		ct, err = tc.Evl.NegateNew(ct1)
		require.NoError(t, err)
		VerifyTestVectors(tc, ct, neg, t)
	})

	t.Run(name("Evaluator/AddMany", tc), func(t *testing.T) {

		want := make([]uint64, tc.Ecd.SlotCount())
		ops := make([]*Ciphertext, 4)
		for i := range ops {
			var values []uint64
			values, _, ops[i] = NewTestVector(tc, ParmsIDZero)
			want = addSlots(want, values, T)
		}

		ct := new(Ciphertext)
		require.NoError(t, tc.Evl.AddMany(ops, ct))
		VerifyTestVectors(tc, ct, want, t)
	})

	t.Run(name("Evaluator/Add/CorrectionFactor", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, _, ct1 := NewTestVector(tc, ParmsIDZero)

		// ct1 now decrypts to values1 / 3
		ct1.CorrectionFactor = 3
		inv3, err := ring.ModInverse(3, T)
		require.NoError(t, err)

		scaled := make([]uint64, len(values1))
		for i, v := range values1 {
			scaled[i] = v * inv3 % T
		}
		VerifyTestVectors(tc, ct1, scaled, t)

		ct, err := tc.Evl.AddNew(ct0, ct1)
		require.NoError(t, err)
		VerifyTestVectors(tc, ct, addSlots(values0, scaled, T), t)

		ct, err = tc.Evl.AddPlainNew(ct1, NewPlaintextFromValues([]uint64{1}))
		require.NoError(t, err)
		want := make([]uint64, len(scaled))
		for i := range want {
			want[i] = (scaled[i] + 1) % T
		}
		VerifyTestVectors(tc, ct, want, t)
	})

	t.Run(name("Evaluator/BalanceCorrectionFactors", tc), func(t *testing.T) {
		for _, f0 := range []uint64{1, 2, 3, T - 1, T >> 1} {
			for _, f1 := range []uint64{1, 5, T - 2, (T >> 1) + 1} {
				f, e0, e1, err := balanceCorrectionFactors(f0, f1, T)
				require.NoError(t, err)
				require.NotZero(t, e0)
				require.Equal(t, f, e0*f0%T)
				require.Equal(t, f, e1%T*(f1%T)%T)
			}
		}
	})

	t.Run(name("Evaluator/PlainAddSub", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, pt1, _ := NewTestVector(tc, ParmsIDZero)

		ct, err := tc.Evl.AddPlainNew(ct0, pt1)
		require.NoError(t, err)
		VerifyTestVectors(tc, ct, addSlots(values0, values1, T), t)

		require.NoError(t, tc.Evl.SubPlain(ct, pt1, ct))
		VerifyTestVectors(tc, ct, values0, t)
	})

	t.Run(name("Evaluator/MultiplyPlain", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, pt1, _ := NewTestVector(tc, ParmsIDZero)

		ct, err := tc.Evl.MultiplyPlainNew(ct0, pt1)
		require.NoError(t, err)
		VerifyTestVectors(tc, ct, mulSlots(values0, values1, T), t)
	})

	t.Run(name("Evaluator/MultiplyPlain/Monomial", tc), func(t *testing.T) {

		a := randomCoeffs(N, T)
		ct, err := tc.Enc.EncryptNew(NewPlaintextFromValues(a))
		require.NoError(t, err)

		for _, e := range []int{0, 1, N - 1} {
			for _, m := range []uint64{1, 2, T - 1} {

				b := make([]uint64, e+1)
				b[e] = m

				pt := NewPlaintextFromValues(b)
				require.Equal(t, 1, pt.NonZeroCoeffCount())

				res, err := tc.Evl.MultiplyPlainNew(ct, pt)
				require.NoError(t, err)
				require.Equal(t, negacyclicMul(a, b, T, N), decryptCoeffs(tc, res, t))
			}
		}
	})

	t.Run(name("Evaluator/MultiplyPlain/Coeffs", tc), func(t *testing.T) {

		a := randomCoeffs(N, T)
		b := randomCoeffs(N, T)

		ct, err := tc.Enc.EncryptNew(NewPlaintextFromValues(a))
		require.NoError(t, err)

		res, err := tc.Evl.MultiplyPlainNew(ct, NewPlaintextFromValues(b))
		require.NoError(t, err)
		require.Equal(t, negacyclicMul(a, b, T, N), decryptCoeffs(tc, res, t))
	})

	t.Run(name("Evaluator/MultiplyPlain/NTT", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, pt1, _ := NewTestVector(tc, ParmsIDZero)

		require.NoError(t, tc.Evl.TransformPlainToNTT(pt1, ct0.ParmsID))
		require.True(t, pt1.IsNTTForm())
		require.Equal(t, tc.Ctx.FirstContextData().ModuliCount()*N, pt1.CoeffCount())

		ct, err := tc.Evl.TransformToNTTNew(ct0)
		require.NoError(t, err)
		require.True(t, ct.IsNTTForm)

		require.NoError(t, tc.Evl.MultiplyPlain(ct, pt1, ct))
		require.NoError(t, tc.Evl.TransformFromNTT(ct, ct))
		require.False(t, ct.IsNTTForm)

		VerifyTestVectors(tc, ct, mulSlots(values0, values1, T), t)
	})

	t.Run(name("Evaluator/NTT/RoundTrip", tc), func(t *testing.T) {
		values, _, ct := NewTestVector(tc, ParmsIDZero)
		ctNTT, err := tc.Evl.TransformToNTTNew(ct)
		require.NoError(t, err)
		VerifyTestVectors(tc, ctNTT, values, t)
		back, err := tc.Evl.TransformFromNTTNew(ctNTT)
		require.NoError(t, err)
		require.True(t, ct.Value.Equal(back.Value))
	})

	t.Run(name("Evaluator/Multiply", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, _, ct1 := NewTestVector(tc, ParmsIDZero)

		ct, err := tc.Evl.MultiplyNew(ct0, ct1)
		require.NoError(t, err)
		require.Equal(t, 3, ct.Size())
		VerifyTestVectors(tc, ct, mulSlots(values0, values1, T), t)

		require.NoError(t, tc.Evl.Relinearize(ct, ct))
		require.Equal(t, 2, ct.Size())
		VerifyTestVectors(tc, ct, mulSlots(values0, values1, T), t)

		if *flagPrintNoise {
			budget, err := tc.Dec.InvariantNoiseBudget(ct)
			require.NoError(t, err)
			t.Logf("budget after one multiplication: %d", budget)
		}
	})

	t.Run(name("Evaluator/Multiply/Size3", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, _, ct1 := NewTestVector(tc, ParmsIDZero)
		values2, _, ct2 := NewTestVector(tc, ParmsIDZero)

		ct, err := tc.Evl.MultiplyNew(ct0, ct1)
		require.NoError(t, err)

		require.NoError(t, tc.Evl.Multiply(ct, ct2, ct))
		require.Equal(t, 4, ct.Size())

		require.NoError(t, tc.Evl.Relinearize(ct, ct))
		require.Equal(t, 2, ct.Size())

		VerifyTestVectors(tc, ct, mulSlots(mulSlots(values0, values1, T), values2, T), t)
	})

	t.Run(name("Evaluator/Square", tc), func(t *testing.T) {

		values, _, ct0 := NewTestVector(tc, ParmsIDZero)

		ct, err := tc.Evl.SquareNew(ct0)
		require.NoError(t, err)
		require.Equal(t, 3, ct.Size())
		VerifyTestVectors(tc, ct, mulSlots(values, values, T), t)

		// the dedicated squaring matches the generic product
		ctMul, err := tc.Evl.MultiplyNew(ct0, ct0.CopyNew())
		require.NoError(t, err)
		require.True(t, ct.Value.Equal(ctMul.Value))
	})

	t.Run(name("Evaluator/MulRelin", tc), func(t *testing.T) {

		values0, _, ct0 := NewTestVector(tc, ParmsIDZero)
		values1, _, ct1 := NewTestVector(tc, ParmsIDZero)

		require.NoError(t, tc.Evl.MulRelin(ct0, ct1, ct0))
		require.Equal(t, 2, ct0.Size())
		VerifyTestVectors(tc, ct0, mulSlots(values0, values1, T), t)
	})

	t.Run(name("Evaluator/MultiplyMany", tc), func(t *testing.T) {

		want := make([]uint64, tc.Ecd.SlotCount())
		for i := range want {
			want[i] = 1
		}

		ops := make([]*Ciphertext, 4)
		for i := range ops {
			var values []uint64
			values, _, ops[i] = NewTestVector(tc, ParmsIDZero)
			want = mulSlots(want, values, T)
		}

		ct := new(Ciphertext)
		require.NoError(t, tc.Evl.MultiplyMany(ops, ct))
		require.Equal(t, 2, ct.Size())
		VerifyTestVectors(tc, ct, want, t)
	})

	t.Run(name("Evaluator/Exponentiate", tc), func(t *testing.T) {

		values, _, ct0 := NewTestVector(tc, ParmsIDZero)

		for _, e := range []uint64{1, 2, 3} {

			want := make([]uint64, len(values))
			for i, v := range values {
				want[i] = ring.ModExp(v, e, T)
			}

			ct := new(Ciphertext)
			require.NoError(t, tc.Evl.Exponentiate(ct0, e, ct))
			require.Equal(t, 2, ct.Size())
			VerifyTestVectors(tc, ct, want, t)
		}
	})

	t.Run(name("Evaluator/MulRelinMany", tc), func(t *testing.T) {

		n := 3
		op0 := make([]*Ciphertext, n)
		op1 := make([]*Ciphertext, n)
		out := make([]*Ciphertext, n)
		want := make([][]uint64, n)

		for i := 0; i < n; i++ {
			var values0, values1 []uint64
			values0, _, op0[i] = NewTestVector(tc, ParmsIDZero)
			values1, _, op1[i] = NewTestVector(tc, ParmsIDZero)
			out[i] = new(Ciphertext)
			want[i] = mulSlots(values0, values1, T)
		}

		require.NoError(t, tc.Evl.MulRelinMany(op0, op1, out, 2))

		for i := 0; i < n; i++ {
			VerifyTestVectors(tc, out[i], want[i], t)
		}

		// each output may alias the operands of its own product
		require.NoError(t, tc.Evl.MulRelinMany(op0, op1, op0, 2))
		for i := 0; i < n; i++ {
			VerifyTestVectors(tc, op0[i], want[i], t)
		}

		ops := [][]*Ciphertext{
			{op0[1], out[1], out[2]},
			{out[0], out[0], out[2]},
			{out[0], op1[2], out[2]},
		}

		for _, opOut := range ops {
			before := opOut[0].CopyNew()
			require.ErrorIs(t, tc.Evl.MulRelinMany(op0, op1, opOut, 2), ErrParameterMismatch)
			require.True(t, before.Value.Equal(opOut[0].Value))
		}

		// distinct ciphertexts over the same polynomials
		shared := out[0].CopyNew()
		alias := &Ciphertext{Value: shared.Value}
		require.ErrorIs(t, tc.Evl.MulRelinMany(op0[:2], op1[:2], []*Ciphertext{shared, alias}, 2), ErrParameterMismatch)
	})
}

func testKeySwitching(tc *TestContext, t *testing.T) {

	N := tc.Params.N()
	half := N >> 1

	t.Run(name("KeySwitching/RotateRows", tc), func(t *testing.T) {

		values, _, ct := NewTestVector(tc, ParmsIDZero)

		steps := []int{0, 1, -1, 2, 3, half - 1, -(half - 1)}
		if N <= 64 {
			steps = steps[:0]
			for k := -(half - 1); k < half; k++ {
				steps = append(steps, k)
			}
		}

		for _, k := range steps {
			res, err := tc.Evl.RotateRowsNew(ct, k)
			require.NoError(t, err, fmt.Sprintf("step %d", k))
			VerifyTestVectors(tc, res, utils.RotateSlots(values, k), t)
		}
	})

	t.Run(name("KeySwitching/RotateColumns", tc), func(t *testing.T) {

		values, _, ct := NewTestVector(tc, ParmsIDZero)

		res, err := tc.Evl.RotateColumnsNew(ct)
		require.NoError(t, err)
		VerifyTestVectors(tc, res, swapRows(values), t)

		require.NoError(t, tc.Evl.RotateColumns(res, res))
		VerifyTestVectors(tc, res, values, t)
	})

	t.Run(name("KeySwitching/ApplyGalois", tc), func(t *testing.T) {

		values, _, ct := NewTestVector(tc, ParmsIDZero)

		galEl, err := tc.Ctx.GaloisTool().EltFromStep(1)
		require.NoError(t, err)

		res, err := tc.Evl.ApplyGaloisNew(ct, galEl)
		require.NoError(t, err)
		VerifyTestVectors(tc, res, utils.RotateSlots(values, 1), t)
	})

	t.Run(name("KeySwitching/GaloisKeysForSteps", tc), func(t *testing.T) {

		gks, err := tc.Kgen.GenGaloisKeysForStepsNew(tc.Sk, []int{1})
		require.NoError(t, err)
		require.Len(t, gks.Elts(), 1)

		eval, err := tc.Evl.WithKey(tc.Rlk, gks)
		require.NoError(t, err)

		values, _, ct := NewTestVector(tc, ParmsIDZero)

		res, err := eval.RotateRowsNew(ct, 1)
		require.NoError(t, err)
		VerifyTestVectors(tc, res, utils.RotateSlots(values, 1), t)

		// a single NAF digit without its key
		_, err = eval.RotateRowsNew(ct, 2)
		require.ErrorIs(t, err, ErrMissingKey)

		_, err = eval.RotateColumnsNew(ct)
		require.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run(name("KeySwitching/GaloisKeys/Duplicates", tc), func(t *testing.T) {

		gt := tc.Ctx.GaloisTool()

		galEl, err := gt.EltFromStep(1)
		require.NoError(t, err)
		conj := uint64(2*N - 1)

		gks, err := tc.Kgen.GenGaloisKeysNew(tc.Sk, []uint64{galEl, conj, galEl, conj})
		require.NoError(t, err)
		require.ElementsMatch(t, []uint64{galEl, conj}, gks.Elts())

		require.ElementsMatch(t, utils.GetDistincts(gt.EltsAll()), tc.Gks.Elts())
	})

	t.Run(name("KeySwitching/Relinearize/NoOp", tc), func(t *testing.T) {
		values, _, ct := NewTestVector(tc, ParmsIDZero)
		res, err := tc.Evl.RelinearizeNew(ct)
		require.NoError(t, err)
		require.True(t, ct.Value.Equal(res.Value))
		VerifyTestVectors(tc, res, values, t)
	})
}

func testModSwitching(tc *TestContext, t *testing.T) {

	t.Run(name("ModSwitching/Chain", tc), func(t *testing.T) {

		values, _, ct := NewTestVector(tc, ParmsIDZero)

		cd := tc.Ctx.FirstContextData()

		for i := 0; i < tc.Ctx.ChainLength()-1; i++ {
			require.NoError(t, tc.Evl.ModSwitchToNext(ct, ct))
			cd = cd.Next()
			require.Equal(t, cd.ParmsID, ct.ParmsID)
			require.Equal(t, cd.ModuliCount(), ct.ModuliCount())
			VerifyTestVectors(tc, ct, values, t)
		}

		require.Equal(t, tc.Ctx.LastParmsID(), ct.ParmsID)

		prev := ct.CopyNew()
		require.ErrorIs(t, tc.Evl.ModSwitchToNext(ct, ct), ErrEndOfChain)
		require.True(t, prev.Equal(ct))
	})

	t.Run(name("ModSwitching/To", tc), func(t *testing.T) {

		values, _, ct := NewTestVector(tc, ParmsIDZero)

		res, err := tc.Evl.ModSwitchToNew(ct, tc.Ctx.LastParmsID())
		require.NoError(t, err)
		require.Equal(t, tc.Ctx.LastParmsID(), res.ParmsID)
		VerifyTestVectors(tc, res, values, t)

		_, err = tc.Evl.ModSwitchToNew(ct, tc.Ctx.KeyParmsID())
		require.ErrorIs(t, err, ErrChainDirection)

		if tc.Ctx.ChainLength() > 1 {
			_, err = tc.Evl.ModSwitchToNew(res, tc.Ctx.FirstParmsID())
			require.ErrorIs(t, err, ErrChainDirection)
		}
	})

	t.Run(name("ModSwitching/NTT", tc), func(t *testing.T) {

		values, _, ct := NewTestVector(tc, ParmsIDZero)

		ctNTT, err := tc.Evl.TransformToNTTNew(ct)
		require.NoError(t, err)

		require.NoError(t, tc.Evl.ModSwitchTo(ctNTT, tc.Ctx.LastParmsID(), ctNTT))
		require.True(t, ctNTT.IsNTTForm)
		VerifyTestVectors(tc, ctNTT, values, t)

		// both domains round the same integers
		want, err := tc.Evl.ModSwitchToNew(ct, tc.Ctx.LastParmsID())
		require.NoError(t, err)
		require.NoError(t, tc.Evl.TransformToNTT(want, want))
		require.True(t, want.Value.Equal(ctNTT.Value))

		require.ErrorIs(t, tc.Evl.ModSwitchToNext(ctNTT, ctNTT), ErrEndOfChain)
	})

	t.Run(name("ModSwitching/Plaintext", tc), func(t *testing.T) {

		values0, _, ct := NewTestVector(tc, ParmsIDZero)
		values1, pt, _ := NewTestVector(tc, ParmsIDZero)

		require.ErrorIs(t, tc.Evl.ModSwitchPlainToNext(pt), ErrParameterMismatch)

		require.NoError(t, tc.Evl.TransformPlainToNTT(pt, tc.Ctx.FirstParmsID()))
		require.NoError(t, tc.Evl.ModSwitchPlainTo(pt, tc.Ctx.LastParmsID()))
		require.Equal(t, tc.Ctx.LastParmsID(), pt.ParmsID)
		require.Equal(t, tc.Params.N(), pt.CoeffCount())

		require.ErrorIs(t, tc.Evl.ModSwitchPlainToNext(pt), ErrEndOfChain)

		require.NoError(t, tc.Evl.ModSwitchTo(ct, tc.Ctx.LastParmsID(), ct))
		require.NoError(t, tc.Evl.TransformToNTT(ct, ct))
		require.NoError(t, tc.Evl.MultiplyPlain(ct, pt, ct))
		require.NoError(t, tc.Evl.TransformFromNTT(ct, ct))

		VerifyTestVectors(tc, ct, mulSlots(values0, values1, tc.Params.PlaintextModulus()), t)
	})
}

func testErrors(tc *TestContext, t *testing.T) {

	t.Run(name("Errors/Transparent", tc), func(t *testing.T) {

		_, _, ct := NewTestVector(tc, ParmsIDZero)
		out := ct.CopyNew()

		require.ErrorIs(t, tc.Evl.Sub(ct, ct, out), ErrTransparentCiphertext)
		require.True(t, ct.Equal(out))

		require.ErrorIs(t, tc.Evl.MultiplyPlain(ct, NewPlaintext(1), out), ErrTransparentCiphertext)
		require.True(t, ct.Equal(out))

		transparent := ct.CopyNew()
		transparent.Poly(1).Zero()
		require.True(t, transparent.IsTransparent())
		_, err := tc.Evl.NegateNew(transparent)
		require.ErrorIs(t, err, ErrTransparentCiphertext)
	})

	t.Run(name("Errors/ParameterMismatch", tc), func(t *testing.T) {

		_, _, ct0 := NewTestVector(tc, ParmsIDZero)
		_, _, ct1 := NewTestVector(tc, ParmsIDZero)

		require.ErrorIs(t, tc.Evl.Add(ct0, ct1, nil), ErrParameterMismatch)

		ctNTT, err := tc.Evl.TransformToNTTNew(ct1)
		require.NoError(t, err)

		_, err = tc.Evl.AddNew(ct0, ctNTT)
		require.ErrorIs(t, err, ErrParameterMismatch)

		_, err = tc.Evl.MultiplyNew(ctNTT, ctNTT)
		require.ErrorIs(t, err, ErrParameterMismatch)

		_, err = tc.Evl.TransformToNTTNew(ctNTT)
		require.ErrorIs(t, err, ErrParameterMismatch)

		if tc.Ctx.ChainLength() > 1 {
			ctLow, err := tc.Evl.ModSwitchToNextNew(ct1)
			require.NoError(t, err)
			_, err = tc.Evl.AddNew(ct0, ctLow)
			require.ErrorIs(t, err, ErrParameterMismatch)
		}

		unknown := ct0.CopyNew()
		unknown.ParmsID = ParmsID{1, 2, 3, 4}
		_, err = tc.Evl.NegateNew(unknown)
		require.ErrorIs(t, err, ErrParameterMismatch)

		_, err = tc.Evl.AddPlainNew(ct0, NewPlaintextFromValues([]uint64{tc.Params.PlaintextModulus()}))
		require.ErrorIs(t, err, ErrParameterMismatch)
	})

	t.Run(name("Errors/Size", tc), func(t *testing.T) {

		_, _, ct := NewTestVector(tc, ParmsIDZero)

		ct3, err := tc.Evl.SquareNew(ct)
		require.NoError(t, err)

		_, err = tc.Evl.ApplyGaloisNew(ct3, 3)
		require.ErrorIs(t, err, ErrInvalidSize)

		// s^4 has no relinearization key
		ct5, err := tc.Evl.SquareNew(ct3)
		require.NoError(t, err)
		require.Equal(t, 5, ct5.Size())
		_, err = tc.Evl.RelinearizeNew(ct5)
		require.ErrorIs(t, err, ErrInvalidSize)

		_, err = NewCiphertext(tc.Ctx, tc.Ctx.FirstParmsID(), CiphertextSizeMax+1)
		require.ErrorIs(t, err, ErrInvalidSize)

		require.ErrorIs(t, tc.Evl.AddMany(nil, ct), ErrInvalidSize)
	})

	t.Run(name("Errors/MissingKey", tc), func(t *testing.T) {

		_, _, ct0 := NewTestVector(tc, ParmsIDZero)
		_, _, ct1 := NewTestVector(tc, ParmsIDZero)

		eval, err := tc.Evl.WithKey(nil, nil)
		require.NoError(t, err)

		_, err = eval.MulRelinNew(ct0, ct1)
		require.ErrorIs(t, err, ErrMissingKey)

		_, err = eval.RotateRowsNew(ct0, 1)
		require.ErrorIs(t, err, ErrMissingKey)

		_, err = eval.RotateColumnsNew(ct0)
		require.ErrorIs(t, err, ErrMissingKey)

		_, err = tc.Kgen.GenRelinKeysNew(tc.Sk, CiphertextSizeMax)
		require.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run(name("Errors/ForeignKeys", tc), func(t *testing.T) {

		lit := TestScenario
		if tc.Params.N() == 1<<TestScenario.LogN {
			lit = TestInsecureSmall
		}

		params, err := NewParametersFromLiteral(lit)
		require.NoError(t, err)
		ctx, err := NewContext(params)
		require.NoError(t, err)
		require.NotEqual(t, tc.Ctx.KeyParmsID(), ctx.KeyParmsID())

		kgen, err := NewKeyGenerator(ctx)
		require.NoError(t, err)
		sk, _, err := kgen.GenKeyPairNew()
		require.NoError(t, err)
		rlk, err := kgen.GenRelinKeysNew(sk, 1)
		require.NoError(t, err)
		gks, err := kgen.GenGaloisKeysForStepsNew(sk, []int{1})
		require.NoError(t, err)

		_, err = tc.Evl.WithKey(rlk, nil)
		require.ErrorIs(t, err, ErrParameterMismatch)

		_, err = tc.Evl.WithKey(tc.Rlk, gks)
		require.ErrorIs(t, err, ErrParameterMismatch)

		_, err = NewEvaluator(tc.Ctx, rlk, tc.Gks)
		require.ErrorIs(t, err, ErrParameterMismatch)
	})

	t.Run(name("Errors/MalformedKeyRow", tc), func(t *testing.T) {

		_, _, ct0 := NewTestVector(tc, ParmsIDZero)
		_, _, ct1 := NewTestVector(tc, ParmsIDZero)

		galEl, err := tc.Ctx.GaloisTool().EltFromStep(1)
		require.NoError(t, err)
		idx := ring.IndexFromElt(galEl)

		rows := map[string]func(row []PublicKey) []PublicKey{
			"Truncated": func(row []PublicKey) []PublicKey { return row[:ct0.ModuliCount()-1] },
			"EmptyKey": func(row []PublicKey) []PublicKey {
				row = slices.Clone(row)
				row[0] = PublicKey{}
				return row
			},
		}

		for _, k := range utils.GetSortedKeys(rows) {

			// a truncated row is empty at a single prime, which reads as a missing key
			if k == "Truncated" && ct0.ModuliCount() == 1 {
				continue
			}

			rlk := &RelinKeys{KSwitchKeys{ParmsID: tc.Rlk.ParmsID, Keys: slices.Clone(tc.Rlk.Keys)}}
			rlk.Keys[0] = rows[k](rlk.Keys[0])

			gks := &GaloisKeys{KSwitchKeys{ParmsID: tc.Gks.ParmsID, Keys: slices.Clone(tc.Gks.Keys)}}
			gks.Keys[idx] = rows[k](gks.Keys[idx])

			eval, err := tc.Evl.WithKey(rlk, gks)
			require.NoError(t, err)

			_, err = eval.MulRelinNew(ct0, ct1)
			require.ErrorIs(t, err, ErrParameterMismatch, k)

			_, err = eval.ApplyGaloisNew(ct0, galEl)
			require.ErrorIs(t, err, ErrParameterMismatch, k)
		}
	})

	t.Run(name("Errors/InvalidParameters", tc), func(t *testing.T) {

		_, _, ct := NewTestVector(tc, ParmsIDZero)

		_, err := tc.Evl.ApplyGaloisNew(ct, 2)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = tc.Evl.RotateRowsNew(ct, tc.Params.N())
		require.ErrorIs(t, err, ErrInvalidParameters)

		require.ErrorIs(t, tc.Evl.Exponentiate(ct, 0, ct), ErrInvalidParameters)
	})
}
