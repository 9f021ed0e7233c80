package bfv

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"runtime"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils/buffer"
	"github.com/tuneinsight/bfvrns/utils/sampling"
)

var flagPrintNoise = flag.Bool("print-noise", false, "print the residual noise")
var flagParamString = flag.String("params", "", "specify the test cryptographic parameters as a JSON string. Overrides the default test suite.")

func name(op string, tc *TestContext) string {
	return fmt.Sprintf("%s/%s", op, tc)
}

func testParamsLiterals(t testing.TB) []ParametersLiteral {
	if *flagParamString != "" {
		var jsonParams ParametersLiteral
		if err := json.Unmarshal([]byte(*flagParamString), &jsonParams); err != nil {
			t.Fatal(err)
		}
		return []ParametersLiteral{jsonParams} // the custom test suite reads the parameters from the -params flag
	}
	return TestParams
}

func TestBFV(t *testing.T) {

	for _, p := range testParamsLiterals(t) {

		tc, err := NewTestContext(p)
		require.NoError(t, err)

		for _, testSet := range []func(tc *TestContext, t *testing.T){
			testParameters,
			testContext,
			testEncoder,
			testEncryptor,
			testMarshaller,
			testEvaluator,
			testKeySwitching,
			testModSwitching,
			testErrors,
		} {
			testSet(tc, t)
			runtime.GC()
		}
	}
}

func testParameters(tc *TestContext, t *testing.T) {

	t.Run(name("Parameters/Marshaller/Binary", tc), func(t *testing.T) {
		data, err := tc.Params.MarshalBinary()
		require.NoError(t, err)
		var p Parameters
		require.NoError(t, p.UnmarshalBinary(data))
		require.True(t, tc.Params.Equal(&p))
	})

	t.Run(name("Parameters/Marshaller/JSON", tc), func(t *testing.T) {

		data, err := json.Marshal(tc.Params)
		require.NoError(t, err)

		var paramsRec Parameters
		require.NoError(t, json.Unmarshal(data, &paramsRec))
		require.True(t, tc.Params.Equal(&paramsRec))

		// moduli given by their sizes and plaintext modulus by its size
		dataWithLogModuli := []byte(fmt.Sprintf(`{"LogN":%d,"LogQ":[50,50],"LogT":20}`, tc.Params.LogN()))
		var paramsWithLogModuli Parameters
		require.NoError(t, json.Unmarshal(dataWithLogModuli, &paramsWithLogModuli))
		require.Equal(t, 2, paramsWithLogModuli.QCount())
		require.True(t, paramsWithLogModuli.UsingBatching())
		require.Equal(t, SchemeBFV, paramsWithLogModuli.Scheme())
		require.Equal(t, ring.DefaultSigma, paramsWithLogModuli.NoiseSigma())
	})

	t.Run(name("Parameters/Qualifiers", tc), func(t *testing.T) {
		require.True(t, tc.Params.UsingBatching())
		require.True(t, tc.Params.UsingFastPlainLift())
		require.True(t, tc.Params.UsingKeySwitching())
		require.Equal(t, tc.Params.N(), tc.Params.SlotCount())
		require.InDelta(t, float64(tc.Params.QBigInt().BitLen()), tc.Params.LogQ(), 1)
	})

	t.Run(name("Parameters/Invalid", tc), func(t *testing.T) {

		q := tc.Params.Q()
		T := tc.Params.PlaintextModulus()

		for _, c := range []struct {
			logN int
			q    []uint64
			t    uint64
		}{
			{MinLogN - 1, q, T},
			{MaxLogN + 1, q, T},
			{tc.Params.LogN(), nil, T},
			{tc.Params.LogN(), []uint64{q[0], q[0]}, T},
			{tc.Params.LogN(), []uint64{q[0] + 2}, T},
			{tc.Params.LogN(), q, 1},
			{tc.Params.LogN(), q, q[0]},
		} {
			_, err := NewParameters(c.logN, c.q, c.t)
			require.ErrorIs(t, err, ErrInvalidParameters)
		}

		_, err := NewParametersFromLiteral(ParametersLiteral{LogN: tc.Params.LogN(), Q: q, LogQ: []int{50}, PlaintextModulus: T})
		require.ErrorIs(t, err, ErrInvalidParameters)
	})
}

func testContext(tc *TestContext, t *testing.T) {

	t.Run(name("Context/Chain", tc), func(t *testing.T) {

		ctx := tc.Ctx
		key := ctx.KeyContextData()

		require.Equal(t, tc.Params.Q(), key.Moduli())
		require.Nil(t, key.Prev())
		require.Same(t, ctx.FirstContextData(), key.Next())
		require.Equal(t, tc.Params.QCount()-1, ctx.ChainLength())
		require.True(t, ctx.UsingKeySwitching())

		seen := map[ParmsID]bool{}
		count := 0
		for cd := key; cd != nil; cd = cd.Next() {
			require.False(t, seen[cd.ParmsID])
			seen[cd.ParmsID] = true
			require.Same(t, cd, ctx.GetContextData(cd.ParmsID))
			require.Equal(t, cd.ChainIndex+1, cd.ModuliCount())
			if next := cd.Next(); next != nil {
				require.Same(t, cd, next.Prev())
				require.Equal(t, cd.Moduli()[:next.ModuliCount()], next.Moduli())
			} else {
				require.Equal(t, ctx.LastParmsID(), cd.ParmsID)
				require.Equal(t, 1, cd.ModuliCount())
			}
			count++
		}

		require.Equal(t, tc.Params.QCount(), count)
		require.Nil(t, ctx.GetContextData(ParmsIDZero))
	})

	t.Run(name("Context/SinglePrime", tc), func(t *testing.T) {

		params, err := NewParameters(tc.Params.LogN(), tc.Params.Q()[:1], tc.Params.PlaintextModulus())
		require.NoError(t, err)
		require.False(t, params.UsingKeySwitching())

		ctx, err := NewContext(params)
		require.NoError(t, err)
		require.Equal(t, ctx.KeyParmsID(), ctx.FirstParmsID())
		require.Equal(t, ctx.KeyParmsID(), ctx.LastParmsID())
		require.False(t, ctx.UsingKeySwitching())

		kgen, err := NewKeyGenerator(ctx)
		require.NoError(t, err)
		sk, pk, err := kgen.GenKeyPairNew()
		require.NoError(t, err)

		_, err = kgen.GenRelinKeysNew(sk, 1)
		require.ErrorIs(t, err, ErrMissingKey)

		enc, err := NewEncryptor(ctx, pk, sk)
		require.NoError(t, err)
		dec, err := NewDecryptor(ctx, sk)
		require.NoError(t, err)
		eval, err := NewEvaluator(ctx, nil, nil)
		require.NoError(t, err)

		ct0, err := enc.EncryptNew(NewPlaintextFromValues([]uint64{3}))
		require.NoError(t, err)
		ct1, err := enc.EncryptNew(NewPlaintextFromValues([]uint64{5}))
		require.NoError(t, err)

		ctSum, err := eval.AddNew(ct0, ct1)
		require.NoError(t, err)

		pt, err := dec.DecryptNew(ctSum)
		require.NoError(t, err)
		require.Equal(t, []uint64{8}, pt.Coeffs)

		ct2, err := eval.MultiplyNew(ct0, ct1)
		require.NoError(t, err)
		require.Equal(t, 3, ct2.Size())

		_, err = eval.RelinearizeNew(ct2)
		require.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run(name("Context/OtherSchemes", tc), func(t *testing.T) {

		params, err := NewParametersFromLiteral(ParametersLiteral{
			LogN:             tc.Params.LogN(),
			Q:                tc.Params.Q(),
			PlaintextModulus: tc.Params.PlaintextModulus(),
			Scheme:           SchemeBGV,
		})
		require.NoError(t, err)

		ctx, err := NewContext(params)
		require.NoError(t, err)

		_, err = NewKeyGenerator(ctx)
		require.ErrorIs(t, err, ErrNotImplemented)

		_, err = NewEvaluator(ctx, nil, nil)
		require.ErrorIs(t, err, ErrNotImplemented)

		_, err = NewBatchEncoder(ctx)
		require.ErrorIs(t, err, ErrNotImplemented)
	})
}

func testEncoder(tc *TestContext, t *testing.T) {

	t.Run(name("Encoder/Uint", tc), func(t *testing.T) {
		values, pt, _ := NewTestVector(tc, ParmsIDZero)
		VerifyTestVectors(tc, pt, values, t)
	})

	t.Run(name("Encoder/Int", tc), func(t *testing.T) {

		T := tc.Params.PlaintextModulus()
		THalf := T >> 1

		values := make([]int64, tc.Ecd.SlotCount())
		for i := range values {
			c := sampling.RandUint64() % T
			if c > THalf {
				values[i] = -int64(T - c)
			} else {
				values[i] = int64(c)
			}
		}

		pt, err := tc.Ecd.EncodeIntNew(values)
		require.NoError(t, err)

		have, err := tc.Ecd.DecodeIntNew(pt)
		require.NoError(t, err)
		require.True(t, slices.Equal(values, have))
	})

	t.Run(name("Encoder/Constant", tc), func(t *testing.T) {

		values := make([]uint64, tc.Ecd.SlotCount())
		for i := range values {
			values[i] = 7
		}

		pt, err := tc.Ecd.EncodeNew(values)
		require.NoError(t, err)
		require.Equal(t, 1, pt.SignificantCoeffCount())
		require.Equal(t, uint64(7), pt.At(0))
	})

	t.Run(name("Encoder/Coeffs", tc), func(t *testing.T) {

		values := []int64{1, -1, 2, -2, 0, 3}

		pt, err := EncodeCoeffs(tc.Params, values)
		require.NoError(t, err)
		require.Equal(t, tc.Params.PlaintextModulus()-1, pt.At(1))

		have, err := DecodeCoeffs(tc.Params, pt)
		require.NoError(t, err)
		require.Equal(t, values, have)

		_, err = EncodeCoeffs(tc.Params, []int64{int64(tc.Params.PlaintextModulus())})
		require.ErrorIs(t, err, ErrParameterMismatch)
	})

	t.Run(name("Encoder/Invalid", tc), func(t *testing.T) {
		_, err := tc.Ecd.EncodeNew(make([]uint64, tc.Ecd.SlotCount()+1))
		require.ErrorIs(t, err, ErrInvalidSize)
		_, err = tc.Ecd.EncodeNew([]uint64{tc.Params.PlaintextModulus()})
		require.ErrorIs(t, err, ErrParameterMismatch)
	})
}

func testEncryptor(tc *TestContext, t *testing.T) {

	t.Run(name("Encryptor/Public", tc), func(t *testing.T) {
		values, _, ct := NewTestVector(tc, ParmsIDZero)
		require.Equal(t, tc.Ctx.FirstParmsID(), ct.ParmsID)
		require.Equal(t, 2, ct.Size())
		require.False(t, ct.IsTransparent())
		VerifyTestVectors(tc, ct, values, t)
	})

	t.Run(name("Encryptor/Public/LastLevel", tc), func(t *testing.T) {
		values, _, ct := NewTestVector(tc, tc.Ctx.LastParmsID())
		require.Equal(t, tc.Ctx.LastParmsID(), ct.ParmsID)
		VerifyTestVectors(tc, ct, values, t)
	})

	t.Run(name("Encryptor/Symmetric", tc), func(t *testing.T) {
		values, pt, _ := NewTestVector(tc, ParmsIDZero)
		ct, err := tc.Enc.EncryptSymmetricNew(pt)
		require.NoError(t, err)
		require.Nil(t, ct.Seed)
		VerifyTestVectors(tc, ct, values, t)
	})

	t.Run(name("Encryptor/Zero", tc), func(t *testing.T) {

		for _, symmetric := range []bool{false, true} {

			ct := new(Ciphertext)
			if symmetric {
				require.NoError(t, tc.Enc.EncryptZeroSymmetric(ct))
			} else {
				require.NoError(t, tc.Enc.EncryptZero(ct))
			}

			pt, err := tc.Dec.DecryptNew(ct)
			require.NoError(t, err)
			require.True(t, pt.IsZero())
			require.Equal(t, 1, pt.CoeffCount())
		}
	})

	t.Run(name("Encryptor/NoiseBudget", tc), func(t *testing.T) {

		values, _, ct := NewTestVector(tc, ParmsIDZero)

		budget, err := tc.Dec.InvariantNoiseBudget(ct)
		require.NoError(t, err)
		require.Greater(t, budget, 0)

		pt, err := tc.Ecd.EncodeNew(values)
		require.NoError(t, err)

		noise, err := tc.Dec.Noise(ct, pt)
		require.NoError(t, err)

		if *flagPrintNoise {
			t.Logf("budget=%d %s", budget, noise)
		}

		// decryption is correct while the noise is below Q/(2t)
		logQ := float64(tc.Ctx.FirstContextData().TotalCoeffModulus.BitLen())
		require.Less(t, noise.Max, logQ-math.Log2(float64(tc.Params.PlaintextModulus()))-1)
	})

	t.Run(name("Encryptor/Noise/Sparse", tc), func(t *testing.T) {

		ct, err := NewCiphertext(tc.Ctx, tc.Ctx.FirstParmsID(), 2)
		require.NoError(t, err)

		zero := NewPlaintextFromValues([]uint64{0})

		noise, err := tc.Dec.Noise(ct, zero)
		require.NoError(t, err)
		require.Equal(t, NoiseStatistics{}, noise)

		// a single noise coefficient of 2^10
		c0 := ct.Poly(0)
		for i := range c0.Coeffs {
			c0.Coeffs[i][0] = 1 << 10
		}

		noise, err = tc.Dec.Noise(ct, zero)
		require.NoError(t, err)
		require.InDelta(t, 10, noise.Mean, 1e-9)
		require.InDelta(t, 0, noise.StdDev, 1e-9)
		require.InDelta(t, 10, noise.Max, 1e-9)
	})

	t.Run(name("Encryptor/Invalid", tc), func(t *testing.T) {

		ct := new(Ciphertext)
		err := tc.Enc.Encrypt(NewPlaintextFromValues([]uint64{tc.Params.PlaintextModulus()}), ct)
		require.ErrorIs(t, err, ErrParameterMismatch)
		require.Nil(t, ct.Value)

		err = tc.Enc.Encrypt(NewPlaintext(tc.Params.N()+1), ct)
		require.ErrorIs(t, err, ErrInvalidSize)

		err = tc.Enc.Encrypt(NewPlaintext(1), &Ciphertext{ParmsID: tc.Ctx.KeyParmsID()})
		require.ErrorIs(t, err, ErrParameterMismatch)

		enc, err := NewEncryptor(tc.Ctx, tc.Pk, nil)
		require.NoError(t, err)
		_, err = enc.EncryptSymmetricNew(NewPlaintext(1))
		require.ErrorIs(t, err, ErrMissingKey)
	})
}

func testMarshaller(tc *TestContext, t *testing.T) {

	t.Run(name("Marshaller/Plaintext", tc), func(t *testing.T) {
		_, pt, _ := NewTestVector(tc, ParmsIDZero)
		data, err := pt.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, pt.BinarySize())
		ptRec := new(Plaintext)
		require.NoError(t, ptRec.UnmarshalBinary(data))
		require.True(t, pt.Equal(ptRec))
	})

	t.Run(name("Marshaller/Ciphertext", tc), func(t *testing.T) {

		_, _, ct := NewTestVector(tc, ParmsIDZero)

		data, err := ct.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, ct.BinarySize())

		ctRec := new(Ciphertext)
		require.NoError(t, ctRec.UnmarshalBinary(data))
		require.True(t, ct.Equal(ctRec))
	})

	t.Run(name("Marshaller/Ciphertext/Seeded", tc), func(t *testing.T) {

		values, pt, _ := NewTestVector(tc, ParmsIDZero)

		ct := new(Ciphertext)
		require.NoError(t, tc.Enc.EncryptSymmetricSeeded(pt, ct))
		require.Len(t, ct.Seed, sampling.SeedSize)

		full := ct.CopyNew()
		full.Seed = nil
		require.Less(t, ct.BinarySize(), full.BinarySize())

		buf := new(bytes.Buffer)
		_, err := ct.WriteTo(buf)
		require.NoError(t, err)
		require.Equal(t, ct.BinarySize(), buf.Len())

		ctRec, err := LoadCiphertext(tc.Ctx, buf)
		require.NoError(t, err)
		require.True(t, ct.Value.Equal(ctRec.Value))
		VerifyTestVectors(tc, ctRec, values, t)
	})

	t.Run(name("Marshaller/Keys", tc), func(t *testing.T) {

		data, err := tc.Sk.MarshalBinary()
		require.NoError(t, err)
		sk := new(SecretKey)
		require.NoError(t, sk.UnmarshalBinary(data))
		require.True(t, tc.Sk.Equal(sk))

		data, err = tc.Pk.MarshalBinary()
		require.NoError(t, err)
		pk := new(PublicKey)
		require.NoError(t, pk.UnmarshalBinary(data))
		require.True(t, tc.Pk.Equal(pk))

		buf := buffer.NewBufferSize(tc.Rlk.BinarySize())
		_, err = tc.Rlk.WriteTo(buf)
		require.NoError(t, err)
		rlk := new(RelinKeys)
		_, err = rlk.ReadFrom(buffer.NewBuffer(buf.Bytes()))
		require.NoError(t, err)
		require.True(t, tc.Rlk.Equal(&rlk.KSwitchKeys))

		data, err = tc.Gks.MarshalBinary()
		require.NoError(t, err)
		gks := new(GaloisKeys)
		require.NoError(t, gks.UnmarshalBinary(data))
		require.True(t, tc.Gks.Equal(&gks.KSwitchKeys))
		require.Equal(t, tc.Gks.Elts(), gks.Elts())
	})
}
