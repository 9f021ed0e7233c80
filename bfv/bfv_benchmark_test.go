package bfv

import (
	"runtime"
	"testing"

	"github.com/tuneinsight/bfvrns/utils/sampling"
)

func BenchmarkBFV(b *testing.B) {

	testParams := testParamsLiterals(b)
	if *flagParamString == "" {
		testParams = []ParametersLiteral{
			{
				LogN: 13,
				LogQ: []int{55, 45, 45, 45, 60},
				LogT: 20,
			},
		}
	}

	for _, paramsLiteral := range testParams {

		tc, err := NewTestContext(paramsLiteral)
		if err != nil {
			b.Fatal(err)
		}

		for _, testSet := range []func(tc *TestContext, b *testing.B){
			benchEncoder,
			benchEncryptor,
			benchEvaluator,
		} {
			testSet(tc, b)
			runtime.GC()
		}
	}
}

func benchEncoder(tc *TestContext, b *testing.B) {

	T := tc.Params.PlaintextModulus()

	values := make([]uint64, tc.Ecd.SlotCount())
	for i := range values {
		values[i] = sampling.RandUint64() % T
	}

	pt := NewPlaintext(0)

	b.Run(name("Encoder/Encode", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := tc.Ecd.Encode(values, pt); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Encoder/Decode", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := tc.Ecd.Decode(pt, values); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func benchEncryptor(tc *TestContext, b *testing.B) {

	_, pt, ct := NewTestVector(tc, ParmsIDZero)

	b.Run(name("Encryptor/Encrypt/Public", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := tc.Enc.Encrypt(pt, ct); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Encryptor/Encrypt/Symmetric", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := tc.Enc.EncryptSymmetric(pt, ct); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Decryptor/Decrypt", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := tc.Dec.Decrypt(ct, pt); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func benchEvaluator(tc *TestContext, b *testing.B) {

	_, pt, ct0 := NewTestVector(tc, ParmsIDZero)
	_, _, ct1 := NewTestVector(tc, ParmsIDZero)

	eval := tc.Evl
	out := new(Ciphertext)

	b.Run(name("Evaluator/Add", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := eval.Add(ct0, ct1, out); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Evaluator/MultiplyPlain", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := eval.MultiplyPlain(ct0, pt, out); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Evaluator/Multiply", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := eval.Multiply(ct0, ct1, out); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Evaluator/Square", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := eval.Square(ct0, out); err != nil {
				b.Fatal(err)
			}
		}
	})

	ct2, err := eval.MultiplyNew(ct0, ct1)
	if err != nil {
		b.Fatal(err)
	}

	b.Run(name("Evaluator/Relinearize", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := eval.Relinearize(ct2, out); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Evaluator/RotateRows", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := eval.RotateRows(ct0, 1, out); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Evaluator/RotateColumns", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := eval.RotateColumns(ct0, out); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run(name("Evaluator/ModSwitchToNext", tc), func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := eval.ModSwitchToNext(ct0, out); err != nil {
				b.Fatal(err)
			}
		}
	})
}
