package bfv

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/bfvrns/utils/sampling"
)

type TestContext struct {
	Params Parameters
	Ctx    *Context
	Ecd    *BatchEncoder

	Kgen *KeyGenerator
	Sk   *SecretKey
	Pk   *PublicKey
	Rlk  *RelinKeys
	Gks  *GaloisKeys

	Enc *Encryptor
	Dec *Decryptor

	Evl *Evaluator
}

func NewTestContext(params ParametersLiteral) (tc *TestContext, err error) {

	tc = new(TestContext)

	if tc.Params, err = NewParametersFromLiteral(params); err != nil {
		return nil, err
	}

	if tc.Ctx, err = NewContext(tc.Params); err != nil {
		return nil, err
	}

	if tc.Ecd, err = NewBatchEncoder(tc.Ctx); err != nil {
		return nil, err
	}

	if tc.Kgen, err = NewKeyGenerator(tc.Ctx); err != nil {
		return nil, err
	}

	if tc.Sk, tc.Pk, err = tc.Kgen.GenKeyPairNew(); err != nil {
		return nil, err
	}

	if tc.Rlk, err = tc.Kgen.GenRelinKeysNew(tc.Sk, 2); err != nil {
		return nil, err
	}

	if tc.Gks, err = tc.Kgen.GenGaloisKeysNew(tc.Sk, nil); err != nil {
		return nil, err
	}

	if tc.Enc, err = NewEncryptor(tc.Ctx, tc.Pk, tc.Sk); err != nil {
		return nil, err
	}

	if tc.Dec, err = NewDecryptor(tc.Ctx, tc.Sk); err != nil {
		return nil, err
	}

	if tc.Evl, err = NewEvaluator(tc.Ctx, tc.Rlk, tc.Gks); err != nil {
		return nil, err
	}

	return
}

func (tc TestContext) String() string {
	return fmt.Sprintf("LogN=%d/logQ=%d/Qi=%d/logT=%d",
		tc.Params.LogN(),
		int(math.Round(tc.Params.LogQ())),
		tc.Params.QCount(),
		int(math.Round(math.Log2(float64(tc.Params.PlaintextModulus())))))
}

// NewTestVector returns random slot values, their encoding and their public-key encryption at the level id.
// The zero ParmsID designates the first data level.
func NewTestVector(tc *TestContext, id ParmsID) (values []uint64, pt *Plaintext, ct *Ciphertext) {

	t := tc.Params.PlaintextModulus()

	values = make([]uint64, tc.Ecd.SlotCount())
	for i := range values {
		values[i] = sampling.RandUint64() % t
	}

	var err error
	if pt, err = tc.Ecd.EncodeNew(values); err != nil {
		panic(err)
	}

	ct = &Ciphertext{ParmsID: id}
	if err = tc.Enc.Encrypt(pt, ct); err != nil {
		panic(err)
	}

	return
}

// VerifyTestVectors checks that the slots of have, a plaintext or a ciphertext, are equal to want.
func VerifyTestVectors(tc *TestContext, have interface{}, want []uint64, t *testing.T) {

	var pt *Plaintext

	switch have := have.(type) {
	case *Plaintext:
		pt = have
	case *Ciphertext:
		var err error
		pt, err = tc.Dec.DecryptNew(have)
		require.NoError(t, err)
	default:
		t.Error("invalid unsupported test object type")
		return
	}

	values, err := tc.Ecd.DecodeNew(pt)
	require.NoError(t, err)
	require.True(t, slices.Equal(values, want))
}
