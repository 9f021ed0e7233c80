package ring

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/bfvrns/utils/sampling"
)

func newTestRNSTool(t *testing.T, logN, logQi, k int, pt uint64) (*RNSTool, *UniformSampler) {

	moduli, err := GenerateNTTPrimes(logQi, 2<<logN, k)
	require.NoError(t, err)

	ringQ, err := NewRing(1<<logN, moduli)
	require.NoError(t, err)

	rt, err := NewRNSTool(ringQ, pt)
	require.NoError(t, err)

	prng, err := sampling.NewKeyedPRNG([]byte{'r', 'n', 's'})
	require.NoError(t, err)

	return rt, NewUniformSampler(prng, ringQ)
}

func bigMod(x *big.Int, q uint64) uint64 {
	return new(big.Int).Mod(x, new(big.Int).SetUint64(q)).Uint64()
}

func TestRNSTool(t *testing.T) {

	rt, sampler := newTestRNSTool(t, 4, 40, 2, 65537)
	N := rt.N
	Q := rt.BaseQ.Product()

	t.Run("Bases", func(t *testing.T) {
		require.Equal(t, rt.BaseQ.Size(), rt.BaseB.Size())
		require.Equal(t, rt.BaseB.Size()+1, rt.BaseBsk.Size())
		require.Equal(t, rt.MSk, rt.BaseBsk.At(rt.BaseBsk.Size()-1))
		require.True(t, rt.BaseB.IsSubbaseOf(rt.BaseBsk))
		require.False(t, rt.BaseBsk.Contains(rt.Gamma))
		require.True(t, rt.BaseBsk.IsSubbaseOf(rt.BaseBskMTilde))
		require.True(t, rt.BaseBskMTilde.Contains(rt.MTilde))

		require.Equal(t, uint64(1), rt.QLastModT()*rt.InvQLastModT()%rt.T)

		qLast := rt.BaseQ.At(rt.BaseQ.Size() - 1)
		for i, inv := range rt.InvQLastModQ() {
			q := rt.BaseQ.At(i)
			require.Equal(t, uint64(1), BRed(qLast%q, inv, q, GenBRedConstant(q)))
		}
	})

	t.Run("DecryptScaleAndRound", func(t *testing.T) {

		delta := new(big.Int).Quo(Q, new(big.Int).SetUint64(rt.T))

		values := make([]*big.Int, N)
		want := make([]uint64, N)

		for j := range values {
			want[j] = (uint64(j) * 4099) % rt.T
			noise := big.NewInt(int64(j*37) - 250)
			values[j] = new(big.Int).Mul(delta, new(big.Int).SetUint64(want[j]))
			values[j].Add(values[j], noise)
			values[j].Mod(values[j], Q)
		}

		in := rt.RingQ.NewPoly()
		rt.BaseQ.DecomposeArray(values, in)

		out := make([]uint64, N)
		rt.DecryptScaleAndRound(in, out)
		require.Equal(t, want, out)
	})

	t.Run("DivideAndRoundQLast", func(t *testing.T) {

		in := sampler.ReadNew()
		values := rt.BaseQ.ComposeArray(in)

		inNTT := in.CopyNew()
		rt.RingQ.NTT(inNTT, inNTT)

		rt.DivideAndRoundQLastInplace(in)
		rt.DivideAndRoundQLastNTTInplace(inNTT)

		qLast := rt.BaseQ.At(rt.BaseQ.Size() - 1)
		half := new(big.Int).SetUint64(qLast >> 1)
		bigQLast := new(big.Int).SetUint64(qLast)

		for j, v := range values {
			want := new(big.Int).Add(v, half)
			want.Quo(want, bigQLast)
			for i := 0; i < rt.BaseQ.Size()-1; i++ {
				require.Equal(t, bigMod(want, rt.BaseQ.At(i)), in.Coeffs[i][j])
			}
		}

		for i := 0; i < rt.BaseQ.Size()-1; i++ {
			s := rt.RingQ.SubRings[i]
			s.NTT.Backward(inNTT.Coeffs[i])
			require.Equal(t, in.Coeffs[i], inNTT.Coeffs[i])
		}
	})

	t.Run("FastBConvMTilde/SmMrq", func(t *testing.T) {

		in := sampler.ReadNew()
		values := rt.BaseQ.ComposeArray(in)

		bsk := rt.NewBskPoly()
		mTilde := make([]uint64, N)
		rt.FastBConvMTilde(in, bsk, mTilde)

		out := rt.NewBskPoly()
		rt.SmMrq(bsk, mTilde, out)

		// out = x + alpha*Q for a small alpha
		for j, v := range values {
			found := false
			for alpha := int64(-1); alpha <= 1 && !found; alpha++ {
				want := new(big.Int).Mul(Q, big.NewInt(alpha))
				want.Add(want, v)
				match := true
				for i, b := range rt.BaseBsk.Moduli() {
					if bigMod(want, b) != out.Coeffs[i][j] {
						match = false
					}
				}
				found = match
			}
			require.True(t, found)
		}
	})

	t.Run("FastFloor", func(t *testing.T) {

		values := make([]*big.Int, N)
		for j := range values {
			values[j] = new(big.Int).Lsh(Q, uint(j+1))
			values[j].Add(values[j], big.NewInt(int64(j*j+12345)))
		}

		inQ := rt.RingQ.NewPoly()
		rt.BaseQ.DecomposeArray(values, inQ)

		inBsk := rt.NewBskPoly()
		rt.BaseBsk.DecomposeArray(values, inBsk)

		out := rt.NewBskPoly()
		rt.FastFloor(inQ, inBsk, out)

		for j, v := range values {
			floor := new(big.Int).Quo(v, Q)
			found := false
			for u := int64(0); u <= int64(rt.BaseQ.Size()) && !found; u++ {
				want := new(big.Int).Sub(floor, big.NewInt(u))
				match := true
				for i, b := range rt.BaseBsk.Moduli() {
					if bigMod(want, b) != out.Coeffs[i][j] {
						match = false
					}
				}
				found = match
			}
			require.True(t, found)
		}
	})

	t.Run("FastBConvSk", func(t *testing.T) {

		values := make([]*big.Int, N)
		for j := range values {
			values[j] = new(big.Int).Lsh(big.NewInt(int64(j+1)), 90)
			if j&1 == 1 {
				values[j].Neg(values[j])
			}
		}

		in := rt.NewBskPoly()
		rt.BaseBsk.DecomposeArray(values, in)

		out := rt.RingQ.NewPoly()
		rt.FastBConvSk(in, out)

		for j, v := range values {
			for i, q := range rt.BaseQ.Moduli() {
				require.Equal(t, bigMod(v, q), out.Coeffs[i][j])
			}
		}
	})
}

func TestRNSToolBaseSize(t *testing.T) {
	// a large plaintext modulus requires an extra prime in B
	rt, _ := newTestRNSTool(t, 3, 60, 1, 1<<40+15)
	require.Equal(t, 2, rt.BaseB.Size())
}
