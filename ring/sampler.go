package ring

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/tuneinsight/bfvrns/utils/sampling"
)

// DefaultSigma and DefaultBound are the standard deviation and the
// truncation bound of the discrete Gaussian error distribution.
const (
	DefaultSigma = 3.2
	DefaultBound = 19
)

// Sampler is an interface for random polynomial samplers.
// Read populates the polynomial according to the Sampler's distribution.
type Sampler interface {
	Read(pol Poly)
	ReadNew() (pol Poly)
}

type baseSampler struct {
	prng     sampling.PRNG
	baseRing *Ring
	buff     []byte
	ptr      int
}

func newBaseSampler(prng sampling.PRNG, baseRing *Ring) baseSampler {
	return baseSampler{prng: prng, baseRing: baseRing, buff: make([]byte, 1024), ptr: 1024}
}

func (b *baseSampler) uint64() uint64 {
	if b.ptr+8 > len(b.buff) {
		if _, err := b.prng.Read(b.buff); err != nil {
			// Sanity check, this error should not happen.
			panic(err)
		}
		b.ptr = 0
	}
	v := binary.LittleEndian.Uint64(b.buff[b.ptr:])
	b.ptr += 8
	return v
}

// ReadNew samples a new polynomial.
func (u *UniformSampler) ReadNew() (pol Poly) {
	pol = u.baseRing.NewPoly()
	u.Read(pol)
	return
}

// UniformSampler samples polynomials with coefficients uniformly distributed modulo each modulus.
type UniformSampler struct {
	baseSampler
}

// NewUniformSampler creates a new instance of UniformSampler from a PRNG and ring definition.
func NewUniformSampler(prng sampling.PRNG, baseRing *Ring) *UniformSampler {
	return &UniformSampler{newBaseSampler(prng, baseRing)}
}

// Read samples a uniform polynomial on pol. The sequence of samples is
// entirely determined by the stream of the PRNG.
func (u *UniformSampler) Read(pol Poly) {
	for j, s := range u.baseRing.SubRings {

		qi := s.Modulus
		mask := uint64(1)<<bits.Len64(qi-1) - 1

		coeffs := pol.Coeffs[j]

		for i := range coeffs {
			for {
				if v := u.uint64() & mask; v < qi {
					coeffs[i] = v
					break
				}
			}
		}
	}
}

// TernarySampler samples polynomials with coefficients uniform in {-1, 0, 1}.
type TernarySampler struct {
	baseSampler
}

// NewTernarySampler creates a new instance of TernarySampler from a PRNG and ring definition.
func NewTernarySampler(prng sampling.PRNG, baseRing *Ring) *TernarySampler {
	return &TernarySampler{newBaseSampler(prng, baseRing)}
}

// Read samples a ternary polynomial on pol.
func (ts *TernarySampler) Read(pol Poly) {

	var v uint64

	for i := 0; i < ts.baseRing.N; i++ {

		// rejection sampling in [0, 3) from 2 random bits
		for v = ts.uint64() & 3; v == 3; v = ts.uint64() & 3 {
		}

		for j, s := range ts.baseRing.SubRings {
			switch v {
			case 0:
				pol.Coeffs[j][i] = s.Modulus - 1
			case 1:
				pol.Coeffs[j][i] = 0
			default:
				pol.Coeffs[j][i] = 1
			}
		}
	}
}

// ReadNew samples a new ternary polynomial.
func (ts *TernarySampler) ReadNew() (pol Poly) {
	pol = ts.baseRing.NewPoly()
	ts.Read(pol)
	return
}

// GaussianSampler samples polynomials with coefficients following a
// discrete Gaussian distribution of standard deviation Sigma, truncated to [-Bound, Bound].
type GaussianSampler struct {
	baseSampler
	Sigma float64
	Bound int
}

// NewGaussianSampler creates a new instance of GaussianSampler from a PRNG, a ring definition
// and the distribution parameters.
func NewGaussianSampler(prng sampling.PRNG, baseRing *Ring, sigma float64, bound int) *GaussianSampler {
	return &GaussianSampler{baseSampler: newBaseSampler(prng, baseRing), Sigma: sigma, Bound: bound}
}

// Read samples a truncated discrete Gaussian polynomial on pol.
func (gs *GaussianSampler) Read(pol Poly) {
	for i := 0; i < gs.baseRing.N; i++ {

		x := gs.sample()

		for j, s := range gs.baseRing.SubRings {
			if x < 0 {
				pol.Coeffs[j][i] = s.Modulus - uint64(-x)
			} else {
				pol.Coeffs[j][i] = uint64(x)
			}
		}
	}
}

// ReadNew samples a new truncated discrete Gaussian polynomial.
func (gs *GaussianSampler) ReadNew() (pol Poly) {
	pol = gs.baseRing.NewPoly()
	gs.Read(pol)
	return
}

// sample draws an integer in [-Bound, Bound] with probability proportional to exp(-x^2/(2*Sigma^2)).
func (gs *GaussianSampler) sample() int64 {

	if gs.Bound == 0 || gs.Sigma == 0 {
		return 0
	}

	width := uint64(2*gs.Bound + 1)
	twoSigmaSquare := 2 * gs.Sigma * gs.Sigma

	for {
		x := int64(gs.uint64()%width) - int64(gs.Bound)
		// 53-bit uniform float in [0, 1)
		y := float64(gs.uint64()>>11) / (1 << 53)
		if y < math.Exp(-float64(x*x)/twoSigmaSquare) {
			return x
		}
	}
}
