package bfv

import (
	"fmt"
	"math"
	"math/big"

	"github.com/montanaflynn/stats"

	"github.com/tuneinsight/bfvrns/utils/bignum"
)

// NoiseStatistics summarizes the log2 of the absolute values of the noise coefficients
// of a ciphertext.
type NoiseStatistics struct {
	Mean   float64
	StdDev float64
	Max    float64
}

func (s NoiseStatistics) String() string {
	return fmt.Sprintf("log2(noise): mean=%.2f std=%.2f max=%.2f", s.Mean, s.StdDev, s.Max)
}

// Noise returns the statistics of the noise of ct with respect to the expected plaintext want,
// that is of the coefficients of c0 + c1*s + ... - round(Q*f*want/t) centered modulo Q,
// where f is the correction factor of ct. Zero coefficients are left out of the statistics,
// and a noiseless ciphertext returns zero statistics.
func (dec *Decryptor) Noise(ct *Ciphertext, want *Plaintext) (ns NoiseStatistics, err error) {

	cd, phase, err := dec.phase("Noise", ct)
	if err != nil {
		return
	}

	if err = checkPlain("Noise", cd, want); err != nil {
		return
	}

	t := cd.PlainModulus
	bigT := new(big.Int).SetUint64(t)
	f := new(big.Int).SetUint64(ct.CorrectionFactor % t)
	Q := cd.TotalCoeffModulus

	values := centeredCoeffs(cd, phase)
	logs := make([]float64, 0, len(values))

	m := new(big.Int)
	for i, v := range values {

		if i < want.CoeffCount() {
			m.SetUint64(want.Coeffs[i])
			m.Mul(m, f)
			m.Mod(m, bigT)
			m.Mul(m, Q)
			v.Sub(v, bignum.DivRound(m, bigT))
			v.Mod(v, Q)
			if v.Cmp(cd.UpperHalfThreshold) >= 0 {
				v.Sub(v, Q)
			}
		}

		if v.Sign() == 0 {
			continue
		}

		logs = append(logs, bignum.Log2(v.Abs(v)))
	}

	if len(logs) == 0 {
		return
	}

	if ns.Mean, err = stats.Mean(logs); err != nil {
		return ns, fmt.Errorf("cannot Noise: %w", err)
	}

	if ns.StdDev, err = stats.StandardDeviation(logs); err != nil {
		return ns, fmt.Errorf("cannot Noise: %w", err)
	}

	if ns.Max, err = stats.Max(logs); err != nil {
		return ns, fmt.Errorf("cannot Noise: %w", err)
	}

	if math.IsNaN(ns.StdDev) {
		ns.StdDev = 0
	}

	return
}
