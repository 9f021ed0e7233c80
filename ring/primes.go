package ring

import (
	"fmt"
	"math/big"
)

// MaxModulusBits is the maximum bit-size of the moduli of the ciphertext modulus chain.
const MaxModulusBits = 60

// MaxInternalModulusBits is the bit-size of the auxiliary moduli used by the RNS tools.
const MaxInternalModulusBits = 61

// IsPrime applies the Baillie-PSW, which is 100% accurate for numbers below 2^64.
func IsPrime(x uint64) bool {
	return new(big.Int).SetUint64(x).ProbablyPrime(0)
}

// GenerateNTTPrimes generates n distinct primes of exactly logQ bits that are congruent to 1 modulo NthRoot,
// starting from the largest one and going downward.
func GenerateNTTPrimes(logQ, NthRoot, n int) (primes []uint64, err error) {

	if logQ < 2 || logQ > MaxInternalModulusBits {
		return nil, fmt.Errorf("cannot GenerateNTTPrimes: logQ must be between 2 and %d but is %d", MaxInternalModulusBits, logQ)
	}

	if NthRoot < 2 || NthRoot&(NthRoot-1) != 0 {
		return nil, fmt.Errorf("cannot GenerateNTTPrimes: NthRoot must be a power of two but is %d", NthRoot)
	}

	lowerBound := uint64(1) << (logQ - 1)
	nthRoot := uint64(NthRoot)

	// largest value of the form k*NthRoot+1 below 2^logQ
	x := (uint64(1)<<logQ-1)/nthRoot*nthRoot + 1
	if x >= uint64(1)<<logQ {
		x -= nthRoot
	}

	for len(primes) < n {

		if x < lowerBound || x < 2 {
			return primes, fmt.Errorf("cannot GenerateNTTPrimes: not enough %d-bit primes congruent to 1 mod %d", logQ, NthRoot)
		}

		if IsPrime(x) {
			primes = append(primes, x)
		}

		if x < lowerBound+nthRoot {
			return primes, fmt.Errorf("cannot GenerateNTTPrimes: not enough %d-bit primes congruent to 1 mod %d", logQ, NthRoot)
		}

		x -= nthRoot
	}

	return
}
