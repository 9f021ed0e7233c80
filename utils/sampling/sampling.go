// Package sampling implements secure sampling of bytes and integers.
package sampling

import (
	"crypto/rand"
	"encoding/binary"
)

// RandUint64 return a random value between 0 and 0xFFFFFFFFFFFFFFFF.
func RandUint64() uint64 {
	b := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint64(b)
}

// RandUint64Below returns a uniform value in [0, max-1] read from prng.
// It panics if max is zero or if prng fails.
func RandUint64Below(prng PRNG, max uint64) uint64 {

	if max == 0 {
		panic("cannot RandUint64Below: max is zero")
	}

	// Largest multiple of max representable on 64 bits, for rejection sampling.
	bound := ^uint64(0) - (^uint64(0)%max+1)%max

	b := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	for {
		if _, err := prng.Read(b); err != nil {
			panic(err)
		}
		if v := binary.LittleEndian.Uint64(b); v <= bound {
			return v % max
		}
	}
}
