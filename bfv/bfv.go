// Package bfv implements a full-RNS variant of the Brakerski/Fan-Vercauteren (BFV)
// scale-invariant homomorphic encryption scheme. Ciphertext multiplication uses the
// BEHZ technique (Bajard, Eynard, Hasan and Zucca) and never leaves the RNS
// representation; relinearization and Galois automorphisms use key switching with a
// single special prime; the modulus can be lowered along a chain of levels that each
// drop the last prime.
//
// The BFV scheme enables SIMD modular arithmetic over encrypted vectors of integers
// modulo the plaintext modulus t, arranged as a 2 x N/2 matrix when t is a prime
// congruent to 1 modulo 2N.
package bfv

import (
	"fmt"
)

// SchemeType identifies the homomorphic encryption scheme of a parameter set.
type SchemeType uint8

const (
	// SchemeNone is the zero value and is not a valid scheme.
	SchemeNone SchemeType = iota
	// SchemeBFV is the BFV scheme, the only one evaluated by this package.
	SchemeBFV
	// SchemeCKKS is accepted by the parameters but not implemented.
	SchemeCKKS
	// SchemeBGV is accepted by the parameters but not implemented.
	SchemeBGV
)

// String returns the name of the scheme.
func (s SchemeType) String() string {
	switch s {
	case SchemeBFV:
		return "BFV"
	case SchemeCKKS:
		return "CKKS"
	case SchemeBGV:
		return "BGV"
	default:
		return "None"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SchemeType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SchemeType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BFV", "":
		*s = SchemeBFV
	case "CKKS":
		*s = SchemeCKKS
	case "BGV":
		*s = SchemeBGV
	case "None":
		*s = SchemeNone
	default:
		return fmt.Errorf("cannot UnmarshalText: unknown scheme %q", text)
	}
	return nil
}

const (
	// CiphertextSizeMin is the smallest number of polynomials of a ciphertext.
	CiphertextSizeMin = 2
	// CiphertextSizeMax is the largest number of polynomials of a ciphertext.
	CiphertextSizeMax = 16
)

func checkScheme(op string, s SchemeType) error {
	if s != SchemeBFV {
		return fmt.Errorf("cannot %s: %w: scheme %s", op, ErrNotImplemented, s)
	}
	return nil
}
