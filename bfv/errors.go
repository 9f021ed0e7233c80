package bfv

import (
	"errors"
)

var (
	// ErrParameterMismatch is returned when operands are not at the same level,
	// reference an unknown ParmsID, or are not in the NTT form required by the operation.
	ErrParameterMismatch = errors.New("parameter mismatch")

	// ErrInvalidSize is returned when a ciphertext size is out of bounds, when a
	// relinearization cannot reach its target size, or when a buffer would exceed 2^32 words.
	ErrInvalidSize = errors.New("invalid size")

	// ErrNotImplemented is returned by every operation on parameters of a scheme other than BFV.
	ErrNotImplemented = errors.New("not implemented")

	// ErrMissingKey is returned when a Galois or relinearization key is missing,
	// or when the parameters do not support key switching.
	ErrMissingKey = errors.New("missing key")

	// ErrTransparentCiphertext is returned when the result of an operation
	// would decrypt independently of the secret key.
	ErrTransparentCiphertext = errors.New("result ciphertext is transparent")

	// ErrChainDirection is returned when a modulus switch targets a level with more primes.
	ErrChainDirection = errors.New("cannot switch to a higher level")

	// ErrEndOfChain is returned when a modulus switch is requested from the last level.
	ErrEndOfChain = errors.New("end of modulus switching chain reached")

	// ErrInvalidParameters is returned by the parameter validation.
	ErrInvalidParameters = errors.New("invalid parameters")
)
