package bfv

import (
	"fmt"
	"io"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils/sampling"
)

// LoadCiphertext reads a ciphertext from r and checks it against the chain of ctx.
// The second polynomial of a seeded ciphertext is re-expanded from its seed.
func LoadCiphertext(ctx *Context, r io.Reader) (ct *Ciphertext, err error) {

	ct = new(Ciphertext)

	if _, err = ct.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("cannot LoadCiphertext: %w", err)
	}

	cd, err := ctx.contextDataOf("LoadCiphertext", ct.ParmsID)
	if err != nil {
		return nil, err
	}

	if ct.N() != cd.N() || ct.ModuliCount() != cd.ModuliCount() {
		return nil, fmt.Errorf("cannot LoadCiphertext: %w: ciphertext shape does not match its ParmsID", ErrParameterMismatch)
	}

	if ct.Seed != nil {

		var prng *sampling.KeyedPRNG
		if prng, err = sampling.NewKeyedPRNG(ct.Seed); err != nil {
			return nil, fmt.Errorf("cannot LoadCiphertext: %w", err)
		}

		ring.NewUniformSampler(prng, cd.Ring).Read(ct.Poly(1))
	}

	return
}
