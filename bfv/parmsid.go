package bfv

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/tuneinsight/bfvrns/utils/buffer"
)

// ParmsID identifies one level of the modulus switching chain. It is the
// blake3 hash of the scheme, the ring degree, the primes and the plaintext modulus.
type ParmsID [4]uint64

// ParmsIDZero is the ParmsID of objects that are not bound to a level.
var ParmsIDZero = ParmsID{}

// IsZero returns true if the ParmsID is ParmsIDZero.
func (id ParmsID) IsZero() bool {
	return id == ParmsIDZero
}

// String returns the hexadecimal representation of the ParmsID.
func (id ParmsID) String() string {
	return fmt.Sprintf("%016x%016x%016x%016x", id[0], id[1], id[2], id[3])
}

func computeParmsID(scheme SchemeType, N int, moduli []uint64, t uint64) (id ParmsID) {

	h := blake3.New()

	word := make([]byte, 8)
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(word, v)
		// hash.Hash writes never fail
		_, _ = h.Write(word)
	}

	write(uint64(scheme))
	write(uint64(N))
	write(uint64(len(moduli)))
	for _, q := range moduli {
		write(q)
	}
	write(t)

	sum := h.Sum(nil)
	for i := range id {
		id[i] = binary.LittleEndian.Uint64(sum[i<<3:])
	}

	return
}

func (id ParmsID) writeTo(w buffer.Writer) (n int64, err error) {
	for _, v := range id {
		var inc int64
		if inc, err = buffer.WriteUint64(w, v); err != nil {
			return n + inc, err
		}
		n += inc
	}
	return
}

func (id *ParmsID) readFrom(r buffer.Reader) (n int64, err error) {
	for i := range id {
		var inc int64
		if inc, err = buffer.ReadUint64(r, &id[i]); err != nil {
			return n + inc, fmt.Errorf("cannot read ParmsID: %w", err)
		}
		n += inc
	}
	return
}

const parmsIDSize = 32
