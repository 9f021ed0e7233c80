package bfv

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils/buffer"
	"github.com/tuneinsight/bfvrns/utils/sampling"
)

// Ciphertext is a BFV ciphertext: Size() polynomials over the primes of the level
// designated by ParmsID, stored in a single arena.
//
// CorrectionFactor is a scalar modulo t by which the encrypted message is multiplied;
// it is 1 for fresh ciphertexts and removed at decryption. A non-nil Seed marks a
// compact ciphertext whose second polynomial is re-expanded from the seed when loaded.
type Ciphertext struct {
	Value            *ring.PolyArray
	ParmsID          ParmsID
	IsNTTForm        bool
	Scale            float64
	CorrectionFactor uint64
	Seed             []byte
}

// NewCiphertext allocates a zero ciphertext of the given size at the level id.
func NewCiphertext(ctx *Context, id ParmsID, size int) (ct *Ciphertext, err error) {

	cd, err := ctx.contextDataOf("NewCiphertext", id)
	if err != nil {
		return nil, err
	}

	return newCiphertext(cd, size)
}

func newCiphertext(cd *ContextData, size int) (ct *Ciphertext, err error) {

	if size < CiphertextSizeMin || size > CiphertextSizeMax {
		return nil, fmt.Errorf("cannot NewCiphertext: %w: size %d not in [%d, %d]", ErrInvalidSize, size, CiphertextSizeMin, CiphertextSizeMax)
	}

	if err = checkBufferSize("NewCiphertext", size, cd.N(), cd.ModuliCount()); err != nil {
		return
	}

	return &Ciphertext{
		Value:            ring.NewPolyArray(size, cd.N(), cd.ModuliCount()),
		ParmsID:          cd.ParmsID,
		Scale:            1,
		CorrectionFactor: 1,
	}, nil
}

// Size returns the number of polynomials of the ciphertext.
func (ct *Ciphertext) Size() int {
	return ct.Value.Size()
}

// N returns the ring degree.
func (ct *Ciphertext) N() int {
	return ct.Value.N
}

// ModuliCount returns the number of primes of the level of the ciphertext.
func (ct *Ciphertext) ModuliCount() int {
	return ct.Value.ModuliCount
}

// Poly returns the i-th polynomial of the ciphertext.
// It panics with an explicit message if i is out of range.
func (ct *Ciphertext) Poly(i int) ring.Poly {
	return ct.Value.Poly(i)
}

// Resize changes the number of polynomials of the ciphertext, keeping the leading ones
// and zero-filling the new ones.
func (ct *Ciphertext) Resize(size int) (err error) {

	if size < CiphertextSizeMin || size > CiphertextSizeMax {
		return fmt.Errorf("cannot Resize: %w: size %d not in [%d, %d]", ErrInvalidSize, size, CiphertextSizeMin, CiphertextSizeMax)
	}

	if err = checkBufferSize("Resize", size, ct.N(), ct.ModuliCount()); err != nil {
		return
	}

	ct.Value.Resize(size)

	return
}

// IsTransparent returns true if the ciphertext decrypts to the same value
// under every secret key, that is, if all the polynomials but the first are zero.
func (ct *Ciphertext) IsTransparent() bool {
	if ct.Size() < 2 {
		return true
	}
	for _, p := range ct.Value.Polys()[1:] {
		if !p.IsZero() {
			return false
		}
	}
	return true
}

// CopyNew returns a deep copy of the ciphertext.
func (ct *Ciphertext) CopyNew() *Ciphertext {
	cp := &Ciphertext{
		Value:            ct.Value.CopyNew(),
		ParmsID:          ct.ParmsID,
		IsNTTForm:        ct.IsNTTForm,
		Scale:            ct.Scale,
		CorrectionFactor: ct.CorrectionFactor,
	}
	if ct.Seed != nil {
		cp.Seed = append([]byte{}, ct.Seed...)
	}
	return cp
}

// Copy copies other on the receiver, reallocating the receiver if the shapes differ.
func (ct *Ciphertext) Copy(other *Ciphertext) {

	if ct == other {
		return
	}

	if ct.Value == nil || ct.Value.N != other.Value.N || ct.Value.ModuliCount != other.Value.ModuliCount || ct.Size() != other.Size() {
		ct.Value = other.Value.CopyNew()
	} else {
		copy(ct.Value.Buff, other.Value.Buff)
	}

	ct.copyMetadata(other)

	if other.Seed != nil {
		ct.Seed = append([]byte{}, other.Seed...)
	}
}

// copyMetadata copies the metadata of other, except its seed.
func (ct *Ciphertext) copyMetadata(other *Ciphertext) {
	ct.ParmsID = other.ParmsID
	ct.IsNTTForm = other.IsNTTForm
	ct.Scale = other.Scale
	ct.CorrectionFactor = other.CorrectionFactor
	ct.Seed = nil
}

// Equal returns true if both ciphertexts have the same metadata and polynomials.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	return ct.ParmsID == other.ParmsID &&
		ct.IsNTTForm == other.IsNTTForm &&
		ct.Scale == other.Scale &&
		ct.CorrectionFactor == other.CorrectionFactor &&
		ct.Value.Equal(other.Value)
}

// BinarySize returns the serialized size of the object in bytes.
// A seeded ciphertext of size 2 is serialized without its second polynomial.
func (ct *Ciphertext) BinarySize() (size int) {
	// ParmsID, Scale, IsNTTForm, CorrectionFactor, size, N, moduli count and seeded flag
	size = parmsIDSize + 8 + 1 + 4*8 + 1
	if ct.isCompact() {
		return size + sampling.SeedSize + len(ct.Poly(0).Buff)<<3
	}
	return size + len(ct.Value.Buff)<<3
}

func (ct *Ciphertext) isCompact() bool {
	return len(ct.Seed) == sampling.SeedSize && ct.Size() == 2
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
func (ct *Ciphertext) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = ct.ParmsID.writeTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.WriteFloat64(w, ct.Scale); err != nil {
			return n + inc, err
		}
		n += inc

		var nttFlag uint8
		if ct.IsNTTForm {
			nttFlag = 1
		}

		if inc, err = buffer.WriteUint8(w, nttFlag); err != nil {
			return n + inc, err
		}
		n += inc

		for _, v := range []int{int(ct.CorrectionFactor), ct.Size(), ct.N(), ct.ModuliCount()} {
			if inc, err = buffer.WriteInt(w, v); err != nil {
				return n + inc, err
			}
			n += inc
		}

		if ct.isCompact() {

			if inc, err = buffer.WriteUint8(w, 1); err != nil {
				return n + inc, err
			}
			n += inc

			if inc, err = buffer.WriteUint8Slice(w, ct.Seed); err != nil {
				return n + inc, err
			}
			n += inc

			if inc, err = buffer.WriteUint64Slice(w, ct.Poly(0).Buff); err != nil {
				return n + inc, err
			}
			n += inc

		} else {

			if inc, err = buffer.WriteUint8(w, 0); err != nil {
				return n + inc, err
			}
			n += inc

			if inc, err = buffer.WriteUint64Slice(w, ct.Value.Buff); err != nil {
				return n + inc, err
			}
			n += inc
		}

		return n, w.Flush()

	default:
		return ct.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
//
// The second polynomial of a seeded ciphertext is left at zero and the seed is stored
// in ct.Seed: use LoadCiphertext to re-expand it.
func (ct *Ciphertext) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		if inc, err = ct.ParmsID.readFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.ReadFloat64(r, &ct.Scale); err != nil {
			return n + inc, err
		}
		n += inc

		var nttFlag uint8
		if inc, err = buffer.ReadUint8(r, &nttFlag); err != nil {
			return n + inc, err
		}
		n += inc
		ct.IsNTTForm = nttFlag == 1

		var factor, size, N, moduliCount int
		for _, v := range []*int{&factor, &size, &N, &moduliCount} {
			if inc, err = buffer.ReadInt(r, v); err != nil {
				return n + inc, err
			}
			n += inc
		}

		if size < CiphertextSizeMin || size > CiphertextSizeMax || N <= 0 || moduliCount <= 0 {
			return n, fmt.Errorf("cannot ReadFrom: %w: invalid ciphertext shape size=%d N=%d moduli=%d", ErrInvalidSize, size, N, moduliCount)
		}

		if err = checkBufferSize("ReadFrom", size, N, moduliCount); err != nil {
			return n, err
		}

		ct.CorrectionFactor = uint64(factor)

		if ct.Value == nil || ct.Value.N != N || ct.Value.ModuliCount != moduliCount || ct.Size() != size {
			ct.Value = ring.NewPolyArray(size, N, moduliCount)
		}

		var seeded uint8
		if inc, err = buffer.ReadUint8(r, &seeded); err != nil {
			return n + inc, err
		}
		n += inc

		if seeded == 1 {

			if size != 2 {
				return n, fmt.Errorf("cannot ReadFrom: %w: seeded ciphertext of size %d", ErrInvalidSize, size)
			}

			ct.Seed = make([]byte, sampling.SeedSize)
			if inc, err = buffer.ReadUint8Slice(r, ct.Seed); err != nil {
				return n + inc, err
			}
			n += inc

			ct.Poly(1).Zero()

			inc, err = buffer.ReadUint64Slice(r, ct.Poly(0).Buff)

			return n + inc, err
		}

		ct.Seed = nil

		inc, err = buffer.ReadUint64Slice(r, ct.Value.Buff)

		return n + inc, err

	default:
		return ct.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (ct *Ciphertext) MarshalBinary() (data []byte, err error) {
	buf := buffer.NewBufferSize(ct.BinarySize())
	_, err = ct.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary on the object.
func (ct *Ciphertext) UnmarshalBinary(p []byte) (err error) {
	_, err = ct.ReadFrom(buffer.NewBuffer(p))
	return
}
