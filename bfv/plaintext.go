package bfv

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/go-cmp/cmp"

	"github.com/tuneinsight/bfvrns/utils/buffer"
)

// Plaintext is a polynomial with coefficients modulo the plaintext modulus t.
// A plaintext in NTT form is bound to a level of the chain through its ParmsID and
// stores one row of N NTT residues per prime of that level.
type Plaintext struct {
	Coeffs  []uint64
	ParmsID ParmsID
	Scale   float64
}

// NewPlaintext allocates a zero plaintext of coeffCount coefficients.
func NewPlaintext(coeffCount int) (pt *Plaintext) {
	return &Plaintext{Coeffs: make([]uint64, coeffCount), Scale: 1}
}

// NewPlaintextFromValues allocates a plaintext holding a copy of the given coefficients.
func NewPlaintextFromValues(values []uint64) (pt *Plaintext) {
	pt = NewPlaintext(len(values))
	copy(pt.Coeffs, values)
	return
}

// CoeffCount returns the number of stored coefficients.
func (pt *Plaintext) CoeffCount() int {
	return len(pt.Coeffs)
}

// Resize changes the number of coefficients, keeping the leading ones
// and zero-filling the new ones.
func (pt *Plaintext) Resize(coeffCount int) {
	if coeffCount <= cap(pt.Coeffs) {
		old := len(pt.Coeffs)
		pt.Coeffs = pt.Coeffs[:coeffCount]
		for i := old; i < coeffCount; i++ {
			pt.Coeffs[i] = 0
		}
		return
	}
	coeffs := make([]uint64, coeffCount)
	copy(coeffs, pt.Coeffs)
	pt.Coeffs = coeffs
}

// Set replaces the coefficients of the plaintext by values and resets its ParmsID.
func (pt *Plaintext) Set(values []uint64) {
	pt.Resize(len(values))
	copy(pt.Coeffs, values)
	pt.ParmsID = ParmsIDZero
}

// SetZero sets all the coefficients to zero.
func (pt *Plaintext) SetZero() {
	for i := range pt.Coeffs {
		pt.Coeffs[i] = 0
	}
}

// At returns the i-th coefficient.
func (pt *Plaintext) At(i int) uint64 {
	if i < 0 || i >= len(pt.Coeffs) {
		panic(fmt.Errorf("cannot At: coefficient index %d out of range [0, %d)", i, len(pt.Coeffs)))
	}
	return pt.Coeffs[i]
}

// SignificantCoeffCount returns the index of the last non-zero coefficient plus one.
func (pt *Plaintext) SignificantCoeffCount() int {
	for i := len(pt.Coeffs) - 1; i >= 0; i-- {
		if pt.Coeffs[i] != 0 {
			return i + 1
		}
	}
	return 0
}

// NonZeroCoeffCount returns the number of non-zero coefficients.
func (pt *Plaintext) NonZeroCoeffCount() (count int) {
	for _, c := range pt.Coeffs {
		if c != 0 {
			count++
		}
	}
	return
}

// IsZero returns true if all the coefficients are zero.
func (pt *Plaintext) IsZero() bool {
	return pt.NonZeroCoeffCount() == 0
}

// IsNTTForm returns true if the plaintext is bound to a level in NTT form.
func (pt *Plaintext) IsNTTForm() bool {
	return !pt.ParmsID.IsZero()
}

// CopyNew returns a deep copy of the plaintext.
func (pt *Plaintext) CopyNew() *Plaintext {
	return &Plaintext{Coeffs: append([]uint64{}, pt.Coeffs...), ParmsID: pt.ParmsID, Scale: pt.Scale}
}

// Copy copies other on the receiver.
func (pt *Plaintext) Copy(other *Plaintext) {
	if pt == other {
		return
	}
	pt.Set(other.Coeffs)
	pt.ParmsID = other.ParmsID
	pt.Scale = other.Scale
}

// Equal returns true if both plaintexts have the same metadata and coefficients.
func (pt *Plaintext) Equal(other *Plaintext) bool {
	return pt.ParmsID == other.ParmsID && pt.Scale == other.Scale && cmp.Equal(pt.Coeffs, other.Coeffs)
}

// BinarySize returns the serialized size of the object in bytes.
func (pt *Plaintext) BinarySize() int {
	return parmsIDSize + 8 + 8 + len(pt.Coeffs)<<3
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
func (pt *Plaintext) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = pt.ParmsID.writeTo(w); err != nil {
			return n + inc, err
		}

		n += inc

		if inc, err = buffer.WriteFloat64(w, pt.Scale); err != nil {
			return n + inc, err
		}

		n += inc

		if inc, err = buffer.WriteInt(w, len(pt.Coeffs)); err != nil {
			return n + inc, err
		}

		n += inc

		if inc, err = buffer.WriteUint64Slice(w, pt.Coeffs); err != nil {
			return n + inc, err
		}

		n += inc

		return n, w.Flush()

	default:
		return pt.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (pt *Plaintext) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		if inc, err = pt.ParmsID.readFrom(r); err != nil {
			return n + inc, err
		}

		n += inc

		if inc, err = buffer.ReadFloat64(r, &pt.Scale); err != nil {
			return n + inc, err
		}

		n += inc

		var size int
		if inc, err = buffer.ReadInt(r, &size); err != nil {
			return n + inc, err
		}

		n += inc

		if size < 0 || size > 1<<32 {
			return n, fmt.Errorf("cannot ReadFrom: %w: plaintext of %d coefficients", ErrInvalidSize, size)
		}

		pt.Coeffs = make([]uint64, size)

		inc, err = buffer.ReadUint64Slice(r, pt.Coeffs)

		return n + inc, err

	default:
		return pt.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (pt *Plaintext) MarshalBinary() (data []byte, err error) {
	buf := buffer.NewBufferSize(pt.BinarySize())
	_, err = pt.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary on the object.
func (pt *Plaintext) UnmarshalBinary(p []byte) (err error) {
	_, err = pt.ReadFrom(buffer.NewBuffer(p))
	return
}
