package ring

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/go-cmp/cmp"

	"github.com/tuneinsight/bfvrns/utils/buffer"
)

// Poly is an RNS polynomial: one row of N coefficients per modulus.
// The rows are re-slices of a single contiguous buffer.
type Poly struct {
	Coeffs [][]uint64 // Dimension-2 slice of coefficients (re-slice of Buff)
	Buff   []uint64   // Dimension-1 slice of coefficients
}

// NewPoly creates a new polynomial with N coefficients set to zero and moduliCount moduli.
func NewPoly(N, moduliCount int) (pol Poly) {
	return polyFromBuffer(make([]uint64, N*moduliCount), N, moduliCount)
}

func polyFromBuffer(buff []uint64, N, moduliCount int) (pol Poly) {
	pol.Buff = buff[:N*moduliCount : N*moduliCount]
	pol.Coeffs = make([][]uint64, moduliCount)
	for i := 0; i < moduliCount; i++ {
		pol.Coeffs[i] = pol.Buff[i*N : (i+1)*N : (i+1)*N]
	}
	return
}

// N returns the number of coefficients of the polynomial.
func (pol Poly) N() int {
	if len(pol.Coeffs) == 0 {
		return 0
	}
	return len(pol.Coeffs[0])
}

// ModuliCount returns the number of RNS residues of the polynomial.
func (pol Poly) ModuliCount() int {
	return len(pol.Coeffs)
}

// At returns the residue of the polynomial modulo the i-th modulus.
// It panics with an explicit message if i is out of range.
func (pol Poly) At(i int) []uint64 {
	if i < 0 || i >= len(pol.Coeffs) {
		panic(fmt.Errorf("cannot At: residue index %d out of range [0, %d)", i, len(pol.Coeffs)))
	}
	return pol.Coeffs[i]
}

// Truncate returns a polynomial sharing the backing buffer of pol with only the first moduliCount residues.
func (pol Poly) Truncate(moduliCount int) Poly {
	if moduliCount > len(pol.Coeffs) {
		panic(fmt.Errorf("cannot Truncate: %d residues requested but polynomial has %d", moduliCount, len(pol.Coeffs)))
	}
	return Poly{Coeffs: pol.Coeffs[:moduliCount], Buff: pol.Buff[:pol.N()*moduliCount]}
}

// Zero sets all coefficients of the target polynomial to 0.
func (pol Poly) Zero() {
	for i := range pol.Buff {
		pol.Buff[i] = 0
	}
}

// IsZero returns true if all coefficients are zero.
func (pol Poly) IsZero() bool {
	for _, c := range pol.Buff {
		if c != 0 {
			return false
		}
	}
	return true
}

// CopyNew creates an exact copy of the target polynomial.
func (pol Poly) CopyNew() (p1 Poly) {
	p1 = NewPoly(pol.N(), pol.ModuliCount())
	copy(p1.Buff, pol.Buff)
	return
}

// Copy copies the coefficients of p1 on the target polynomial, up to the
// smallest number of residues of the two.
func (pol Poly) Copy(p1 Poly) {
	for i := 0; i < len(pol.Coeffs) && i < len(p1.Coeffs); i++ {
		copy(pol.Coeffs[i], p1.Coeffs[i])
	}
}

// Equal returns true if the receiver Poly is equal to the provided other Poly.
// This checks strict equality of the coefficients, not congruence.
func (pol Poly) Equal(other Poly) bool {
	return cmp.Equal(pol.Coeffs, other.Coeffs)
}

// BinarySize returns the serialized size of the object in bytes.
func (pol Poly) BinarySize() int {
	return 16 + len(pol.Buff)<<3
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo interface.
// The encoding is N and the number of residues as uint64, followed by the coefficients.
func (pol Poly) WriteTo(w io.Writer) (n int64, err error) {

	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.WriteInt(w, pol.N()); err != nil {
			return n + inc, err
		}

		n += inc

		if inc, err = buffer.WriteInt(w, pol.ModuliCount()); err != nil {
			return n + inc, err
		}

		n += inc

		inc, err = buffer.WriteUint64Slice(w, pol.Buff)

		return n + inc, err

	default:
		bw := bufio.NewWriter(w)
		if n, err = pol.WriteTo(bw); err != nil {
			return
		}
		return n, bw.Flush()
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the io.ReaderFrom interface.
// The receiver buffer is reused if it has the right shape.
func (pol *Poly) ReadFrom(r io.Reader) (n int64, err error) {

	switch r := r.(type) {
	case buffer.Reader:

		var inc int64
		var N, moduliCount int

		if inc, err = buffer.ReadInt(r, &N); err != nil {
			return n + inc, err
		}

		n += inc

		if inc, err = buffer.ReadInt(r, &moduliCount); err != nil {
			return n + inc, err
		}

		n += inc

		if N <= 0 || moduliCount <= 0 || N > 1<<20 || moduliCount > 1<<10 {
			return n, fmt.Errorf("cannot ReadFrom: invalid polynomial shape N=%d moduli=%d", N, moduliCount)
		}

		if pol.N() != N || pol.ModuliCount() != moduliCount {
			*pol = NewPoly(N, moduliCount)
		}

		inc, err = buffer.ReadUint64Slice(r, pol.Buff)

		return n + inc, err

	default:
		return pol.ReadFrom(bufio.NewReader(r))
	}
}

// PolyArray is an arena of polynomials with identical shape carved from a single
// [size][moduliCount][N] buffer. Polynomials of an array never alias each other.
type PolyArray struct {
	N           int
	ModuliCount int
	Buff        []uint64
	polys       []Poly
}

// NewPolyArray allocates a zeroed arena of size polynomials.
func NewPolyArray(size, N, moduliCount int) (pa *PolyArray) {
	pa = &PolyArray{N: N, ModuliCount: moduliCount}
	pa.carve(make([]uint64, size*N*moduliCount), size)
	return
}

func (pa *PolyArray) carve(buff []uint64, size int) {
	stride := pa.N * pa.ModuliCount
	pa.Buff = buff
	pa.polys = make([]Poly, size)
	for i := range pa.polys {
		pa.polys[i] = polyFromBuffer(buff[i*stride:(i+1)*stride], pa.N, pa.ModuliCount)
	}
}

// Size returns the number of polynomials of the array.
func (pa *PolyArray) Size() int {
	return len(pa.polys)
}

// Poly returns the i-th polynomial of the array.
// It panics with an explicit message if i is out of range.
func (pa *PolyArray) Poly(i int) Poly {
	if i < 0 || i >= len(pa.polys) {
		panic(fmt.Errorf("cannot Poly: index %d out of range [0, %d)", i, len(pa.polys)))
	}
	return pa.polys[i]
}

// Polys returns the polynomials of the array.
func (pa *PolyArray) Polys() []Poly {
	return pa.polys
}

// Resize changes the number of polynomials, keeping the leading ones and
// zero-filling the new ones. Growing reallocates the arena.
func (pa *PolyArray) Resize(size int) {

	if size == len(pa.polys) {
		return
	}

	stride := pa.N * pa.ModuliCount

	if size < len(pa.polys) {
		pa.Buff = pa.Buff[:size*stride]
		pa.polys = pa.polys[:size]
		return
	}

	buff := make([]uint64, size*stride)
	copy(buff, pa.Buff)
	pa.carve(buff, size)
}

// CopyNew returns a deep copy of the array.
func (pa *PolyArray) CopyNew() *PolyArray {
	cp := NewPolyArray(pa.Size(), pa.N, pa.ModuliCount)
	copy(cp.Buff, pa.Buff)
	return cp
}

// Equal returns true if both arrays have the same shape and coefficients.
func (pa *PolyArray) Equal(other *PolyArray) bool {
	return pa.N == other.N && pa.ModuliCount == other.ModuliCount && cmp.Equal(pa.Buff, other.Buff)
}
