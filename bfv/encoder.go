package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils"
)

// BatchEncoder encodes vectors of integers modulo t as plaintexts, one value per slot.
// The N slots form a matrix of two rows of N/2 slots: RotateRows rotates both rows
// cyclically and RotateColumns swaps them. It requires t to be a prime congruent to 1 modulo 2N.
type BatchEncoder struct {
	params   Parameters
	ntt      *ring.NTTTable
	indexMap []uint64
}

// NewBatchEncoder creates a new BatchEncoder for the parameters of ctx.
func NewBatchEncoder(ctx *Context) (ecd *BatchEncoder, err error) {

	params := ctx.params

	if err = checkScheme("NewBatchEncoder", params.Scheme()); err != nil {
		return nil, err
	}

	if !params.UsingBatching() {
		return nil, fmt.Errorf("cannot NewBatchEncoder: %w: plaintext modulus %d does not support batching", ErrInvalidParameters, params.PlaintextModulus())
	}

	return &BatchEncoder{
		params:   params,
		ntt:      ctx.KeyContextData().PlainNTT,
		indexMap: batchIndexMap(params.LogN()),
	}, nil
}

// batchIndexMap maps the slot (i, j) of the 2 x N/2 matrix to the NTT index of the evaluation at
// psi^(+/-3^j), the first row taking the positive exponents.
func batchIndexMap(logN int) (indexMap []uint64) {

	N := uint64(1 << logN)
	m := N << 1
	half := N >> 1

	indexMap = make([]uint64, N)

	pos := uint64(1)
	for i := uint64(0); i < half; i++ {
		indexMap[i] = utils.BitReverse64((pos-1)>>1, logN)
		indexMap[half+i] = utils.BitReverse64((m-pos-1)>>1, logN)
		pos = (pos * ring.GaloisGen) & (m - 1)
	}

	return
}

// SlotCount returns the number of slots, which is N.
func (ecd *BatchEncoder) SlotCount() int {
	return len(ecd.indexMap)
}

// Encode encodes values, which must be smaller than t, on pt. Missing values are set to zero.
func (ecd *BatchEncoder) Encode(values []uint64, pt *Plaintext) (err error) {

	N := ecd.SlotCount()
	t := ecd.params.PlaintextModulus()

	if len(values) > N {
		return fmt.Errorf("cannot Encode: %w: %d values for %d slots", ErrInvalidSize, len(values), N)
	}

	coeffs := make([]uint64, N)

	for i, v := range values {
		if v >= t {
			return fmt.Errorf("cannot Encode: %w: value %d at index %d is not reduced modulo %d", ErrParameterMismatch, v, i, t)
		}
		coeffs[ecd.indexMap[i]] = v
	}

	ecd.ntt.Backward(coeffs)

	pt.Set(coeffs)
	pt.Scale = 1

	return
}

// EncodeNew encodes values on a new plaintext.
func (ecd *BatchEncoder) EncodeNew(values []uint64) (pt *Plaintext, err error) {
	pt = NewPlaintext(0)
	return pt, ecd.Encode(values, pt)
}

// EncodeInt encodes signed values of absolute value at most t/2 on pt.
func (ecd *BatchEncoder) EncodeInt(values []int64, pt *Plaintext) (err error) {

	reduced, err := reduceSigned("EncodeInt", values, ecd.params.PlaintextModulus())
	if err != nil {
		return
	}

	return ecd.Encode(reduced, pt)
}

// EncodeIntNew encodes signed values on a new plaintext.
func (ecd *BatchEncoder) EncodeIntNew(values []int64) (pt *Plaintext, err error) {
	pt = NewPlaintext(0)
	return pt, ecd.EncodeInt(values, pt)
}

// Decode writes on values the slots of pt, which must be in the coefficient domain.
func (ecd *BatchEncoder) Decode(pt *Plaintext, values []uint64) (err error) {

	N := ecd.SlotCount()

	if pt == nil || pt.IsNTTForm() {
		return fmt.Errorf("cannot Decode: %w: plaintext must be in the coefficient domain", ErrParameterMismatch)
	}

	if pt.CoeffCount() > N {
		return fmt.Errorf("cannot Decode: %w: plaintext has %d coefficients but N is %d", ErrInvalidSize, pt.CoeffCount(), N)
	}

	coeffs := make([]uint64, N)
	copy(coeffs, pt.Coeffs)

	ecd.ntt.Forward(coeffs)

	for i := 0; i < N && i < len(values); i++ {
		values[i] = coeffs[ecd.indexMap[i]]
	}

	return
}

// DecodeNew returns the N slots of pt.
func (ecd *BatchEncoder) DecodeNew(pt *Plaintext) (values []uint64, err error) {
	values = make([]uint64, ecd.SlotCount())
	return values, ecd.Decode(pt, values)
}

// DecodeInt writes on values the slots of pt mapped to (-t/2, t/2].
func (ecd *BatchEncoder) DecodeInt(pt *Plaintext, values []int64) (err error) {

	tmp := make([]uint64, ecd.SlotCount())
	if err = ecd.Decode(pt, tmp); err != nil {
		return
	}

	t := ecd.params.PlaintextModulus()
	for i := 0; i < len(tmp) && i < len(values); i++ {
		values[i] = centerModT(tmp[i], t)
	}

	return
}

// DecodeIntNew returns the N slots of pt mapped to (-t/2, t/2].
func (ecd *BatchEncoder) DecodeIntNew(pt *Plaintext) (values []int64, err error) {
	values = make([]int64, ecd.SlotCount())
	return values, ecd.DecodeInt(pt, values)
}

// EncodeCoeffs encodes signed values of absolute value at most t/2 as the coefficients of a
// new plaintext. It does not require batching.
func EncodeCoeffs(params Parameters, values []int64) (pt *Plaintext, err error) {

	if len(values) > params.N() {
		return nil, fmt.Errorf("cannot EncodeCoeffs: %w: %d values but N is %d", ErrInvalidSize, len(values), params.N())
	}

	reduced, err := reduceSigned("EncodeCoeffs", values, params.PlaintextModulus())
	if err != nil {
		return
	}

	return NewPlaintextFromValues(reduced), nil
}

// DecodeCoeffs returns the coefficients of a coefficient-domain pt mapped to (-t/2, t/2].
func DecodeCoeffs(params Parameters, pt *Plaintext) (values []int64, err error) {

	if pt == nil || pt.IsNTTForm() {
		return nil, fmt.Errorf("cannot DecodeCoeffs: %w: plaintext must be in the coefficient domain", ErrParameterMismatch)
	}

	t := params.PlaintextModulus()
	values = make([]int64, pt.CoeffCount())
	for i, c := range pt.Coeffs {
		values[i] = centerModT(c, t)
	}

	return
}

func reduceSigned(op string, values []int64, t uint64) (reduced []uint64, err error) {

	half := t >> 1
	reduced = make([]uint64, len(values))

	for i, v := range values {
		switch {
		case v >= 0 && uint64(v) <= half:
			reduced[i] = uint64(v)
		case v < 0 && uint64(-v) <= half:
			reduced[i] = t - uint64(-v)
		default:
			return nil, fmt.Errorf("cannot %s: %w: value %d at index %d exceeds t/2", op, ErrParameterMismatch, v, i)
		}
	}

	return
}

func centerModT(v, t uint64) int64 {
	if v > t>>1 {
		return -int64(t - v)
	}
	return int64(v)
}
