package bfv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"math/bits"

	"github.com/google/go-cmp/cmp"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils"
	"github.com/tuneinsight/bfvrns/utils/bignum"
	"github.com/tuneinsight/bfvrns/utils/buffer"
)

// MinLogN is the log2 of the smallest supported ring degree.
const MinLogN = 3

// MaxLogN is the log2 of the largest supported ring degree.
const MaxLogN = 17

// MaxModuliSize is the largest bit-length supported for the moduli of the chain.
const MaxModuliSize = ring.MaxModulusBits

// MaxPlaintextModulusBits is the largest bit-length of the plaintext modulus.
const MaxPlaintextModulusBits = 60

// ParametersLiteral is a literal representation of BFV parameters. It has public fields and
// is used to express unchecked user-defined parameters literally into Go programs.
// The NewParametersFromLiteral function is used to generate the actual checked parameters
// from the literal representation.
//
// Users must set the ring degree (LogN) and the coefficient modulus, by either setting
// Q to the desired primes, or LogQ to the desired prime sizes. The last prime of the
// list is the special prime of the key level. The plaintext modulus is set either with
// PlaintextModulus or with LogT, in which case a prime enabling batching is generated.
type ParametersLiteral struct {
	LogN             int
	Q                []uint64   `json:",omitempty"`
	LogQ             []int      `json:",omitempty"`
	PlaintextModulus uint64     `json:",omitempty"`
	LogT             int        `json:",omitempty"`
	Scheme           SchemeType `json:",omitempty"`
	NoiseSigma       float64    `json:",omitempty"`
	NoiseBound       int        `json:",omitempty"`
}

// Parameters represents a set of BFV parameters. Its fields are private and
// immutable. See ParametersLiteral for user-specified parameters.
type Parameters struct {
	logN   int
	q      []uint64
	t      uint64
	scheme SchemeType
	sigma  float64
	bound  int
}

// NewParameters instantiates a set of BFV parameters from the ring degree logN, the primes q
// (the last one being the special prime when there is more than one) and the plaintext modulus t.
// The error distribution has the default standard deviation and bound.
func NewParameters(logN int, q []uint64, t uint64) (params Parameters, err error) {
	return newParameters(logN, q, t, SchemeBFV, ring.DefaultSigma, ring.DefaultBound)
}

func newParameters(logN int, q []uint64, t uint64, scheme SchemeType, sigma float64, bound int) (params Parameters, err error) {

	if err = checkSizeParams(logN); err != nil {
		return Parameters{}, fmt.Errorf("cannot NewParameters: %w", err)
	}

	if err = checkModuli(logN, q); err != nil {
		return Parameters{}, fmt.Errorf("cannot NewParameters: %w", err)
	}

	switch scheme {
	case SchemeBFV, SchemeBGV:
		if err = checkPlaintextModulus(t, q); err != nil {
			return Parameters{}, fmt.Errorf("cannot NewParameters: %w", err)
		}
	case SchemeCKKS:
		if t != 0 {
			return Parameters{}, fmt.Errorf("cannot NewParameters: %w: plaintext modulus must be zero for CKKS", ErrInvalidParameters)
		}
	default:
		return Parameters{}, fmt.Errorf("cannot NewParameters: %w: unknown scheme", ErrInvalidParameters)
	}

	if sigma < 0 || bound < 0 {
		return Parameters{}, fmt.Errorf("cannot NewParameters: %w: negative noise parameters", ErrInvalidParameters)
	}

	return Parameters{
		logN:   logN,
		q:      append([]uint64{}, q...),
		t:      t,
		scheme: scheme,
		sigma:  sigma,
		bound:  bound,
	}, nil
}

// NewParametersFromLiteral instantiates a set of BFV parameters from a ParametersLiteral specification.
// It returns the empty parameters Parameters{} and a non-nil error if the specified parameters are invalid.
//
// If the moduli are specified through LogQ, the method generates distinct NTT-friendly primes of the given sizes.
// If LogT is set, the plaintext modulus is the largest LogT-bit prime congruent to 1 modulo 2N
// that is not one of the moduli. Unset noise parameters default to ring.DefaultSigma and ring.DefaultBound.
// An unset scheme defaults to SchemeBFV.
func NewParametersFromLiteral(pl ParametersLiteral) (params Parameters, err error) {

	if err = checkSizeParams(pl.LogN); err != nil {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
	}

	if pl.Q == nil && pl.LogQ == nil {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: %w: both Q and LogQ fields are empty", ErrInvalidParameters)
	}

	if pl.Q != nil && pl.LogQ != nil {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: %w: both Q and LogQ fields are set", ErrInvalidParameters)
	}

	if pl.PlaintextModulus != 0 && pl.LogT != 0 {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: %w: both PlaintextModulus and LogT fields are set", ErrInvalidParameters)
	}

	q := pl.Q
	if pl.LogQ != nil {
		if q, err = GenModuli(pl.LogN, pl.LogQ); err != nil {
			return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
		}
	}

	t := pl.PlaintextModulus
	if pl.LogT != 0 {
		if t, err = genPlaintextModulus(pl.LogN, pl.LogT, q); err != nil {
			return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: %w", err)
		}
	}

	scheme := pl.Scheme
	if scheme == SchemeNone {
		scheme = SchemeBFV
	}

	sigma, bound := pl.NoiseSigma, pl.NoiseBound
	if sigma == 0 && bound == 0 {
		sigma, bound = ring.DefaultSigma, ring.DefaultBound
	}

	return newParameters(pl.LogN, q, t, scheme, sigma, bound)
}

// GenModuli generates distinct NTT-friendly primes for the ring degree 2^logN, with the given bit sizes.
func GenModuli(logN int, logQ []int) (q []uint64, err error) {

	for i, qi := range logQ {
		if qi < 2 || qi > MaxModuliSize {
			return nil, fmt.Errorf("%w: logQ[%d]=%d is not in [2, %d]", ErrInvalidParameters, i, qi, MaxModuliSize)
		}
	}

	// Extracts all the different primes bit size and maps their number
	primesBitLen := make(map[int]int)
	for _, qi := range logQ {
		primesBitLen[qi]++
	}

	// For each bit-size, finds that many primes
	primes := make(map[int][]uint64)
	for _, bitSize := range utils.GetSortedKeys(primesBitLen) {
		if primes[bitSize], err = ring.GenerateNTTPrimes(bitSize, 2<<logN, primesBitLen[bitSize]); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidParameters, err)
		}
	}

	// Assigns the primes to the moduli chain
	for _, qi := range logQ {
		q = append(q, primes[qi][0])
		primes[qi] = primes[qi][1:]
	}

	return
}

func genPlaintextModulus(logN, logT int, q []uint64) (t uint64, err error) {

	if logT < 2 || logT > MaxPlaintextModulusBits {
		return 0, fmt.Errorf("%w: LogT=%d is not in [2, %d]", ErrInvalidParameters, logT, MaxPlaintextModulusBits)
	}

	candidates, err := ring.GenerateNTTPrimes(logT, 2<<logN, len(q)+1)
	if err != nil && len(candidates) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidParameters, err)
	}

	for _, c := range candidates {
		if !utils.IsInSlice(c, q) {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: no %d-bit batching prime distinct from the moduli", ErrInvalidParameters, logT)
}

func checkSizeParams(logN int) error {
	if logN > MaxLogN {
		return fmt.Errorf("%w: logN=%d is larger than MaxLogN=%d", ErrInvalidParameters, logN, MaxLogN)
	}
	if logN < MinLogN {
		return fmt.Errorf("%w: logN=%d is smaller than MinLogN=%d", ErrInvalidParameters, logN, MinLogN)
	}
	return nil
}

func checkModuli(logN int, q []uint64) error {

	if len(q) == 0 {
		return fmt.Errorf("%w: moduli list is empty", ErrInvalidParameters)
	}

	if len(q) > 64 {
		return fmt.Errorf("%w: too many moduli (%d > 64)", ErrInvalidParameters, len(q))
	}

	if !utils.AllDistinct(q) {
		return fmt.Errorf("%w: moduli are not distinct", ErrInvalidParameters)
	}

	nthRoot := uint64(2) << logN

	for i, qi := range q {

		if bits.Len64(qi) > MaxModuliSize {
			return fmt.Errorf("%w: q[%d]=%d is larger than %d bits", ErrInvalidParameters, i, qi, MaxModuliSize)
		}

		if !ring.IsPrime(qi) {
			return fmt.Errorf("%w: q[%d]=%d is not a prime", ErrInvalidParameters, i, qi)
		}

		if qi%nthRoot != 1 {
			return fmt.Errorf("%w: q[%d]=%d is not congruent to 1 modulo 2N", ErrInvalidParameters, i, qi)
		}
	}

	return nil
}

func checkPlaintextModulus(t uint64, q []uint64) error {

	if t < 2 || bits.Len64(t) > MaxPlaintextModulusBits {
		return fmt.Errorf("%w: plaintext modulus %d is not in [2, 2^%d)", ErrInvalidParameters, t, MaxPlaintextModulusBits)
	}

	for i, qi := range q {
		if utils.GCD(qi, t) != 1 {
			return fmt.Errorf("%w: plaintext modulus %d is not coprime with q[%d]=%d", ErrInvalidParameters, t, i, qi)
		}
	}

	return nil
}

// ParametersLiteral returns the ParametersLiteral of the target Parameters.
func (p Parameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{
		LogN:             p.logN,
		Q:                p.Q(),
		PlaintextModulus: p.t,
		Scheme:           p.scheme,
		NoiseSigma:       p.sigma,
		NoiseBound:       p.bound,
	}
}

// N returns the ring degree.
func (p Parameters) N() int {
	return 1 << p.logN
}

// LogN returns the log2 of the ring degree.
func (p Parameters) LogN() int {
	return p.logN
}

// Q returns a copy of the primes of the key level.
func (p Parameters) Q() []uint64 {
	return append([]uint64{}, p.q...)
}

// QCount returns the number of primes of the key level.
func (p Parameters) QCount() int {
	return len(p.q)
}

// QBigInt returns the product of the primes of the key level.
func (p Parameters) QBigInt() *big.Int {
	Q := big.NewInt(1)
	for _, qi := range p.q {
		Q.Mul(Q, new(big.Int).SetUint64(qi))
	}
	return Q
}

// LogQ returns the log2 of the product of the primes of the key level.
func (p Parameters) LogQ() float64 {
	return bignum.Log2(p.QBigInt())
}

// PlaintextModulus returns the plaintext modulus t.
func (p Parameters) PlaintextModulus() uint64 {
	return p.t
}

// Scheme returns the scheme of the parameters.
func (p Parameters) Scheme() SchemeType {
	return p.scheme
}

// NoiseSigma returns the standard deviation of the error distribution.
func (p Parameters) NoiseSigma() float64 {
	return p.sigma
}

// NoiseBound returns the truncation bound of the error distribution.
func (p Parameters) NoiseBound() int {
	return p.bound
}

// SlotCount returns the number of plaintext slots when batching is enabled.
func (p Parameters) SlotCount() int {
	if !p.UsingBatching() {
		return 0
	}
	return p.N()
}

// UsingBatching returns true if the plaintext modulus is a prime congruent to 1 modulo 2N.
func (p Parameters) UsingBatching() bool {
	return p.t > 1 && ring.IsPrime(p.t) && p.t%(uint64(2)<<p.logN) == 1
}

// UsingFastPlainLift returns true if every prime is larger than the plaintext modulus,
// in which case plaintext coefficients are lifted without reduction.
func (p Parameters) UsingFastPlainLift() bool {
	for _, qi := range p.q {
		if qi <= p.t {
			return false
		}
	}
	return true
}

// UsingKeySwitching returns true if there is more than one prime, the last one
// being reserved to key switching.
func (p Parameters) UsingKeySwitching() bool {
	return len(p.q) > 1
}

// UsingDescendingModulusChain returns true if the data primes are in strictly decreasing order.
func (p Parameters) UsingDescendingModulusChain() bool {
	data := p.q
	if p.UsingKeySwitching() {
		data = p.q[:len(p.q)-1]
	}
	for i := 1; i < len(data); i++ {
		if data[i] >= data[i-1] {
			return false
		}
	}
	return true
}

// Equal checks two Parameter structs for equality.
func (p Parameters) Equal(other *Parameters) (res bool) {
	res = p.logN == other.logN
	res = res && cmp.Equal(p.q, other.q)
	res = res && p.t == other.t
	res = res && p.scheme == other.scheme
	res = res && p.sigma == other.sigma
	res = res && p.bound == other.bound
	return
}

// MarshalBinary returns a []byte representation of the parameter set.
// This representation corresponds to the MarshalJSON representation.
func (p Parameters) MarshalBinary() ([]byte, error) {
	buf := buffer.NewBufferSize(p.BinarySize())
	_, err := p.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes on the target Parameters.
func (p *Parameters) UnmarshalBinary(data []byte) (err error) {
	_, err = p.ReadFrom(buffer.NewBuffer(data))
	return
}

// MarshalJSON returns a JSON representation of this parameter set. See Marshal from the encoding/json package.
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ParametersLiteral())
}

// UnmarshalJSON reads a JSON representation of a parameter set into the receiver Parameter. See Unmarshal from the encoding/json package.
func (p *Parameters) UnmarshalJSON(data []byte) (err error) {
	var params ParametersLiteral
	if err = json.Unmarshal(data, &params); err != nil {
		return err
	}
	*p, err = NewParametersFromLiteral(params)
	return
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
func (p Parameters) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		bytes, err := p.MarshalJSON()
		if err != nil {
			return 0, err
		}

		if n, err = buffer.WriteUint32(w, uint32(len(bytes))); err != nil {
			return n, fmt.Errorf("buffer.WriteUint32: %w", err)
		}

		var inc int64
		if inc, err = buffer.WriteUint8Slice(w, bytes); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteUint8Slice: %w", err)
		}

		n += inc

		return n, w.Flush()
	default:
		return p.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (p *Parameters) ReadFrom(r io.Reader) (n int64, err error) {

	switch r := r.(type) {
	case buffer.Reader:

		var size uint32
		if n, err = buffer.ReadUint32(r, &size); err != nil {
			return n, fmt.Errorf("buffer.ReadUint32: %w", err)
		}

		bytes := make([]byte, size)

		var inc int64
		if inc, err = buffer.ReadUint8Slice(r, bytes); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadUint8Slice: %w", err)
		}

		return n + inc, p.UnmarshalJSON(bytes)

	default:
		return p.ReadFrom(bufio.NewReader(r))
	}
}

// BinarySize returns size in bytes of the marshalled Parameters object.
func (p Parameters) BinarySize() int {
	b, _ := p.MarshalJSON()
	return 4 + len(b)
}
