package bfv

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/tuneinsight/bfvrns/ring"
)

// ContextData stores the precomputed objects of one level of the modulus switching chain.
// It is immutable after creation and can be shared between goroutines.
type ContextData struct {
	ParmsID    ParmsID
	ChainIndex int

	Ring       *ring.Ring
	RNSTool    *ring.RNSTool
	GaloisTool *ring.GaloisTool
	PlainNTT   *ring.NTTTable

	PlainModulus uint64

	// TotalCoeffModulus is the product Q of the primes of the level.
	TotalCoeffModulus *big.Int
	// UpperHalfThreshold is (Q+1)/2.
	UpperHalfThreshold *big.Int
	// CoeffDivPlainModulus is floor(Q/t) mod q_i.
	CoeffDivPlainModulus []uint64
	// CoeffModPlainModulus is Q mod t.
	CoeffModPlainModulus uint64
	// PlainUpperHalfThreshold is (t+1)/2.
	PlainUpperHalfThreshold uint64
	// PlainUpperHalfIncrement is q_i - (t mod q_i).
	PlainUpperHalfIncrement []uint64

	params Parameters
	prev   *ContextData
	next   *ContextData
}

// Parameters returns the parameters the chain was created from.
func (cd *ContextData) Parameters() Parameters {
	return cd.params
}

// N returns the ring degree.
func (cd *ContextData) N() int {
	return cd.Ring.N
}

// ModuliCount returns the number of primes of the level.
func (cd *ContextData) ModuliCount() int {
	return cd.Ring.ModuliCount()
}

// Moduli returns the primes of the level.
func (cd *ContextData) Moduli() []uint64 {
	return cd.Ring.Moduli()
}

// Prev returns the level with one more prime, or nil for the key level.
func (cd *ContextData) Prev() *ContextData {
	return cd.prev
}

// Next returns the level with one less prime, or nil for the last level.
func (cd *ContextData) Next() *ContextData {
	return cd.next
}

// Context holds the modulus switching chain of a parameter set. The chain is ordered from the
// key level, which holds all the primes, to the last level, which holds a single prime. Each
// level is identified by its ParmsID.
type Context struct {
	params Parameters

	galoisTool *ring.GaloisTool

	data map[ParmsID]*ContextData

	keyParmsID   ParmsID
	firstParmsID ParmsID
	lastParmsID  ParmsID
}

// NewContext creates the modulus switching chain of the given parameters.
func NewContext(params Parameters) (ctx *Context, err error) {

	if params.N() == 0 || params.QCount() == 0 {
		return nil, fmt.Errorf("cannot NewContext: %w: empty parameters", ErrInvalidParameters)
	}

	ctx = &Context{params: params, data: make(map[ParmsID]*ContextData)}

	if ctx.galoisTool, err = ring.NewGaloisTool(params.LogN()); err != nil {
		return nil, fmt.Errorf("cannot NewContext: %w: %s", ErrInvalidParameters, err)
	}

	var keyRing *ring.Ring
	if keyRing, err = ring.NewRing(params.N(), params.Q()); err != nil {
		return nil, fmt.Errorf("cannot NewContext: %w: %s", ErrInvalidParameters, err)
	}

	var plainNTT *ring.NTTTable
	if params.UsingBatching() {
		if plainNTT, err = ring.NewNTTTable(params.N(), params.PlaintextModulus()); err != nil {
			return nil, fmt.Errorf("cannot NewContext: %w: %s", ErrInvalidParameters, err)
		}
	}

	var prev *ContextData
	for k := params.QCount(); k > 0; k-- {

		var cd *ContextData
		if cd, err = ctx.newContextData(keyRing, k, plainNTT); err != nil {
			return nil, fmt.Errorf("cannot NewContext: %w", err)
		}

		if _, ok := ctx.data[cd.ParmsID]; ok {
			return nil, fmt.Errorf("cannot NewContext: %w: duplicate ParmsID", ErrInvalidParameters)
		}

		cd.prev = prev
		if prev != nil {
			prev.next = cd
		}

		ctx.data[cd.ParmsID] = cd
		prev = cd

		// A single prime is both the key level and the only data level.
		if k == params.QCount() {
			ctx.keyParmsID = cd.ParmsID
		}

		if k == params.QCount()-1 || params.QCount() == 1 {
			ctx.firstParmsID = cd.ParmsID
		}

		ctx.lastParmsID = cd.ParmsID
	}

	return
}

func (ctx *Context) newContextData(keyRing *ring.Ring, k int, plainNTT *ring.NTTTable) (cd *ContextData, err error) {

	params := ctx.params
	t := params.PlaintextModulus()

	cd = &ContextData{
		ChainIndex:   k - 1,
		GaloisTool:   ctx.galoisTool,
		PlainModulus: t,
		PlainNTT:     plainNTT,
		params:       params,
	}

	if cd.Ring, err = keyRing.Truncate(k); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParameters, err)
	}

	moduli := cd.Ring.Moduli()

	cd.ParmsID = computeParmsID(params.Scheme(), params.N(), moduli, t)

	cd.TotalCoeffModulus = cd.Ring.Modulus()
	cd.UpperHalfThreshold = new(big.Int).Add(cd.TotalCoeffModulus, big.NewInt(1))
	cd.UpperHalfThreshold.Rsh(cd.UpperHalfThreshold, 1)

	if t == 0 {
		return
	}

	if cd.RNSTool, err = ring.NewRNSTool(cd.Ring, t); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParameters, err)
	}

	bigT := new(big.Int).SetUint64(t)
	quo, rem := new(big.Int).QuoRem(cd.TotalCoeffModulus, bigT, new(big.Int))

	cd.CoeffModPlainModulus = rem.Uint64()
	cd.PlainUpperHalfThreshold = (t + 1) >> 1

	cd.CoeffDivPlainModulus = make([]uint64, k)
	cd.PlainUpperHalfIncrement = make([]uint64, k)

	tmp := new(big.Int)
	for i, qi := range moduli {
		cd.CoeffDivPlainModulus[i] = tmp.Mod(quo, new(big.Int).SetUint64(qi)).Uint64()
		cd.PlainUpperHalfIncrement[i] = qi - t%qi
	}

	return
}

// Parameters returns the parameters of the context.
func (ctx *Context) Parameters() Parameters {
	return ctx.params
}

// GaloisTool returns the GaloisTool shared by all the levels.
func (ctx *Context) GaloisTool() *ring.GaloisTool {
	return ctx.galoisTool
}

// GetContextData returns the level of the given ParmsID, or nil if it is not part of the chain.
func (ctx *Context) GetContextData(id ParmsID) *ContextData {
	return ctx.data[id]
}

// KeyContextData returns the level holding all the primes.
func (ctx *Context) KeyContextData() *ContextData {
	return ctx.data[ctx.keyParmsID]
}

// FirstContextData returns the first data level.
func (ctx *Context) FirstContextData() *ContextData {
	return ctx.data[ctx.firstParmsID]
}

// LastContextData returns the level holding a single prime.
func (ctx *Context) LastContextData() *ContextData {
	return ctx.data[ctx.lastParmsID]
}

// KeyParmsID returns the ParmsID of the key level.
func (ctx *Context) KeyParmsID() ParmsID {
	return ctx.keyParmsID
}

// FirstParmsID returns the ParmsID of the first data level.
func (ctx *Context) FirstParmsID() ParmsID {
	return ctx.firstParmsID
}

// LastParmsID returns the ParmsID of the last level.
func (ctx *Context) LastParmsID() ParmsID {
	return ctx.lastParmsID
}

// UsingKeySwitching returns true if the key level holds a special prime.
func (ctx *Context) UsingKeySwitching() bool {
	return ctx.keyParmsID != ctx.firstParmsID
}

// ChainLength returns the number of data levels.
func (ctx *Context) ChainLength() int {
	return ctx.FirstContextData().ChainIndex + 1
}

// isDataLevel returns true if id is a level of the chain other than the key level,
// or the key level when key switching is disabled.
func (ctx *Context) isDataLevel(id ParmsID) bool {
	cd := ctx.data[id]
	return cd != nil && cd.ChainIndex <= ctx.FirstContextData().ChainIndex
}

// contextDataOf returns the level of id, wrapping ErrParameterMismatch if it is unknown.
func (ctx *Context) contextDataOf(op string, id ParmsID) (*ContextData, error) {
	cd := ctx.data[id]
	if cd == nil {
		return nil, fmt.Errorf("cannot %s: %w: ParmsID %s is not part of the chain", op, ErrParameterMismatch, id)
	}
	return cd, nil
}

// checkBufferSize returns ErrInvalidSize if size*N*k does not fit in 32 bits.
func checkBufferSize(op string, size, N, k int) error {
	hi, lo := bits.Mul64(uint64(size), uint64(N)*uint64(k))
	if hi != 0 || lo >= 1<<32 {
		return fmt.Errorf("cannot %s: %w: %d polynomials of %d x %d words exceed 2^32 words", op, ErrInvalidSize, size, k, N)
	}
	return nil
}
