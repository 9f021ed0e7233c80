package ring

import (
	"fmt"
	"sync"

	"github.com/tuneinsight/bfvrns/utils"
)

// GaloisGen is the generator of the cyclic group of rotations of the rows of a batched plaintext.
const GaloisGen uint64 = 3

// GaloisTool computes Galois elements and applies the automorphisms X -> X^galEl
// of Z_Q[X]/(X^N+1) in both the coefficient and the NTT domain.
// The NTT-domain permutation tables are built on first use and cached.
type GaloisTool struct {
	N    int
	LogN int

	mu         sync.Mutex
	permTables map[uint64][]uint32
}

// NewGaloisTool creates a new GaloisTool for the ring degree N = 2^logN.
func NewGaloisTool(logN int) (*GaloisTool, error) {
	if logN < MinLogN || logN > MaxLogN {
		return nil, fmt.Errorf("cannot NewGaloisTool: logN must be in [%d, %d] but is %d", MinLogN, MaxLogN, logN)
	}
	return &GaloisTool{N: 1 << logN, LogN: logN, permTables: make(map[uint64][]uint32)}, nil
}

// IsValidGaloisElement returns true if galEl is an odd integer smaller than 2N.
func (gt *GaloisTool) IsValidGaloisElement(galEl uint64) bool {
	return galEl&1 == 1 && galEl < uint64(gt.N<<1)
}

// EltFromStep returns the Galois element of a cyclic rotation of the rows by step positions.
// Positive steps rotate left and negative steps rotate right. The step 0 maps
// to the element 2N-1, which swaps the two rows.
func (gt *GaloisTool) EltFromStep(step int) (galEl uint64, err error) {

	N := gt.N
	m := uint64(N << 1)

	if step == 0 {
		return m - 1, nil
	}

	if step >= N>>1 || step <= -(N>>1) {
		return 0, fmt.Errorf("cannot EltFromStep: step %d out of range (-%d, %d)", step, N>>1, N>>1)
	}

	pos := uint64(step)
	if step < 0 {
		pos = uint64(N>>1 + step)
	}

	return ModExp(GaloisGen, pos, m), nil
}

// EltsFromSteps returns the Galois elements of the given steps.
func (gt *GaloisTool) EltsFromSteps(steps []int) (galEls []uint64, err error) {
	galEls = make([]uint64, len(steps))
	for i, step := range steps {
		if galEls[i], err = gt.EltFromStep(step); err != nil {
			return nil, err
		}
	}
	return
}

// EltsAll returns the Galois elements needed for all power-of-two row rotations and
// the column rotation: 2N-1, then GaloisGen^(2^i) and GaloisGen^(-2^i) for i < logN-1.
func (gt *GaloisTool) EltsAll() (galEls []uint64) {

	m := uint64(gt.N << 1)

	galEls = []uint64{m - 1}

	posPower := GaloisGen
	negPower, _ := ModInverse(GaloisGen, m)

	for i := 0; i < gt.LogN-1; i++ {
		galEls = append(galEls, posPower, negPower)
		posPower = posPower * posPower & (m - 1)
		negPower = negPower * negPower & (m - 1)
	}

	return
}

// IndexFromElt returns the index of the key-switching key of a Galois element.
func IndexFromElt(galEl uint64) int {
	return int((galEl - 1) >> 1)
}

// ApplyGalois evaluates p2 = p1(X^galEl) on coefficient-domain polynomials of the ring r.
// p1 and p2 must not alias.
func (gt *GaloisTool) ApplyGalois(r *Ring, p1 Poly, galEl uint64, p2 Poly) {
	r.ApplyGalois(p1, galEl, p2)
}

// ApplyGaloisNTT evaluates p2 = p1(X^galEl) on NTT-domain polynomials of the ring r.
// p1 and p2 must not alias.
func (gt *GaloisTool) ApplyGaloisNTT(r *Ring, p1 Poly, galEl uint64, p2 Poly) {
	table := gt.permutationTable(galEl)
	for i := range r.SubRings {
		x, y := p1.Coeffs[i], p2.Coeffs[i]
		for j, idx := range table {
			y[j] = x[idx]
		}
	}
}

func (gt *GaloisTool) permutationTable(galEl uint64) []uint32 {

	gt.mu.Lock()
	defer gt.mu.Unlock()

	if table, ok := gt.permTables[galEl]; ok {
		return table
	}

	N := uint64(gt.N)
	mask := N - 1

	table := make([]uint32, N)
	for i := N; i < N<<1; i++ {
		reversed := utils.BitReverse64(i, gt.LogN+1)
		idx := ((galEl * reversed) >> 1) & mask
		table[i-N] = uint32(utils.BitReverse64(idx, gt.LogN))
	}

	gt.permTables[galEl] = table

	return table
}
