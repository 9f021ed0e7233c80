package ring

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/bfvrns/utils"
)

// RNSBase is an ordered set of pairwise coprime moduli with the constants
// of the Chinese remainder theorem: the product of the moduli, the punctured
// products prod/q_i, and their inverses modulo q_i.
type RNSBase struct {
	moduli           []uint64
	bredConstants    [][2]uint64
	product          *big.Int
	puncturedProduct []*big.Int
	invPuncturedMod  []uint64 // (prod/q_i)^-1 mod q_i
	invPuncturedShp  []uint64
}

// NewRNSBase creates a new RNSBase from the given moduli.
// It returns an error if the moduli are not pairwise coprime or greater than one.
func NewRNSBase(moduli []uint64) (b *RNSBase, err error) {

	if len(moduli) == 0 {
		return nil, fmt.Errorf("cannot NewRNSBase: moduli list is empty")
	}

	for i := range moduli {
		if moduli[i] < 2 {
			return nil, fmt.Errorf("cannot NewRNSBase: modulus %d is smaller than 2", moduli[i])
		}
		for j := 0; j < i; j++ {
			if utils.GCD(moduli[i], moduli[j]) != 1 {
				return nil, fmt.Errorf("cannot NewRNSBase: moduli %d and %d are not coprime", moduli[i], moduli[j])
			}
		}
	}

	b = &RNSBase{
		moduli:           append([]uint64{}, moduli...),
		bredConstants:    make([][2]uint64, len(moduli)),
		product:          big.NewInt(1),
		puncturedProduct: make([]*big.Int, len(moduli)),
		invPuncturedMod:  make([]uint64, len(moduli)),
		invPuncturedShp:  make([]uint64, len(moduli)),
	}

	for _, q := range moduli {
		b.product.Mul(b.product, new(big.Int).SetUint64(q))
	}

	tmp := new(big.Int)
	for i, q := range moduli {

		b.bredConstants[i] = GenBRedConstant(q)

		bigQ := new(big.Int).SetUint64(q)
		b.puncturedProduct[i] = new(big.Int).Quo(b.product, bigQ)

		if b.invPuncturedMod[i], err = ModInverse(tmp.Mod(b.puncturedProduct[i], bigQ).Uint64(), q); err != nil {
			return nil, fmt.Errorf("cannot NewRNSBase: %w", err)
		}

		b.invPuncturedShp[i] = ShoupConstant(b.invPuncturedMod[i], q)
	}

	return
}

// Size returns the number of moduli of the base.
func (b *RNSBase) Size() int {
	return len(b.moduli)
}

// Moduli returns a copy of the moduli of the base.
func (b *RNSBase) Moduli() []uint64 {
	return append([]uint64{}, b.moduli...)
}

// At returns the i-th modulus of the base.
func (b *RNSBase) At(i int) uint64 {
	if i < 0 || i >= len(b.moduli) {
		panic(fmt.Errorf("cannot At: index %d out of range [0, %d)", i, len(b.moduli)))
	}
	return b.moduli[i]
}

// Product returns the product of the moduli of the base.
func (b *RNSBase) Product() *big.Int {
	return new(big.Int).Set(b.product)
}

// PuncturedProduct returns prod/q_i.
func (b *RNSBase) PuncturedProduct(i int) *big.Int {
	return new(big.Int).Set(b.puncturedProduct[i])
}

// InvPuncturedProductMod returns (prod/q_i)^-1 mod q_i.
func (b *RNSBase) InvPuncturedProductMod(i int) uint64 {
	return b.invPuncturedMod[i]
}

// Contains returns true if q is a modulus of the base.
func (b *RNSBase) Contains(q uint64) bool {
	return utils.IsInSlice(q, b.moduli)
}

// IsSubbaseOf returns true if every modulus of b is a modulus of other.
func (b *RNSBase) IsSubbaseOf(other *RNSBase) bool {
	for _, q := range b.moduli {
		if !other.Contains(q) {
			return false
		}
	}
	return true
}

// Extend returns a new base with the modulus q appended.
func (b *RNSBase) Extend(q ...uint64) (*RNSBase, error) {
	return NewRNSBase(append(b.Moduli(), q...))
}

// Drop returns a new base without the modulus q.
func (b *RNSBase) Drop(q uint64) (*RNSBase, error) {
	if !b.Contains(q) {
		return nil, fmt.Errorf("cannot Drop: %d is not in the base", q)
	}
	moduli := make([]uint64, 0, len(b.moduli)-1)
	for _, qi := range b.moduli {
		if qi != q {
			moduli = append(moduli, qi)
		}
	}
	return NewRNSBase(moduli)
}

// Decompose writes the residues of value modulo each modulus of the base on residues.
func (b *RNSBase) Decompose(value *big.Int, residues []uint64) {
	tmp := new(big.Int)
	for i, q := range b.moduli {
		residues[i] = tmp.Mod(value, tmp.SetUint64(q)).Uint64()
	}
}

// Compose returns the unique integer in [0, prod) whose residues are given.
func (b *RNSBase) Compose(residues []uint64) (value *big.Int) {
	value = new(big.Int)
	tmp := new(big.Int)
	for i, q := range b.moduli {
		// residue * (prod/q_i)^-1 mod q_i * prod/q_i
		r := MulModShoup(residues[i]%q, b.invPuncturedMod[i], b.invPuncturedShp[i], q)
		value.Add(value, tmp.Mul(tmp.SetUint64(r), b.puncturedProduct[i]))
	}
	return value.Mod(value, b.product)
}

// DecomposeArray writes the RNS decomposition of the N big integers of values on pol.
func (b *RNSBase) DecomposeArray(values []*big.Int, pol Poly) {
	tmp := new(big.Int)
	for i, q := range b.moduli {
		bigQ := new(big.Int).SetUint64(q)
		for j, v := range values {
			pol.Coeffs[i][j] = tmp.Mod(v, bigQ).Uint64()
		}
	}
}

// ComposeArray reconstructs the N coefficients of pol in [0, prod).
func (b *RNSBase) ComposeArray(pol Poly) (values []*big.Int) {
	N := pol.N()
	values = make([]*big.Int, N)
	residues := make([]uint64, len(b.moduli))
	for j := 0; j < N; j++ {
		for i := range b.moduli {
			residues[i] = pol.Coeffs[i][j]
		}
		values[j] = b.Compose(residues)
	}
	return
}
