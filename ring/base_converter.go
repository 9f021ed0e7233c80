package ring

import (
	"math/big"
)

// BaseConverter performs the fast approximate RNS base conversion from an input base
// to an output base: out_j = sum_i [x_i * (Q/q_i)^-1]_{q_i} * (Q/q_i) mod p_j.
// The result is congruent to x + u*Q for some 0 <= u < |input base|.
type BaseConverter struct {
	ibase, obase *RNSBase
	// (Q/q_i) mod p_j, indexed [j][i]
	puncturedModOut [][]uint64
}

// NewBaseConverter creates a new BaseConverter from ibase to obase.
func NewBaseConverter(ibase, obase *RNSBase) *BaseConverter {

	bc := &BaseConverter{ibase: ibase, obase: obase, puncturedModOut: make([][]uint64, obase.Size())}

	tmp := new(big.Int)
	for j, p := range obase.moduli {
		bigP := new(big.Int).SetUint64(p)
		bc.puncturedModOut[j] = make([]uint64, ibase.Size())
		for i := range ibase.moduli {
			bc.puncturedModOut[j][i] = tmp.Mod(ibase.puncturedProduct[i], bigP).Uint64()
		}
	}

	return bc
}

// InputBase returns the input base of the converter.
func (bc *BaseConverter) InputBase() *RNSBase {
	return bc.ibase
}

// OutputBase returns the output base of the converter.
func (bc *BaseConverter) OutputBase() *RNSBase {
	return bc.obase
}

// FastConvert converts the polynomial in with one row per input modulus to the
// polynomial out with one row per output modulus. Inputs must be reduced.
func (bc *BaseConverter) FastConvert(in, out [][]uint64) {

	ibase, obase := bc.ibase, bc.obase

	N := len(in[0])
	temp := make([][]uint64, ibase.Size())

	for i, q := range ibase.moduli {
		temp[i] = make([]uint64, N)
		w, wShoup := ibase.invPuncturedMod[i], ibase.invPuncturedShp[i]
		for k, x := range in[i] {
			temp[i][k] = MulModShoup(x, w, wShoup, q)
		}
	}

	for j, p := range obase.moduli {

		u := obase.bredConstants[j]
		punctured := bc.puncturedModOut[j]
		outj := out[j]

		for k := 0; k < N; k++ {

			var acc LazyAccumulator

			for i := range temp {
				acc.MulAdd(temp[i][k], punctured[i])
			}

			outj[k] = acc.Reduce(p, u)
		}
	}
}
