package ring

import (
	"fmt"
)

// ModExp performs the modular exponentiation x^e mod q.
func ModExp(x, e, q uint64) (result uint64) {
	u := GenBRedConstant(q)
	result = 1
	x = BRedAdd(x, q, u)
	for i := e; i > 0; i >>= 1 {
		if i&1 == 1 {
			result = BRed(result, x, q, u)
		}
		x = BRed(x, x, q, u)
	}
	return result % q
}

// ModInverse returns a^-1 mod q using the extended Euclidean algorithm.
// It returns an error if a is not invertible modulo q. q must be smaller than 2^63.
func ModInverse(a, q uint64) (inv uint64, err error) {

	if q == 0 || q>>63 != 0 {
		return 0, fmt.Errorf("cannot ModInverse: invalid modulus %d", q)
	}

	if q == 1 {
		return 0, nil
	}

	var t, newT int64 = 0, 1
	var r, newR = int64(q), int64(a % q)

	for newR != 0 {
		quo := r / newR
		t, newT = newT, t-quo*newT
		r, newR = newR, r-quo*newR
	}

	if r != 1 {
		return 0, fmt.Errorf("cannot ModInverse: %d is not invertible modulo %d", a, q)
	}

	if t < 0 {
		t += int64(q)
	}

	return uint64(t), nil
}

// IsPrimitiveRoot returns true if root is a primitive degree-th root of unity modulo q,
// for degree a power of two.
func IsPrimitiveRoot(root uint64, degree int, q uint64) bool {
	if root == 0 || degree < 2 {
		return false
	}
	// a power-of-two root is primitive iff root^(degree/2) = -1
	return ModExp(root, uint64(degree>>1), q) == q-1
}

// MinimalPrimitiveRoot returns the smallest primitive degree-th root of unity modulo the prime q,
// for degree a power of two dividing q-1.
func MinimalPrimitiveRoot(degree int, q uint64) (root uint64, err error) {

	if degree < 2 || (q-1)%uint64(degree) != 0 {
		return 0, fmt.Errorf("cannot MinimalPrimitiveRoot: %d does not divide %d-1", degree, q)
	}

	cofactor := (q - 1) / uint64(degree)

	// finds any primitive root by exponentiating small candidates
	for x := uint64(2); x < q; x++ {
		if r := ModExp(x, cofactor, q); IsPrimitiveRoot(r, degree, q) {
			root = r
			break
		}
	}

	if root == 0 {
		return 0, fmt.Errorf("cannot MinimalPrimitiveRoot: no primitive %d-th root of unity modulo %d", degree, q)
	}

	// the primitive roots are the odd powers of any of them
	u := GenBRedConstant(q)
	square := BRed(root, root, q, u)
	current := root
	for i := 0; i < degree>>1; i++ {
		if current < root {
			root = current
		}
		current = BRed(current, square, q, u)
	}

	return root, nil
}
