package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils"
	"github.com/tuneinsight/bfvrns/utils/sampling"
)

// KeyGenerator generates the secret key and the public, relinearization and Galois keys
// derived from it. A KeyGenerator owns a PRNG and must not be used by several goroutines
// at the same time: use ShallowCopy instead.
type KeyGenerator struct {
	ctx  *Context
	prng sampling.PRNG
}

// NewKeyGenerator creates a new KeyGenerator for the given context.
func NewKeyGenerator(ctx *Context) (kgen *KeyGenerator, err error) {

	if err = checkScheme("NewKeyGenerator", ctx.params.Scheme()); err != nil {
		return nil, err
	}

	prng, err := sampling.NewPRNG()
	if err != nil {
		return nil, fmt.Errorf("cannot NewKeyGenerator: %w", err)
	}

	return &KeyGenerator{ctx: ctx, prng: prng}, nil
}

// ShallowCopy creates a shallow copy of the KeyGenerator with its own PRNG.
func (kgen *KeyGenerator) ShallowCopy() *KeyGenerator {
	prng, err := sampling.NewPRNG()
	if err != nil {
		// Sanity check, this error should not happen.
		panic(err)
	}
	return &KeyGenerator{ctx: kgen.ctx, prng: prng}
}

// GenSecretKeyNew generates a new ternary secret key in NTT form at the key level.
func (kgen *KeyGenerator) GenSecretKeyNew() (sk *SecretKey) {
	cd := kgen.ctx.KeyContextData()
	sk = &SecretKey{ParmsID: cd.ParmsID}
	sk.Value = ring.NewTernarySampler(kgen.prng, cd.Ring).ReadNew()
	cd.Ring.NTT(sk.Value, sk.Value)
	return
}

// GenPublicKeyNew generates the public key of sk, a symmetric encryption of zero in NTT form
// at the key level.
func (kgen *KeyGenerator) GenPublicKeyNew(sk *SecretKey) (pk *PublicKey, err error) {

	if err = kgen.checkSecretKey("GenPublicKeyNew", sk); err != nil {
		return
	}

	cd := kgen.ctx.KeyContextData()

	var ct *Ciphertext
	if ct, err = newCiphertext(cd, 2); err != nil {
		return nil, fmt.Errorf("cannot GenPublicKeyNew: %w", err)
	}

	if err = kgen.encryptZeroNTT(cd, sk, ct); err != nil {
		return nil, fmt.Errorf("cannot GenPublicKeyNew: %w", err)
	}

	return &PublicKey{Value: ct}, nil
}

// GenKeyPairNew generates a new secret key and its public key.
func (kgen *KeyGenerator) GenKeyPairNew() (sk *SecretKey, pk *PublicKey, err error) {
	sk = kgen.GenSecretKeyNew()
	if pk, err = kgen.GenPublicKeyNew(sk); err != nil {
		return nil, nil, err
	}
	return
}

// GenRelinKeysNew generates count relinearization keys, switching s^2, ..., s^(count+1) to s.
func (kgen *KeyGenerator) GenRelinKeysNew(sk *SecretKey, count int) (rlk *RelinKeys, err error) {

	if err = kgen.checkSecretKey("GenRelinKeysNew", sk); err != nil {
		return
	}

	if err = kgen.checkKeySwitching("GenRelinKeysNew"); err != nil {
		return
	}

	if count < 1 || count > CiphertextSizeMax-2 {
		return nil, fmt.Errorf("cannot GenRelinKeysNew: %w: count %d not in [1, %d]", ErrInvalidSize, count, CiphertextSizeMax-2)
	}

	ringQ := kgen.ctx.KeyContextData().Ring

	powers := make([]ring.Poly, count)
	power := sk.Value.CopyNew()
	for i := range powers {
		ringQ.MulCoeffsBarrett(power, sk.Value, power)
		powers[i] = power.CopyNew()
	}

	rlk = &RelinKeys{KSwitchKeys{ParmsID: kgen.ctx.KeyParmsID()}}

	if err = kgen.genKSwitchKeys(powers, sk, &rlk.KSwitchKeys); err != nil {
		return nil, fmt.Errorf("cannot GenRelinKeysNew: %w", err)
	}

	return
}

// GenGaloisKeysNew generates the Galois keys of the given Galois elements.
// A nil list generates the keys of all the elements returned by GaloisTool.EltsAll.
func (kgen *KeyGenerator) GenGaloisKeysNew(sk *SecretKey, galEls []uint64) (gk *GaloisKeys, err error) {

	if err = kgen.checkSecretKey("GenGaloisKeysNew", sk); err != nil {
		return
	}

	if err = kgen.checkKeySwitching("GenGaloisKeysNew"); err != nil {
		return
	}

	gt := kgen.ctx.GaloisTool()

	if galEls == nil {
		galEls = gt.EltsAll()
	}

	galEls = utils.GetDistincts(galEls)

	cd := kgen.ctx.KeyContextData()

	gk = &GaloisKeys{KSwitchKeys{ParmsID: cd.ParmsID, Keys: make([][]PublicKey, cd.N())}}

	for _, galEl := range galEls {

		if !gt.IsValidGaloisElement(galEl) {
			return nil, fmt.Errorf("cannot GenGaloisKeysNew: %w: invalid Galois element %d", ErrInvalidParameters, galEl)
		}

		rotated := cd.Ring.NewPoly()
		gt.ApplyGaloisNTT(cd.Ring, sk.Value, galEl, rotated)

		var rows [][]PublicKey
		if rows, err = kgen.genKSwitchRows([]ring.Poly{rotated}, sk); err != nil {
			return nil, fmt.Errorf("cannot GenGaloisKeysNew: %w", err)
		}

		gk.Keys[ring.IndexFromElt(galEl)] = rows[0]
	}

	return
}

// GenGaloisKeysForStepsNew generates the Galois keys of the row rotations by the given steps.
// The step 0 generates the key of the column rotation.
func (kgen *KeyGenerator) GenGaloisKeysForStepsNew(sk *SecretKey, steps []int) (gk *GaloisKeys, err error) {

	if !kgen.ctx.params.UsingBatching() {
		return nil, fmt.Errorf("cannot GenGaloisKeysForStepsNew: %w: parameters do not support batching", ErrInvalidParameters)
	}

	galEls, err := kgen.ctx.GaloisTool().EltsFromSteps(steps)
	if err != nil {
		return nil, fmt.Errorf("cannot GenGaloisKeysForStepsNew: %w: %s", ErrInvalidParameters, err)
	}

	return kgen.GenGaloisKeysNew(sk, galEls)
}

func (kgen *KeyGenerator) genKSwitchKeys(newKeys []ring.Poly, sk *SecretKey, ksk *KSwitchKeys) (err error) {
	ksk.Keys, err = kgen.genKSwitchRows(newKeys, sk)
	return
}

// genKSwitchRows generates, for every new key s', one row of keys switching s' to sk.
// The j-th key of a row encrypts zero at the key level with s' * (q_special mod q_j) added
// to the j-th residue of its first polynomial.
func (kgen *KeyGenerator) genKSwitchRows(newKeys []ring.Poly, sk *SecretKey) (rows [][]PublicKey, err error) {

	cd := kgen.ctx.KeyContextData()
	ringQ := cd.Ring
	moduli := cd.Moduli()
	decompCount := kgen.ctx.FirstContextData().ModuliCount()
	special := moduli[len(moduli)-1]

	rows = make([][]PublicKey, len(newKeys))

	for i, newKey := range newKeys {

		rows[i] = make([]PublicKey, decompCount)

		for j := 0; j < decompCount; j++ {

			var ct *Ciphertext
			if ct, err = newCiphertext(cd, 2); err != nil {
				return
			}

			if err = kgen.encryptZeroNTT(cd, sk, ct); err != nil {
				return
			}

			s := ringQ.SubRings[j]
			s.MulScalarThenAdd(newKey.Coeffs[j], special%s.Modulus, ct.Poly(0).Coeffs[j])

			rows[i][j] = PublicKey{Value: ct}
		}
	}

	return
}

func (kgen *KeyGenerator) encryptZeroNTT(cd *ContextData, sk *SecretKey, ct *Ciphertext) (err error) {

	seed, err := sampling.NewSeed()
	if err != nil {
		return
	}

	return encryptZeroSymmetric(cd, sk, kgen.prng, seed, true, ct)
}

func (kgen *KeyGenerator) checkSecretKey(op string, sk *SecretKey) error {
	if sk == nil || sk.ParmsID != kgen.ctx.KeyParmsID() {
		return fmt.Errorf("cannot %s: %w: secret key is not at the key level", op, ErrParameterMismatch)
	}
	return nil
}

func (kgen *KeyGenerator) checkKeySwitching(op string) error {
	if !kgen.ctx.UsingKeySwitching() {
		return fmt.Errorf("cannot %s: %w: parameters do not support key switching", op, ErrMissingKey)
	}
	return nil
}
