package bfv

import (
	"fmt"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils/sampling"
)

// Encryptor encrypts plaintexts with either a public key (asymmetric encryption)
// or a secret key (symmetric encryption). An Encryptor owns a PRNG and must not be
// used by several goroutines at the same time: use ShallowCopy instead.
type Encryptor struct {
	ctx  *Context
	pk   *PublicKey
	sk   *SecretKey
	prng sampling.PRNG
}

// NewEncryptor creates a new Encryptor. Either pk or sk can be nil, in which case
// the corresponding encryption mode returns ErrMissingKey.
func NewEncryptor(ctx *Context, pk *PublicKey, sk *SecretKey) (enc *Encryptor, err error) {

	if err = checkScheme("NewEncryptor", ctx.params.Scheme()); err != nil {
		return nil, err
	}

	if pk != nil && pk.ParmsID() != ctx.KeyParmsID() {
		return nil, fmt.Errorf("cannot NewEncryptor: %w: public key is not at the key level", ErrParameterMismatch)
	}

	if sk != nil && sk.ParmsID != ctx.KeyParmsID() {
		return nil, fmt.Errorf("cannot NewEncryptor: %w: secret key is not at the key level", ErrParameterMismatch)
	}

	prng, err := sampling.NewPRNG()
	if err != nil {
		return nil, fmt.Errorf("cannot NewEncryptor: %w", err)
	}

	return &Encryptor{ctx: ctx, pk: pk, sk: sk, prng: prng}, nil
}

// ShallowCopy creates a shallow copy of the Encryptor that shares the keys
// but can be used concurrently with the original.
func (enc *Encryptor) ShallowCopy() *Encryptor {
	prng, err := sampling.NewPRNG()
	if err != nil {
		// Sanity check, this error should not happen.
		panic(err)
	}
	return &Encryptor{ctx: enc.ctx, pk: enc.pk, sk: enc.sk, prng: prng}
}

// Encrypt encrypts pt with the public key on ct, at the level of ct (the first data level if ct
// has no ParmsID). The plaintext must not be in NTT form and its coefficients must be smaller than t.
func (enc *Encryptor) Encrypt(pt *Plaintext, ct *Ciphertext) (err error) {
	return enc.encrypt("Encrypt", pt, ct, false, false)
}

// EncryptNew encrypts pt with the public key at the first data level.
func (enc *Encryptor) EncryptNew(pt *Plaintext) (ct *Ciphertext, err error) {
	ct = new(Ciphertext)
	if err = enc.encrypt("EncryptNew", pt, ct, false, false); err != nil {
		return nil, err
	}
	return
}

// EncryptZero encrypts zero with the public key on ct.
func (enc *Encryptor) EncryptZero(ct *Ciphertext) (err error) {
	return enc.encrypt("EncryptZero", nil, ct, false, false)
}

// EncryptSymmetric encrypts pt with the secret key on ct.
func (enc *Encryptor) EncryptSymmetric(pt *Plaintext, ct *Ciphertext) (err error) {
	return enc.encrypt("EncryptSymmetric", pt, ct, true, false)
}

// EncryptSymmetricNew encrypts pt with the secret key at the first data level.
func (enc *Encryptor) EncryptSymmetricNew(pt *Plaintext) (ct *Ciphertext, err error) {
	ct = new(Ciphertext)
	if err = enc.encrypt("EncryptSymmetricNew", pt, ct, true, false); err != nil {
		return nil, err
	}
	return
}

// EncryptSymmetricSeeded encrypts pt with the secret key on ct and keeps the seed of the
// uniform polynomial in ct.Seed, so that the serialization of ct omits its second polynomial.
func (enc *Encryptor) EncryptSymmetricSeeded(pt *Plaintext, ct *Ciphertext) (err error) {
	return enc.encrypt("EncryptSymmetricSeeded", pt, ct, true, true)
}

// EncryptZeroSymmetric encrypts zero with the secret key on ct.
func (enc *Encryptor) EncryptZeroSymmetric(ct *Ciphertext) (err error) {
	return enc.encrypt("EncryptZeroSymmetric", nil, ct, true, false)
}

func (enc *Encryptor) encrypt(op string, pt *Plaintext, ct *Ciphertext, symmetric, seeded bool) (err error) {

	ctx := enc.ctx

	id := ct.ParmsID
	if id.IsZero() {
		id = ctx.FirstParmsID()
	}

	if !ctx.isDataLevel(id) {
		return fmt.Errorf("cannot %s: %w: ParmsID %s is not a data level", op, ErrParameterMismatch, id)
	}

	cd := ctx.GetContextData(id)

	if pt != nil {

		if pt.IsNTTForm() {
			return fmt.Errorf("cannot %s: %w: plaintext is in NTT form", op, ErrParameterMismatch)
		}

		if pt.CoeffCount() > cd.N() {
			return fmt.Errorf("cannot %s: %w: plaintext has %d coefficients but N=%d", op, ErrInvalidSize, pt.CoeffCount(), cd.N())
		}

		for _, c := range pt.Coeffs {
			if c >= cd.PlainModulus {
				return fmt.Errorf("cannot %s: %w: plaintext coefficient %d is not smaller than t=%d", op, ErrParameterMismatch, c, cd.PlainModulus)
			}
		}
	}

	res, err := newCiphertext(cd, 2)
	if err != nil {
		return fmt.Errorf("cannot %s: %w", op, err)
	}

	if symmetric {

		if enc.sk == nil {
			return fmt.Errorf("cannot %s: %w: encryptor has no secret key", op, ErrMissingKey)
		}

		var seed []byte
		if seed, err = sampling.NewSeed(); err != nil {
			return fmt.Errorf("cannot %s: %w", op, err)
		}

		if err = encryptZeroSymmetric(cd, enc.sk, enc.prng, seed, false, res); err != nil {
			return fmt.Errorf("cannot %s: %w", op, err)
		}

		if seeded {
			res.Seed = seed
		}

	} else {

		if enc.pk == nil {
			return fmt.Errorf("cannot %s: %w: encryptor has no public key", op, ErrMissingKey)
		}

		if err = enc.encryptZeroAsymmetric(cd, res); err != nil {
			return fmt.Errorf("cannot %s: %w", op, err)
		}
	}

	if pt != nil {
		scalePlainThenAdd(cd, pt.Coeffs, res.Poly(0), false)
	}

	ct.Value = res.Value
	ct.copyMetadata(res)
	ct.Seed = res.Seed

	return
}

// encryptZeroAsymmetric writes on ct an encryption of zero at the level cd, in the coefficient domain.
// Below the key level, the encryption is done at the previous level and divided by its last prime.
func (enc *Encryptor) encryptZeroAsymmetric(cd *ContextData, ct *Ciphertext) (err error) {

	prev := cd.Prev()

	if prev == nil {
		return enc.encryptZeroAsymmetricAt(cd, ct)
	}

	var tmp *Ciphertext
	if tmp, err = newCiphertext(prev, 2); err != nil {
		return
	}

	if err = enc.encryptZeroAsymmetricAt(prev, tmp); err != nil {
		return
	}

	k := cd.ModuliCount()
	for i := 0; i < 2; i++ {
		p := tmp.Poly(i)
		prev.RNSTool.DivideAndRoundQLastInplace(p)
		ct.Poly(i).Copy(p.Truncate(k))
	}

	return
}

// encryptZeroAsymmetricAt writes on ct the encryption (pk0*u + e0, pk1*u + e1) at the level cd.
func (enc *Encryptor) encryptZeroAsymmetricAt(cd *ContextData, ct *Ciphertext) (err error) {

	ringQ := cd.Ring
	k := cd.ModuliCount()
	params := enc.ctx.params

	u := ring.NewTernarySampler(enc.prng, ringQ).ReadNew()
	ringQ.NTT(u, u)

	gaussian := ring.NewGaussianSampler(enc.prng, ringQ, params.NoiseSigma(), params.NoiseBound())
	e := ringQ.NewPoly()

	for i := 0; i < 2; i++ {
		c := ct.Poly(i)
		ringQ.MulCoeffsBarrett(enc.pk.Value.Poly(i).Truncate(k), u, c)
		ringQ.INTT(c, c)
		gaussian.Read(e)
		ringQ.Add(c, e, c)
	}

	return
}

// encryptZeroSymmetric writes on ct the encryption (-(a*s + e), a) at the level cd, with a
// sampled from a KeyedPRNG seeded with seed and the error sampled from prng. The polynomial a
// is sampled directly in the domain of ct, which is the NTT domain if ntt is true.
func encryptZeroSymmetric(cd *ContextData, sk *SecretKey, prng sampling.PRNG, seed []byte, ntt bool, ct *Ciphertext) (err error) {

	ringQ := cd.Ring
	k := cd.ModuliCount()
	params := cd.params

	keyed, err := sampling.NewKeyedPRNG(seed)
	if err != nil {
		return
	}

	c0, c1 := ct.Poly(0), ct.Poly(1)

	ring.NewUniformSampler(keyed, ringQ).Read(c1)

	a := c1
	if !ntt {
		a = ringQ.NewPoly()
		ringQ.NTT(c1, a)
	}

	e := ring.NewGaussianSampler(prng, ringQ, params.NoiseSigma(), params.NoiseBound()).ReadNew()
	ringQ.NTT(e, e)

	ringQ.MulCoeffsBarrett(a, sk.Value.Truncate(k), c0)
	ringQ.Add(c0, e, c0)
	ringQ.Neg(c0, c0)

	if !ntt {
		ringQ.INTT(c0, c0)
	}

	ct.IsNTTForm = ntt

	return
}
