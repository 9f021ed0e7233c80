package bfv

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tuneinsight/bfvrns/ring"
	"github.com/tuneinsight/bfvrns/utils/buffer"
)

// SecretKey is a ternary polynomial in NTT form over the primes of the key level.
type SecretKey struct {
	Value   ring.Poly
	ParmsID ParmsID
}

// CopyNew returns a deep copy of the secret key.
func (sk *SecretKey) CopyNew() *SecretKey {
	return &SecretKey{Value: sk.Value.CopyNew(), ParmsID: sk.ParmsID}
}

// Equal returns true if both keys are equal.
func (sk *SecretKey) Equal(other *SecretKey) bool {
	return sk.ParmsID == other.ParmsID && sk.Value.Equal(other.Value)
}

// BinarySize returns the serialized size of the object in bytes.
func (sk *SecretKey) BinarySize() int {
	return parmsIDSize + sk.Value.BinarySize()
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
func (sk *SecretKey) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = sk.ParmsID.writeTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = sk.Value.WriteTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		return n, w.Flush()
	default:
		return sk.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (sk *SecretKey) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64
		if inc, err = sk.ParmsID.readFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		inc, err = sk.Value.ReadFrom(r)

		return n + inc, err
	default:
		return sk.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (sk *SecretKey) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(sk.BinarySize())
	_, err = sk.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary on the object.
func (sk *SecretKey) UnmarshalBinary(p []byte) (err error) {
	_, err = sk.ReadFrom(buffer.NewBuffer(p))
	return
}

// PublicKey is an encryption of zero in NTT form at the key level.
type PublicKey struct {
	Value *Ciphertext
}

// ParmsID returns the level of the key.
func (pk *PublicKey) ParmsID() ParmsID {
	return pk.Value.ParmsID
}

// CopyNew returns a deep copy of the public key.
func (pk *PublicKey) CopyNew() *PublicKey {
	return &PublicKey{Value: pk.Value.CopyNew()}
}

// Equal returns true if both keys are equal.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.Value.Equal(other.Value)
}

// BinarySize returns the serialized size of the object in bytes.
func (pk *PublicKey) BinarySize() int {
	return pk.Value.BinarySize()
}

// WriteTo writes the object on an io.Writer.
func (pk *PublicKey) WriteTo(w io.Writer) (n int64, err error) {
	return pk.Value.WriteTo(w)
}

// ReadFrom reads on the object from an io.Reader.
func (pk *PublicKey) ReadFrom(r io.Reader) (n int64, err error) {
	if pk.Value == nil {
		pk.Value = new(Ciphertext)
	}
	return pk.Value.ReadFrom(r)
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (pk *PublicKey) MarshalBinary() (p []byte, err error) {
	return pk.Value.MarshalBinary()
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary on the object.
func (pk *PublicKey) UnmarshalBinary(p []byte) (err error) {
	_, err = pk.ReadFrom(buffer.NewBuffer(p))
	return
}

// KSwitchKeys is a table of key-switching keys. Row i switches one secret (for example
// a power of the secret key, or its image by an automorphism) back to the secret key, and
// holds one PublicKey per prime of the first data level. Missing rows are empty.
type KSwitchKeys struct {
	ParmsID ParmsID
	Keys    [][]PublicKey
}

// Has returns true if the row i is present.
func (k *KSwitchKeys) Has(i int) bool {
	return i >= 0 && i < len(k.Keys) && len(k.Keys[i]) > 0
}

// Row returns the i-th row of keys.
func (k *KSwitchKeys) Row(i int) ([]PublicKey, error) {
	if !k.Has(i) {
		return nil, fmt.Errorf("cannot Row: %w: row %d", ErrMissingKey, i)
	}
	return k.Keys[i], nil
}

// Equal returns true if both tables are equal.
func (k *KSwitchKeys) Equal(other *KSwitchKeys) bool {
	if k.ParmsID != other.ParmsID || len(k.Keys) != len(other.Keys) {
		return false
	}
	for i := range k.Keys {
		if len(k.Keys[i]) != len(other.Keys[i]) {
			return false
		}
		for j := range k.Keys[i] {
			if !k.Keys[i][j].Equal(&other.Keys[i][j]) {
				return false
			}
		}
	}
	return true
}

// BinarySize returns the serialized size of the object in bytes.
func (k *KSwitchKeys) BinarySize() (size int) {
	size = parmsIDSize + 8
	for i := range k.Keys {
		size += 8
		for j := range k.Keys[i] {
			size += k.Keys[i][j].BinarySize()
		}
	}
	return
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
func (k *KSwitchKeys) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = k.ParmsID.writeTo(w); err != nil {
			return n + inc, err
		}
		n += inc

		if inc, err = buffer.WriteInt(w, len(k.Keys)); err != nil {
			return n + inc, err
		}
		n += inc

		for i := range k.Keys {

			if inc, err = buffer.WriteInt(w, len(k.Keys[i])); err != nil {
				return n + inc, err
			}
			n += inc

			for j := range k.Keys[i] {
				if inc, err = k.Keys[i][j].WriteTo(w); err != nil {
					return n + inc, err
				}
				n += inc
			}
		}

		return n, w.Flush()
	default:
		return k.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Reader. It implements the
// io.ReaderFrom interface.
func (k *KSwitchKeys) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64
		if inc, err = k.ParmsID.readFrom(r); err != nil {
			return n + inc, err
		}
		n += inc

		var rows int
		if inc, err = buffer.ReadInt(r, &rows); err != nil {
			return n + inc, err
		}
		n += inc

		if rows < 0 || rows > 1<<ring.MaxLogN {
			return n, fmt.Errorf("cannot ReadFrom: %w: %d rows of keys", ErrInvalidSize, rows)
		}

		k.Keys = make([][]PublicKey, rows)

		for i := range k.Keys {

			var cols int
			if inc, err = buffer.ReadInt(r, &cols); err != nil {
				return n + inc, err
			}
			n += inc

			if cols < 0 || cols > 64 {
				return n, fmt.Errorf("cannot ReadFrom: %w: %d keys in row %d", ErrInvalidSize, cols, i)
			}

			if cols == 0 {
				continue
			}

			k.Keys[i] = make([]PublicKey, cols)
			for j := range k.Keys[i] {
				if inc, err = k.Keys[i][j].ReadFrom(r); err != nil {
					return n + inc, err
				}
				n += inc
			}
		}

		return
	default:
		return k.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated slice of bytes.
func (k *KSwitchKeys) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(k.BinarySize())
	_, err = k.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary on the object.
func (k *KSwitchKeys) UnmarshalBinary(p []byte) (err error) {
	_, err = k.ReadFrom(buffer.NewBuffer(p))
	return
}

// RelinKeys are the key-switching keys of the powers s^2, s^3, ... of the secret key.
// Row i switches s^(i+2).
type RelinKeys struct {
	KSwitchKeys
}

// HasPower returns true if the key of s^power is present.
func (rlk *RelinKeys) HasPower(power int) bool {
	return rlk.Has(power - 2)
}

// Count returns the number of relinearization keys.
func (rlk *RelinKeys) Count() int {
	return len(rlk.Keys)
}

// GaloisKeys are the key-switching keys of the automorphisms s(X) -> s(X^galEl).
// Row (galEl-1)/2 switches s(X^galEl).
type GaloisKeys struct {
	KSwitchKeys
}

// HasElt returns true if the key of the Galois element galEl is present.
func (gk *GaloisKeys) HasElt(galEl uint64) bool {
	return galEl&1 == 1 && gk.Has(ring.IndexFromElt(galEl))
}

// Elts returns the Galois elements of the present keys.
func (gk *GaloisKeys) Elts() (galEls []uint64) {
	for i := range gk.Keys {
		if gk.Has(i) {
			galEls = append(galEls, uint64(2*i+1))
		}
	}
	return
}
