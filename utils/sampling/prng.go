package sampling

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// SeedSize is the size in bytes of the keys of KeyedPRNG generated by NewSeed.
const SeedSize = 32

// PRNG is an interface for secure generation of random bytes.
type PRNG interface {
	io.Reader
}

// ThreadSafePRNG reads from crypto/rand.
type ThreadSafePRNG struct {
}

// NewPRNG returns a new PRNG that is thread-safe.
func NewPRNG() (*ThreadSafePRNG, error) {
	return &ThreadSafePRNG{}, nil
}

// Read reads random bytes into sum.
func (prng *ThreadSafePRNG) Read(sum []byte) (n int, err error) {
	return rand.Read(sum)
}

// KeyedPRNG deterministically expands a key into a stream of bytes with the blake2b XOF.
// Two KeyedPRNG instantiated with the same key produce the same stream, which
// is what allows a seeded ciphertext to be re-expanded.
// KeyedPRNG should not be read by multiple goroutines: the resulting sequence would not be deterministic.
type KeyedPRNG struct {
	mutex sync.Mutex
	key   []byte
	xof   blake2b.XOF
}

// NewKeyedPRNG creates a new instance of KeyedPRNG.
// A nil key is treated as an empty key, which is insecure.
func NewKeyedPRNG(key []byte) (*KeyedPRNG, error) {
	var err error
	prng := new(KeyedPRNG)
	prng.key = make([]byte, len(key))
	copy(prng.key, key)
	if prng.xof, err = blake2b.NewXOF(blake2b.OutputLengthUnknown, key); err != nil {
		return nil, fmt.Errorf("cannot NewKeyedPRNG: %w", err)
	}
	return prng, nil
}

// NewSeededPRNG samples a fresh SeedSize-byte key from crypto/rand and returns the keyed PRNG.
func NewSeededPRNG() (*KeyedPRNG, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewKeyedPRNG(seed)
}

// NewSeed returns SeedSize bytes read from crypto/rand.
func NewSeed() (seed []byte, err error) {
	seed = make([]byte, SeedSize)
	if _, err = rand.Read(seed); err != nil {
		return nil, fmt.Errorf("cannot NewSeed: %w", err)
	}
	return
}

// Key returns a copy of the key used to seed the PRNG.
func (prng *KeyedPRNG) Key() (key []byte) {
	key = make([]byte, len(prng.key))
	copy(key, prng.key)
	return
}

// Read reads bytes from the KeyedPRNG on sum.
func (prng *KeyedPRNG) Read(sum []byte) (n int, err error) {
	prng.mutex.Lock()
	defer prng.mutex.Unlock()
	return prng.xof.Read(sum)
}

// Reset resets the PRNG to its initial state.
func (prng *KeyedPRNG) Reset() {
	prng.mutex.Lock()
	defer prng.mutex.Unlock()
	prng.xof.Reset()
}
