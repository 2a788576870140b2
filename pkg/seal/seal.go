// Package seal encrypts projected face coordinates with the CKKS scheme so
// that only the holder of the secret key can read them.
//
// The consumer of face features creates a key pair with NewKeyPair and
// publishes its public key. A producer holding only that public key builds a
// Sealer with NewSealer and seals coordinates before they leave the process.
package seal

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"
)

var (
	// ErrNoSecretKey is returned by Open on a Sealer built from a public key.
	ErrNoSecretKey = errors.New("secret key not available")

	// ErrTooLong is returned when coordinates do not fit in one ciphertext.
	ErrTooLong = errors.New("coordinates exceed ciphertext slots")
)

// Sealer seals and, when it holds the secret key, opens coordinate vectors.
type Sealer struct {
	params    hefloat.Parameters
	encoder   *hefloat.Encoder
	encryptor *rlwe.Encryptor
	publicKey *rlwe.PublicKey

	// Only set on the consumer side
	decryptor *rlwe.Decryptor

	// Lattigo encoders and encryptors are not safe for concurrent use.
	mu sync.Mutex
}

// NewParameters returns the CKKS parameters shared by both sides.
// Sealing needs no multiplicative depth, so the modulus chain is short.
func NewParameters() (hefloat.Parameters, error) {
	params, err := hefloat.NewParametersFromLiteral(hefloat.ParametersLiteral{
		LogN:            13,            // 2^12 real slots
		LogQ:            []int{55, 45}, // Ciphertext modulus chain
		LogP:            []int{61},     // Special prime for key-switching
		LogDefaultScale: 45,
	})
	if err != nil {
		return hefloat.Parameters{}, fmt.Errorf("failed to create CKKS parameters: %w", err)
	}
	return params, nil
}

// NewKeyPair generates a fresh key pair and returns a Sealer that can both
// seal and open.
func NewKeyPair() (*Sealer, error) {
	params, err := NewParameters()
	if err != nil {
		return nil, err
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()

	return &Sealer{
		params:    params,
		encoder:   hefloat.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		publicKey: pk,
		decryptor: rlwe.NewDecryptor(params, sk),
	}, nil
}

// NewSealer returns a Sealer that encrypts under the serialized public key.
// It cannot open what it seals.
func NewSealer(publicKeyBytes []byte) (*Sealer, error) {
	if len(publicKeyBytes) == 0 {
		return nil, errors.New("empty public key")
	}
	params, err := NewParameters()
	if err != nil {
		return nil, err
	}

	pk := rlwe.NewPublicKey(params)
	if _, err := pk.ReadFrom(bytes.NewReader(publicKeyBytes)); err != nil {
		return nil, fmt.Errorf("failed to deserialize public key: %w", err)
	}

	return &Sealer{
		params:    params,
		encoder:   hefloat.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		publicKey: pk,
	}, nil
}

// PublicKey returns the serialized public key for distribution to producers.
func (s *Sealer) PublicKey() ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := s.publicKey.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to serialize public key: %w", err)
	}
	return buf.Bytes(), nil
}

// Slots returns the maximum number of coordinates one ciphertext holds.
func (s *Sealer) Slots() int {
	return s.params.MaxSlots()
}

// CanOpen reports whether the Sealer holds the secret key.
func (s *Sealer) CanOpen() bool {
	return s.decryptor != nil
}

// Seal encrypts coords and returns the serialized ciphertext.
func (s *Sealer) Seal(coords []float64) ([]byte, error) {
	if len(coords) == 0 {
		return nil, errors.New("no coordinates to seal")
	}
	slots := s.params.MaxSlots()
	if len(coords) > slots {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLong, len(coords), slots)
	}

	// Unused slots stay zero.
	padded := make([]float64, slots)
	copy(padded, coords)

	s.mu.Lock()
	defer s.mu.Unlock()

	pt := hefloat.NewPlaintext(s.params, s.params.MaxLevel())
	if err := s.encoder.Encode(padded, pt); err != nil {
		return nil, fmt.Errorf("failed to encode coordinates: %w", err)
	}
	ct, err := s.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}

	buf := new(bytes.Buffer)
	if _, err := ct.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to serialize ciphertext: %w", err)
	}
	return buf.Bytes(), nil
}

// Open decrypts a sealed ciphertext and returns its first length coordinates.
// CKKS is approximate: values come back within about 1e-6 of the originals.
func (s *Sealer) Open(sealed []byte, length int) ([]float64, error) {
	if s.decryptor == nil {
		return nil, ErrNoSecretKey
	}
	if length <= 0 || length > s.params.MaxSlots() {
		return nil, fmt.Errorf("invalid length %d", length)
	}

	ct := rlwe.NewCiphertext(s.params, 1, s.params.MaxLevel())
	if _, err := ct.ReadFrom(bytes.NewReader(sealed)); err != nil {
		return nil, fmt.Errorf("failed to deserialize ciphertext: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pt := s.decryptor.DecryptNew(ct)
	decoded := make([]float64, length)
	if err := s.encoder.Decode(pt, decoded); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	return decoded, nil
}
