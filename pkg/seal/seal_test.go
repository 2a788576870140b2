package seal

import (
	"errors"
	"math"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	owner, err := NewKeyPair()
	if err != nil {
		t.Fatalf("NewKeyPair failed: %v", err)
	}

	coords := []float64{0.5, -1.25, 3.75, 0, 12.5, -0.001}
	sealed, err := owner.Seal(coords)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	opened, err := owner.Open(sealed, len(coords))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i, want := range coords {
		if math.Abs(opened[i]-want) > 1e-4 {
			t.Errorf("coordinate %d: got %.8f, want %.8f", i, opened[i], want)
		}
	}
}

func TestPublicKeySealer(t *testing.T) {
	owner, err := NewKeyPair()
	if err != nil {
		t.Fatalf("NewKeyPair failed: %v", err)
	}
	pk, err := owner.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey failed: %v", err)
	}

	producer, err := NewSealer(pk)
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	if producer.CanOpen() {
		t.Error("public-key sealer should not be able to open")
	}

	coords := []float64{1, 2, 3}
	sealed, err := producer.Seal(coords)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := producer.Open(sealed, 3); !errors.Is(err, ErrNoSecretKey) {
		t.Errorf("expected ErrNoSecretKey, got %v", err)
	}

	opened, err := owner.Open(sealed, 3)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i, want := range coords {
		if math.Abs(opened[i]-want) > 1e-4 {
			t.Errorf("coordinate %d: got %.8f, want %.8f", i, opened[i], want)
		}
	}
}

func TestSealValidation(t *testing.T) {
	owner, err := NewKeyPair()
	if err != nil {
		t.Fatalf("NewKeyPair failed: %v", err)
	}

	if _, err := owner.Seal(nil); err == nil {
		t.Error("expected error for empty coordinates")
	}
	if _, err := owner.Seal(make([]float64, owner.Slots()+1)); !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
	sealed, err := owner.Seal([]float64{1, 2})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := owner.Open(sealed[:len(sealed)/2], 2); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
	if _, err := owner.Open(sealed, 0); err == nil {
		t.Error("expected error for zero length")
	}
	if _, err := NewSealer(nil); err == nil {
		t.Error("expected error for empty public key")
	}
}
