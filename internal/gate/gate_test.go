package gate

import (
	"errors"
	"testing"
	"time"
)

func TestGate_UnlockAndVerify(t *testing.T) {
	t.Parallel()

	g := New("sesame", "test-secret", 6*time.Hour)

	token, expiresAt, err := g.Unlock("sesame")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("Expected a token")
	}
	if until := time.Until(expiresAt); until < 5*time.Hour || until > 6*time.Hour {
		t.Errorf("Expected roughly 6h validity, got %v", until)
	}

	if err := g.Verify(token); err != nil {
		t.Errorf("Expected token to verify, got %v", err)
	}
}

func TestGate_UnlockRejectsWrongCode(t *testing.T) {
	t.Parallel()

	g := New("sesame", "test-secret", 6*time.Hour)

	_, _, err := g.Unlock("guess")
	if !errors.Is(err, ErrInvalidCode) {
		t.Errorf("Expected ErrInvalidCode, got %v", err)
	}

	_, _, err = g.Unlock("")
	if !errors.Is(err, ErrInvalidCode) {
		t.Errorf("Expected ErrInvalidCode for empty code, got %v", err)
	}
}

func TestGate_VerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	g := New("sesame", "test-secret", 6*time.Hour)
	g.now = func() time.Time { return time.Now().Add(-7 * time.Hour) }

	token, _, err := g.Unlock("sesame")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := g.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestGate_VerifyRejectsForeignToken(t *testing.T) {
	t.Parallel()

	issued := New("sesame", "secret-a", 6*time.Hour)
	verifier := New("sesame", "secret-b", 6*time.Hour)

	token, _, err := issued.Unlock("sesame")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestGate_VerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	g := New("sesame", "test-secret", 6*time.Hour)
	if err := g.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}
