// Package liveness wraps the external zero-knowledge liveness verifier.
//
// The verifier itself is opaque. Callers inside this service only ever see a
// Guard, which turns every error and panic from the verifier into a rejection.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// MinProofLength is the smallest structurally valid liveness proof: one
// Groth16 proof made of eight 32-byte field elements.
const MinProofLength = 256

var (
	// ErrProofTooShort reports a proof that fails the structural length check.
	ErrProofTooShort = errors.New("liveness proof shorter than minimum length")
	// ErrNoVerifier is returned when a Guard is built without a verifier.
	ErrNoVerifier = errors.New("liveness verifier is not configured")
)

// Verifier checks a liveness proof. Implementations may fail with an error;
// the result is only meaningful when err is nil.
type Verifier interface {
	Verify(ctx context.Context, proof []byte) (bool, error)
}

// Func adapts a plain function to the Verifier interface.
type Func func(ctx context.Context, proof []byte) (bool, error)

// Verify calls f.
func (f Func) Verify(ctx context.Context, proof []byte) (bool, error) {
	return f(ctx, proof)
}

// CheckLength applies the structural validity check shared by every caller.
func CheckLength(proof []byte) error {
	if len(proof) < MinProofLength {
		return fmt.Errorf("%w: got %d bytes, need %d", ErrProofTooShort, len(proof), MinProofLength)
	}
	return nil
}

// Guard is the fail-closed front of a Verifier.
type Guard struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewGuard wraps verifier.
func NewGuard(verifier Verifier, logger *slog.Logger) (*Guard, error) {
	if verifier == nil {
		return nil, ErrNoVerifier
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{verifier: verifier, logger: logger}, nil
}

// Check reports whether proof is structurally valid and accepted by the
// verifier. It never returns true on error or panic.
func (g *Guard) Check(ctx context.Context, proof []byte) (ok bool) {
	if err := CheckLength(proof); err != nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("liveness verifier panicked", slog.Any("panic", r))
			ok = false
		}
	}()

	valid, err := g.verifier.Verify(ctx, proof)
	if err != nil {
		g.logger.Warn("liveness verifier failed", slog.Any("error", err))
		return false
	}
	return valid
}

// DevVerifier accepts every proof that passes the structural check. It is
// only wired when the service runs in a development environment without a
// verifier URL.
type DevVerifier struct{}

// Verify accepts any proof of sufficient length.
func (DevVerifier) Verify(_ context.Context, proof []byte) (bool, error) {
	return CheckLength(proof) == nil, nil
}
