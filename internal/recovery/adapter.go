package recovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/faceguard/faceguard/internal/events"
	"github.com/faceguard/faceguard/internal/liveness"
	"github.com/faceguard/faceguard/internal/logging"
)

// Deps aggregates what a Signer needs.
type Deps struct {
	Enrollments EnrollmentStore
	Nonces      NonceStore
	Verifier    liveness.Verifier
	Publisher   events.Publisher
	Logger      *slog.Logger
	Now         func() time.Time
}

// Signer is the external-signer surface offered to the host account runtime.
// Every operation acts on the authenticated caller; there is no way to name
// another account. Operations on one account are serialised; different
// accounts proceed concurrently.
type Signer struct {
	registry   *Registry
	nonces     *NonceLedger
	authorizer *Authorizer
	locks      *accountLocks
	logger     *slog.Logger
}

// New builds a Signer. A missing verifier is ErrZeroAddress.
func New(d Deps) (*Signer, error) {
	if d.Verifier == nil {
		return nil, ErrZeroAddress
	}
	if d.Enrollments == nil || d.Nonces == nil {
		return nil, errors.New("enrollment and nonce stores are required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	guard, err := liveness.NewGuard(d.Verifier, d.Logger)
	if err != nil {
		return nil, err
	}

	return &Signer{
		registry:   NewRegistry(d.Enrollments, guard, d.Publisher, d.Now, d.Logger),
		nonces:     NewNonceLedger(d.Nonces, d.Publisher, d.Now, d.Logger),
		authorizer: NewAuthorizer(d.Enrollments, d.Nonces, guard),
		locks:      newAccountLocks(),
		logger:     d.Logger,
	}, nil
}

// IsValidSignatureWithKeyHash reports whether signature authorizes recovery
// of caller for digest under keyHash. It returns false on every failure and
// never changes state.
func (s *Signer) IsValidSignatureWithKeyHash(ctx context.Context, caller common.Address, digest common.Hash, signature []byte, keyHash common.Hash) bool {
	unlock := s.locks.lock(caller)
	defer unlock()

	if err := s.authorizer.Check(ctx, caller, digest, signature, keyHash); err != nil {
		s.logger.Debug("recovery authorization rejected", logging.Account(caller), slog.Any("reason", err))
		return false
	}
	return true
}

// EnrollFace commits faceKeyHash for caller.
func (s *Signer) EnrollFace(ctx context.Context, caller common.Address, faceKeyHash common.Hash, proof []byte) (EnrollmentRecord, error) {
	unlock := s.locks.lock(caller)
	defer unlock()

	rec, err := s.registry.Enroll(ctx, caller, faceKeyHash, proof)
	if err != nil {
		return EnrollmentRecord{}, err
	}
	s.logger.Info("face enrolled", logging.Account(caller), logging.KeyHash(faceKeyHash))
	return rec, nil
}

// UpdateFace replaces caller's enrollment with newFaceKeyHash.
func (s *Signer) UpdateFace(ctx context.Context, caller common.Address, newFaceKeyHash common.Hash, proof []byte) (EnrollmentRecord, error) {
	unlock := s.locks.lock(caller)
	defer unlock()

	rec, err := s.registry.Update(ctx, caller, newFaceKeyHash, proof)
	if err != nil {
		return EnrollmentRecord{}, err
	}
	s.logger.Info("face updated", logging.Account(caller), logging.KeyHash(newFaceKeyHash))
	return rec, nil
}

// RevokeFace removes caller's enrollment.
func (s *Signer) RevokeFace(ctx context.Context, caller common.Address) (EnrollmentRecord, error) {
	unlock := s.locks.lock(caller)
	defer unlock()

	rec, err := s.registry.Revoke(ctx, caller)
	if err != nil {
		return EnrollmentRecord{}, err
	}
	s.logger.Info("face revoked", logging.Account(caller), logging.KeyHash(rec.FaceKeyHash))
	return rec, nil
}

// ConsumeNonce commits nonce after the host runtime has accepted a recovery.
func (s *Signer) ConsumeNonce(ctx context.Context, caller common.Address, nonce uint64) error {
	unlock := s.locks.lock(caller)
	defer unlock()

	if err := s.nonces.Consume(ctx, caller, nonce); err != nil {
		return err
	}
	s.logger.Info("recovery executed", logging.Account(caller), slog.Uint64("nonce", nonce))
	return nil
}

// Enrollment returns caller's live enrollment, if any.
func (s *Signer) Enrollment(ctx context.Context, caller common.Address) (EnrollmentRecord, bool, error) {
	return s.registry.Enrollment(ctx, caller)
}

// IsEnrolled reports whether caller has a live enrollment.
func (s *Signer) IsEnrolled(ctx context.Context, caller common.Address) (bool, error) {
	return s.registry.IsEnrolled(ctx, caller)
}

// EnrolledHash returns caller's committed hash or the zero hash.
func (s *Signer) EnrolledHash(ctx context.Context, caller common.Address) (common.Hash, error) {
	return s.registry.EnrolledHash(ctx, caller)
}

// Nonce returns the last nonce consumed by caller.
func (s *Signer) Nonce(ctx context.Context, caller common.Address) (uint64, error) {
	return s.nonces.LastUsed(ctx, caller)
}
