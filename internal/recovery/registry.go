package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/faceguard/faceguard/internal/events"
	"github.com/faceguard/faceguard/internal/liveness"
	"github.com/faceguard/faceguard/internal/logging"
)

// Registry is the enrollment state machine:
// Unenrolled -> Enrolled -> {Unenrolled via Revoke, Enrolled' via Update}.
type Registry struct {
	store     EnrollmentStore
	liveness  *liveness.Guard
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewRegistry wires an enrollment registry.
func NewRegistry(store EnrollmentStore, guard *liveness.Guard, publisher events.Publisher, now func() time.Time, logger *slog.Logger) *Registry {
	return &Registry{store: store, liveness: guard, publisher: publisher, now: now, logger: logger}
}

// Enroll commits faceKeyHash for an unenrolled account.
func (r *Registry) Enroll(ctx context.Context, account common.Address, faceKeyHash common.Hash, proof []byte) (EnrollmentRecord, error) {
	if err := validateEnrollment(account, faceKeyHash); err != nil {
		return EnrollmentRecord{}, err
	}

	_, enrolled, err := r.store.Get(ctx, account)
	if err != nil {
		return EnrollmentRecord{}, fmt.Errorf("load enrollment: %w", err)
	}
	if enrolled {
		return EnrollmentRecord{}, ErrFaceAlreadyEnrolled
	}

	if err := r.verifyProof(ctx, proof); err != nil {
		return EnrollmentRecord{}, err
	}

	rec := EnrollmentRecord{Account: account, FaceKeyHash: faceKeyHash, EnrolledAt: r.now().UTC()}
	if err := r.store.Create(ctx, rec); err != nil {
		return EnrollmentRecord{}, err
	}

	r.publish(ctx, events.Event{Kind: events.KindFaceEnrolled, Account: account, FaceKeyHash: faceKeyHash, Timestamp: rec.EnrolledAt})
	return rec, nil
}

// Update overwrites the enrollment with newFaceKeyHash. Unlike Enroll it does
// not require the account to be unenrolled first.
func (r *Registry) Update(ctx context.Context, account common.Address, newFaceKeyHash common.Hash, proof []byte) (EnrollmentRecord, error) {
	if err := validateEnrollment(account, newFaceKeyHash); err != nil {
		return EnrollmentRecord{}, err
	}
	if err := r.verifyProof(ctx, proof); err != nil {
		return EnrollmentRecord{}, err
	}

	rec := EnrollmentRecord{Account: account, FaceKeyHash: newFaceKeyHash, EnrolledAt: r.now().UTC()}
	if err := r.store.Replace(ctx, rec); err != nil {
		return EnrollmentRecord{}, err
	}

	r.publish(ctx, events.Event{Kind: events.KindFaceEnrolled, Account: account, FaceKeyHash: newFaceKeyHash, Timestamp: rec.EnrolledAt})
	return rec, nil
}

// Revoke deletes the enrollment and returns the removed record.
func (r *Registry) Revoke(ctx context.Context, account common.Address) (EnrollmentRecord, error) {
	if account == (common.Address{}) {
		return EnrollmentRecord{}, ErrZeroAddress
	}
	rec, err := r.store.Delete(ctx, account)
	if err != nil {
		return EnrollmentRecord{}, err
	}

	r.publish(ctx, events.Event{Kind: events.KindFaceRevoked, Account: account, FaceKeyHash: rec.FaceKeyHash, Timestamp: r.now().UTC()})
	return rec, nil
}

// Enrollment returns the live record, if any.
func (r *Registry) Enrollment(ctx context.Context, account common.Address) (EnrollmentRecord, bool, error) {
	return r.store.Get(ctx, account)
}

// EnrolledHash returns the committed hash, or the zero hash when unenrolled.
func (r *Registry) EnrolledHash(ctx context.Context, account common.Address) (common.Hash, error) {
	rec, _, err := r.store.Get(ctx, account)
	return rec.FaceKeyHash, err
}

// IsEnrolled reports whether account has a live enrollment.
func (r *Registry) IsEnrolled(ctx context.Context, account common.Address) (bool, error) {
	_, found, err := r.store.Get(ctx, account)
	return found, err
}

func (r *Registry) verifyProof(ctx context.Context, proof []byte) error {
	if err := liveness.CheckLength(proof); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLivenessProof, ErrInvalidProofLength)
	}
	if !r.liveness.Check(ctx, proof) {
		return ErrInvalidLivenessProof
	}
	return nil
}

func (r *Registry) publish(ctx context.Context, event events.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("publish event failed", slog.String("kind", string(event.Kind)), logging.Account(event.Account), slog.Any("error", err))
	}
}

func validateEnrollment(account common.Address, faceKeyHash common.Hash) error {
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	if faceKeyHash == (common.Hash{}) {
		return ErrZeroFaceKeyHash
	}
	return nil
}
