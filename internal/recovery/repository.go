package recovery

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// EnrollmentStore persists face enrollments keyed by account. Each method is
// atomic on its own.
type EnrollmentStore interface {
	// Get returns the live record, or found=false when the account is unenrolled.
	Get(ctx context.Context, account common.Address) (rec EnrollmentRecord, found bool, err error)
	// Create inserts rec unless the account is enrolled, in which case it
	// returns ErrFaceAlreadyEnrolled.
	Create(ctx context.Context, rec EnrollmentRecord) error
	// Replace inserts or overwrites rec.
	Replace(ctx context.Context, rec EnrollmentRecord) error
	// Delete removes and returns the live record, or ErrFaceNotEnrolled.
	Delete(ctx context.Context, account common.Address) (EnrollmentRecord, error)
}

// NonceStore persists the last consumed recovery nonce per account.
type NonceStore interface {
	// LastUsed returns 0 for accounts that never consumed a nonce.
	LastUsed(ctx context.Context, account common.Address) (uint64, error)
	// Advance stores nonce if it is strictly greater than the stored value and
	// otherwise returns ErrNonceAlreadyUsed.
	Advance(ctx context.Context, account common.Address, nonce uint64) error
}
