package recovery

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/faceguard/faceguard/internal/ethsig"
	"github.com/faceguard/faceguard/internal/liveness"
)

// Authorizer decides whether a packed face signature authorizes recovery of
// an account. It only reads state.
type Authorizer struct {
	enrollments EnrollmentStore
	nonces      NonceStore
	liveness    *liveness.Guard
}

// NewAuthorizer wires an authorizer over the given stores.
func NewAuthorizer(enrollments EnrollmentStore, nonces NonceStore, guard *liveness.Guard) *Authorizer {
	return &Authorizer{enrollments: enrollments, nonces: nonces, liveness: guard}
}

// Check returns nil when every condition holds, otherwise the first failing
// reason. Local checks run before the remote liveness call; the verdict does
// not depend on the order.
func (a *Authorizer) Check(ctx context.Context, account common.Address, digest common.Hash, signature []byte, keyHash common.Hash) error {
	if account == (common.Address{}) {
		return ErrZeroAddress
	}

	packed, err := DecodePackedSignature(signature)
	if err != nil {
		return err
	}
	req := AuthorizationRequest{Account: account, Digest: digest, KeyHash: keyHash, PackedSignature: packed}

	if err := liveness.CheckLength(req.LivenessProof); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLivenessProof, ErrInvalidProofLength)
	}

	last, err := a.nonces.LastUsed(ctx, account)
	if err != nil {
		return fmt.Errorf("load nonce: %w", err)
	}
	if req.Nonce <= last {
		return ErrNonceAlreadyUsed
	}

	rec, enrolled, err := a.enrollments.Get(ctx, account)
	if err != nil {
		return fmt.Errorf("load enrollment: %w", err)
	}
	if !enrolled {
		return ErrFaceNotEnrolled
	}
	if rec.FaceKeyHash != req.KeyHash {
		return ErrKeyHashMismatch
	}

	signer, err := ethsig.Recover(req.Digest, req.FaceSignature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFaceSignature, err)
	}
	if FaceKeyHashOf(signer) != req.KeyHash {
		return ErrInvalidFaceSignature
	}

	if !a.liveness.Check(ctx, req.LivenessProof) {
		return ErrInvalidLivenessProof
	}
	return nil
}

// IsValid is Check reduced to a boolean. It never fails loudly.
func (a *Authorizer) IsValid(ctx context.Context, account common.Address, digest common.Hash, signature []byte, keyHash common.Hash) bool {
	return a.Check(ctx, account, digest, signature, keyHash) == nil
}
