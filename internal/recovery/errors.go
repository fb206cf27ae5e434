package recovery

import "errors"

var (
	// ErrInvalidLivenessProof is returned when a liveness proof is malformed
	// or rejected by the verifier.
	ErrInvalidLivenessProof = errors.New("invalid liveness proof")

	// ErrInvalidProofLength accompanies ErrInvalidLivenessProof when the proof
	// fails the structural length check.
	ErrInvalidProofLength = errors.New("invalid proof length")

	// ErrInvalidFaceSignature indicates the face signature does not recover
	// to the key committed by the claimed hash.
	ErrInvalidFaceSignature = errors.New("invalid face signature")

	// ErrNonceAlreadyUsed indicates a nonce not strictly greater than the
	// last consumed one.
	ErrNonceAlreadyUsed = errors.New("nonce already used")

	// ErrFaceNotEnrolled indicates the account has no enrollment.
	ErrFaceNotEnrolled = errors.New("face not enrolled")

	// ErrFaceAlreadyEnrolled is returned by enroll for an enrolled account.
	ErrFaceAlreadyEnrolled = errors.New("face already enrolled")

	// ErrZeroAddress rejects the zero account and a signer built without a
	// liveness verifier.
	ErrZeroAddress = errors.New("zero address")

	// ErrZeroFaceKeyHash rejects the unenrolled sentinel as an enrollment value.
	ErrZeroFaceKeyHash = errors.New("face key hash must be non-zero")

	// ErrMalformedSignature reports a packed signature that cannot be decoded.
	ErrMalformedSignature = errors.New("malformed packed signature")

	// ErrKeyHashMismatch reports a claimed key hash that differs from the
	// enrolled one.
	ErrKeyHashMismatch = errors.New("key hash does not match enrollment")
)
