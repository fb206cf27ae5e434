package recovery

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// EnrollmentRecord is the single live face commitment of an account.
type EnrollmentRecord struct {
	Account     common.Address
	FaceKeyHash common.Hash
	EnrolledAt  time.Time
}

// PackedSignature is the decoded signature blob handed over by the host
// runtime.
type PackedSignature struct {
	LivenessProof []byte
	FaceSignature []byte
	Nonce         uint64
}

// AuthorizationRequest is built for a single verification call and never
// stored.
type AuthorizationRequest struct {
	Account common.Address
	Digest  common.Hash
	KeyHash common.Hash
	PackedSignature
}

// FaceKeyHashOf returns keccak256 of the 20 address bytes, the commitment a
// face-derived key is enrolled under.
func FaceKeyHashOf(addr common.Address) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(addr.Bytes())
	var out common.Hash
	h.Sum(out[:0])
	return out
}
