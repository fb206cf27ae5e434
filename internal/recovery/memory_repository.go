package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type memoryEnrollmentStore struct {
	mu          sync.RWMutex
	faceKeyHash map[common.Address]common.Hash
	enrolledAt  map[common.Address]time.Time
}

// NewMemoryEnrollmentStore builds an in-memory enrollment store for tests
// and local development.
func NewMemoryEnrollmentStore() EnrollmentStore {
	return &memoryEnrollmentStore{
		faceKeyHash: make(map[common.Address]common.Hash),
		enrolledAt:  make(map[common.Address]time.Time),
	}
}

func (s *memoryEnrollmentStore) Get(_ context.Context, account common.Address) (EnrollmentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.faceKeyHash[account]
	if !ok {
		return EnrollmentRecord{}, false, nil
	}
	return EnrollmentRecord{Account: account, FaceKeyHash: h, EnrolledAt: s.enrolledAt[account]}, true, nil
}

func (s *memoryEnrollmentStore) Create(_ context.Context, rec EnrollmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.faceKeyHash[rec.Account]; exists {
		return ErrFaceAlreadyEnrolled
	}
	s.faceKeyHash[rec.Account] = rec.FaceKeyHash
	s.enrolledAt[rec.Account] = rec.EnrolledAt
	return nil
}

func (s *memoryEnrollmentStore) Replace(_ context.Context, rec EnrollmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faceKeyHash[rec.Account] = rec.FaceKeyHash
	s.enrolledAt[rec.Account] = rec.EnrolledAt
	return nil
}

func (s *memoryEnrollmentStore) Delete(_ context.Context, account common.Address) (EnrollmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.faceKeyHash[account]
	if !ok {
		return EnrollmentRecord{}, ErrFaceNotEnrolled
	}
	rec := EnrollmentRecord{Account: account, FaceKeyHash: h, EnrolledAt: s.enrolledAt[account]}
	delete(s.faceKeyHash, account)
	delete(s.enrolledAt, account)
	return rec, nil
}

type memoryNonceStore struct {
	mu     sync.Mutex
	nonces map[common.Address]uint64
}

// NewMemoryNonceStore builds an in-memory nonce store.
func NewMemoryNonceStore() NonceStore {
	return &memoryNonceStore{nonces: make(map[common.Address]uint64)}
}

func (s *memoryNonceStore) LastUsed(_ context.Context, account common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonces[account], nil
}

func (s *memoryNonceStore) Advance(_ context.Context, account common.Address, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nonce <= s.nonces[account] {
		return ErrNonceAlreadyUsed
	}
	s.nonces[account] = nonce
	return nil
}
