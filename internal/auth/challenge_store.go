package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// ErrChallengeNotFound is returned when no unexpired challenge exists.
var ErrChallengeNotFound = errors.New("challenge not found or expired")

// ChallengeStore holds outstanding login challenges. Safe for concurrent use.
type ChallengeStore interface {
	// Put stores challenge for account, replacing any previous one.
	Put(ctx context.Context, account common.Address, challenge string, ttl time.Duration) error
	// Take returns and deletes the challenge; a challenge can be taken once.
	Take(ctx context.Context, account common.Address) (string, error)
}

type memoryChallenge struct {
	value     string
	expiresAt time.Time
}

// MemoryChallengeStore keeps challenges in process memory.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[common.Address]memoryChallenge
	now        func() time.Time
}

// NewMemoryChallengeStore builds an in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[common.Address]memoryChallenge), now: time.Now}
}

func (s *MemoryChallengeStore) Put(_ context.Context, account common.Address, challenge string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[account] = memoryChallenge{value: challenge, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryChallengeStore) Take(_ context.Context, account common.Address) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[account]
	if !ok {
		return "", ErrChallengeNotFound
	}
	delete(s.challenges, account)
	if s.now().After(c.expiresAt) {
		return "", ErrChallengeNotFound
	}
	return c.value, nil
}

// RedisChallengeStore keeps challenges in Redis with a TTL.
type RedisChallengeStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisChallengeStore builds a Redis-backed challenge store.
func NewRedisChallengeStore(client *redis.Client, namespace string) *RedisChallengeStore {
	return &RedisChallengeStore{client: client, namespace: namespace}
}

func (s *RedisChallengeStore) key(account common.Address) string {
	return fmt.Sprintf("%s:challenge:%s", s.namespace, strings.ToLower(account.Hex()))
}

func (s *RedisChallengeStore) Put(ctx context.Context, account common.Address, challenge string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(account), challenge, ttl).Err()
}

func (s *RedisChallengeStore) Take(ctx context.Context, account common.Address) (string, error) {
	v, err := s.client.GetDel(ctx, s.key(account)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrChallengeNotFound
		}
		return "", err
	}
	return v, nil
}
