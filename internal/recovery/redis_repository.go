package recovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// Keys live in three independent keyspaces, one per persisted map:
// <ns>:face_key_hash:<account>, <ns>:enrolled_at:<account>, <ns>:nonce:<account>.
func redisKey(namespace, space string, account common.Address) string {
	return fmt.Sprintf("%s:%s:%s", namespace, space, strings.ToLower(account.Hex()))
}

var createEnrollmentScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

var deleteEnrollmentScript = redis.NewScript(`
local h = redis.call('GET', KEYS[1])
if not h then
  return false
end
local at = redis.call('GET', KEYS[2]) or ''
redis.call('DEL', KEYS[1], KEYS[2])
return {h, at}
`)

// Stored nonces are canonical decimals, so comparing length then bytes is a
// numeric comparison without Lua's float precision limits.
var advanceNonceScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local n = ARGV[1]
if cur then
  if string.len(n) < string.len(cur) or (string.len(n) == string.len(cur) and n <= cur) then
    return 0
  end
end
redis.call('SET', KEYS[1], n)
return 1
`)

// RedisEnrollmentStore implements EnrollmentStore on Redis.
type RedisEnrollmentStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisEnrollmentStore builds a Redis-backed enrollment store.
func NewRedisEnrollmentStore(client *redis.Client, namespace string) *RedisEnrollmentStore {
	return &RedisEnrollmentStore{client: client, namespace: namespace}
}

func (s *RedisEnrollmentStore) keys(account common.Address) []string {
	return []string{
		redisKey(s.namespace, "face_key_hash", account),
		redisKey(s.namespace, "enrolled_at", account),
	}
}

// Get reads both keys of the enrollment in one round trip.
func (s *RedisEnrollmentStore) Get(ctx context.Context, account common.Address) (EnrollmentRecord, bool, error) {
	values, err := s.client.MGet(ctx, s.keys(account)...).Result()
	if err != nil {
		return EnrollmentRecord{}, false, err
	}
	hash, ok := values[0].(string)
	if !ok {
		return EnrollmentRecord{}, false, nil
	}
	at, _ := values[1].(string)
	return decodeRedisRecord(account, hash, at)
}

// Create inserts the enrollment unless the account already has one.
func (s *RedisEnrollmentStore) Create(ctx context.Context, rec EnrollmentRecord) error {
	created, err := createEnrollmentScript.Run(ctx, s.client, s.keys(rec.Account), rec.FaceKeyHash.Hex(), encodeTime(rec.EnrolledAt)).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrFaceAlreadyEnrolled
	}
	return nil
}

// Replace overwrites both keys atomically.
func (s *RedisEnrollmentStore) Replace(ctx context.Context, rec EnrollmentRecord) error {
	keys := s.keys(rec.Account)
	return s.client.MSet(ctx, keys[0], rec.FaceKeyHash.Hex(), keys[1], encodeTime(rec.EnrolledAt)).Err()
}

// Delete removes the enrollment and returns what was removed.
func (s *RedisEnrollmentStore) Delete(ctx context.Context, account common.Address) (EnrollmentRecord, error) {
	res, err := deleteEnrollmentScript.Run(ctx, s.client, s.keys(account)).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return EnrollmentRecord{}, ErrFaceNotEnrolled
		}
		return EnrollmentRecord{}, err
	}
	if len(res) != 2 {
		return EnrollmentRecord{}, fmt.Errorf("unexpected delete reply of %d values", len(res))
	}
	rec, _, err := decodeRedisRecord(account, res[0], res[1])
	return rec, err
}

// RedisNonceStore implements NonceStore on Redis.
type RedisNonceStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisNonceStore builds a Redis-backed nonce store.
func NewRedisNonceStore(client *redis.Client, namespace string) *RedisNonceStore {
	return &RedisNonceStore{client: client, namespace: namespace}
}

// LastUsed returns the stored nonce or 0.
func (s *RedisNonceStore) LastUsed(ctx context.Context, account common.Address) (uint64, error) {
	text, err := s.client.Get(ctx, redisKey(s.namespace, "nonce", account)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored nonce: %w", err)
	}
	return n, nil
}

// Advance runs the compare-and-set as a Lua script.
func (s *RedisNonceStore) Advance(ctx context.Context, account common.Address, nonce uint64) error {
	if nonce == 0 {
		return ErrNonceAlreadyUsed
	}
	ok, err := advanceNonceScript.Run(ctx, s.client, []string{redisKey(s.namespace, "nonce", account)}, strconv.FormatUint(nonce, 10)).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrNonceAlreadyUsed
	}
	return nil
}

func encodeTime(t time.Time) string {
	return strconv.FormatInt(t.UTC().UnixNano(), 10)
}

func decodeRedisRecord(account common.Address, hash, at string) (EnrollmentRecord, bool, error) {
	rec := EnrollmentRecord{Account: account, FaceKeyHash: common.HexToHash(hash)}
	if at != "" {
		nanos, err := strconv.ParseInt(at, 10, 64)
		if err != nil {
			return EnrollmentRecord{}, false, fmt.Errorf("parse enrolled_at: %w", err)
		}
		rec.EnrolledAt = time.Unix(0, nanos).UTC()
	}
	return rec, true, nil
}
