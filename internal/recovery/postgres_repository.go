package recovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS face_enrollments (
    account       BYTEA PRIMARY KEY CHECK (octet_length(account) = 20),
    face_key_hash BYTEA NOT NULL CHECK (octet_length(face_key_hash) = 32),
    enrolled_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS recovery_nonces (
    account BYTEA PRIMARY KEY CHECK (octet_length(account) = 20),
    nonce   NUMERIC(20, 0) NOT NULL CHECK (nonce > 0)
);`

// EnsureSchema creates the recovery tables when they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure recovery schema: %w", err)
	}
	return nil
}

// PostgresEnrollmentStore implements EnrollmentStore using PostgreSQL.
type PostgresEnrollmentStore struct {
	db *pgxpool.Pool
}

// NewPostgresEnrollmentStore builds a Postgres-backed enrollment store.
func NewPostgresEnrollmentStore(db *pgxpool.Pool) *PostgresEnrollmentStore {
	return &PostgresEnrollmentStore{db: db}
}

// Get fetches the live enrollment for account.
func (s *PostgresEnrollmentStore) Get(ctx context.Context, account common.Address) (EnrollmentRecord, bool, error) {
	row := s.db.QueryRow(ctx, `SELECT face_key_hash, enrolled_at FROM face_enrollments WHERE account = $1`, account.Bytes())
	var (
		hash       []byte
		enrolledAt time.Time
	)
	if err := row.Scan(&hash, &enrolledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EnrollmentRecord{}, false, nil
		}
		return EnrollmentRecord{}, false, err
	}
	return EnrollmentRecord{Account: account, FaceKeyHash: common.BytesToHash(hash), EnrolledAt: enrolledAt.UTC()}, true, nil
}

// Create inserts the enrollment unless one already exists.
func (s *PostgresEnrollmentStore) Create(ctx context.Context, rec EnrollmentRecord) error {
	cmd, err := s.db.Exec(ctx, `INSERT INTO face_enrollments (account, face_key_hash, enrolled_at)
        VALUES ($1, $2, $3) ON CONFLICT (account) DO NOTHING`, rec.Account.Bytes(), rec.FaceKeyHash.Bytes(), rec.EnrolledAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrFaceAlreadyEnrolled
	}
	return nil
}

// Replace upserts the enrollment.
func (s *PostgresEnrollmentStore) Replace(ctx context.Context, rec EnrollmentRecord) error {
	_, err := s.db.Exec(ctx, `INSERT INTO face_enrollments (account, face_key_hash, enrolled_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (account) DO UPDATE SET face_key_hash = EXCLUDED.face_key_hash, enrolled_at = EXCLUDED.enrolled_at`,
		rec.Account.Bytes(), rec.FaceKeyHash.Bytes(), rec.EnrolledAt.UTC())
	return err
}

// Delete removes the enrollment and returns what was removed.
func (s *PostgresEnrollmentStore) Delete(ctx context.Context, account common.Address) (EnrollmentRecord, error) {
	row := s.db.QueryRow(ctx, `DELETE FROM face_enrollments WHERE account = $1 RETURNING face_key_hash, enrolled_at`, account.Bytes())
	var (
		hash       []byte
		enrolledAt time.Time
	)
	if err := row.Scan(&hash, &enrolledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EnrollmentRecord{}, ErrFaceNotEnrolled
		}
		return EnrollmentRecord{}, err
	}
	return EnrollmentRecord{Account: account, FaceKeyHash: common.BytesToHash(hash), EnrolledAt: enrolledAt.UTC()}, nil
}

// PostgresNonceStore implements NonceStore using PostgreSQL.
type PostgresNonceStore struct {
	db *pgxpool.Pool
}

// NewPostgresNonceStore builds a Postgres-backed nonce store.
func NewPostgresNonceStore(db *pgxpool.Pool) *PostgresNonceStore {
	return &PostgresNonceStore{db: db}
}

// LastUsed returns the stored nonce or 0.
func (s *PostgresNonceStore) LastUsed(ctx context.Context, account common.Address) (uint64, error) {
	var text string
	err := s.db.QueryRow(ctx, `SELECT nonce::text FROM recovery_nonces WHERE account = $1`, account.Bytes()).Scan(&text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

// Advance performs the monotonic compare-and-set in a single statement so
// concurrent writers on other instances cannot both succeed.
func (s *PostgresNonceStore) Advance(ctx context.Context, account common.Address, nonce uint64) error {
	if nonce == 0 {
		return ErrNonceAlreadyUsed
	}
	cmd, err := s.db.Exec(ctx, `INSERT INTO recovery_nonces (account, nonce) VALUES ($1, $2::text::numeric)
        ON CONFLICT (account) DO UPDATE SET nonce = EXCLUDED.nonce
        WHERE recovery_nonces.nonce < EXCLUDED.nonce`, account.Bytes(), strconv.FormatUint(nonce, 10))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNonceAlreadyUsed
	}
	return nil
}
