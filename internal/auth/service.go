package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/faceguard/faceguard/internal/ethsig"
)

var (
	// ErrZeroAccount rejects the zero address as a caller.
	ErrZeroAccount = errors.New("account must be a non-zero address")
	// ErrSignatureMismatch is returned when the challenge signature does not
	// recover to the claimed account.
	ErrSignatureMismatch = errors.New("challenge signature does not match account")
)

// Challenge is the message an account signs with its primary key.
type Challenge struct {
	Account   common.Address
	Message   string
	ExpiresAt time.Time
}

// Session is an issued session token.
type Session struct {
	Account   common.Address
	Token     string
	ExpiresAt time.Time
}

// Service authenticates callers: an account proves control of its address by
// signing a one-time challenge and receives a short-lived session token.
type Service struct {
	store        ChallengeStore
	secret       []byte
	sessionTTL   time.Duration
	challengeTTL time.Duration
	now          func() time.Time
}

// NewService builds an auth service.
func NewService(store ChallengeStore, secret string, sessionTTL, challengeTTL time.Duration) *Service {
	return &Service{store: store, secret: []byte(secret), sessionTTL: sessionTTL, challengeTTL: challengeTTL, now: time.Now}
}

// IssueChallenge creates and stores a fresh challenge for account.
func (s *Service) IssueChallenge(ctx context.Context, account common.Address) (Challenge, error) {
	if account == (common.Address{}) {
		return Challenge{}, ErrZeroAccount
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Challenge{}, fmt.Errorf("generate challenge: %w", err)
	}
	msg := challengeMessage(account, hex.EncodeToString(raw))
	if err := s.store.Put(ctx, account, msg, s.challengeTTL); err != nil {
		return Challenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return Challenge{Account: account, Message: msg, ExpiresAt: s.now().Add(s.challengeTTL).UTC()}, nil
}

// OpenSession consumes the outstanding challenge and, if signature is the
// account's personal_sign over it, issues a session token.
func (s *Service) OpenSession(ctx context.Context, account common.Address, signature []byte) (Session, error) {
	if account == (common.Address{}) {
		return Session{}, ErrZeroAccount
	}
	msg, err := s.store.Take(ctx, account)
	if err != nil {
		return Session{}, err
	}
	signer, err := ethsig.RecoverPersonal([]byte(msg), signature)
	if err != nil || signer != account {
		return Session{}, ErrSignatureMismatch
	}
	token, exp, err := signSession(account, s.secret, s.now(), s.sessionTTL)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Account: account, Token: token, ExpiresAt: exp.UTC()}, nil
}

// Authenticate validates a session token and returns its account.
func (s *Service) Authenticate(token string) (common.Address, error) {
	return parseSession(token, s.secret, s.now())
}

func challengeMessage(account common.Address, nonce string) string {
	return fmt.Sprintf("FaceGuard session request\nAccount: %s\nChallenge: %s", account.Hex(), nonce)
}
