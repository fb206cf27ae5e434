package auth

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionAudience = "faceguard"

// ErrInvalidToken covers every session token failure.
var ErrInvalidToken = errors.New("invalid session token")

type sessionClaims struct {
	jwt.RegisteredClaims
}

func signSession(account common.Address, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   account.Hex(),
		Audience:  jwt.ClaimStrings{sessionAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func parseSession(token string, secret []byte, now time.Time) (common.Address, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return common.Address{}, ErrInvalidToken
	}
	if !common.IsHexAddress(claims.Subject) {
		return common.Address{}, ErrInvalidToken
	}
	account := common.HexToAddress(claims.Subject)
	if account == (common.Address{}) {
		return common.Address{}, ErrInvalidToken
	}
	return account, nil
}
