// Package ethsig recovers secp256k1 signers from 65-byte R||S||V signatures.
package ethsig

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrSignatureLength is returned for signatures that are not 65 bytes.
	ErrSignatureLength = errors.New("signature must be 65 bytes")
	// ErrRecoveryID is returned when V is not one of 0, 1, 27 or 28.
	ErrRecoveryID = errors.New("invalid signature recovery id")
	// ErrSignatureValues is returned for out-of-range or high-s R/S values.
	ErrSignatureValues = errors.New("invalid signature values")
)

// Recover returns the address whose key produced sig over digest.
// V may be in either the 0/1 or the 27/28 convention; high-s signatures are
// rejected so that each authorization has exactly one valid encoding.
func Recover(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: got %d", ErrSignatureLength, len(sig))
	}

	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)

	v := normalized[crypto.RecoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, ErrRecoveryID
	}
	normalized[crypto.RecoveryIDOffset] = v

	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, ErrSignatureValues
	}

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverPersonal recovers the signer of an EIP-191 personal_sign message.
func RecoverPersonal(message, sig []byte) (common.Address, error) {
	return Recover(common.BytesToHash(accounts.TextHash(message)), sig)
}
