package recovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/faceguard/faceguard/internal/events"
	"github.com/faceguard/faceguard/internal/logging"
)

// NonceLedger records consumed recovery nonces. Nonces only have to
// increase; gaps are allowed.
type NonceLedger struct {
	store     NonceStore
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewNonceLedger wires a nonce ledger.
func NewNonceLedger(store NonceStore, publisher events.Publisher, now func() time.Time, logger *slog.Logger) *NonceLedger {
	return &NonceLedger{store: store, publisher: publisher, now: now, logger: logger}
}

// LastUsed returns the last consumed nonce, 0 if none.
func (l *NonceLedger) LastUsed(ctx context.Context, account common.Address) (uint64, error) {
	return l.store.LastUsed(ctx, account)
}

// Consume records nonce as used. It fails with ErrNonceAlreadyUsed unless
// nonce is strictly greater than the last consumed one.
func (l *NonceLedger) Consume(ctx context.Context, account common.Address, nonce uint64) error {
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := l.store.Advance(ctx, account, nonce); err != nil {
		return err
	}

	if l.publisher != nil {
		event := events.Event{Kind: events.KindRecoveryExecuted, Account: account, Nonce: nonce, Timestamp: l.now().UTC()}
		if err := l.publisher.Publish(ctx, event); err != nil {
			l.logger.Warn("publish event failed", slog.String("kind", string(event.Kind)), logging.Account(account), slog.Any("error", err))
		}
	}
	return nil
}
