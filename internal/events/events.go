package events

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Kind names an observable recovery lifecycle event.
type Kind string

const (
	// KindFaceEnrolled is emitted by enroll and update.
	KindFaceEnrolled Kind = "FaceEnrolled"
	// KindFaceRevoked is emitted by revoke and carries the removed hash.
	KindFaceRevoked Kind = "FaceRevoked"
	// KindRecoveryExecuted is emitted when a recovery nonce is consumed.
	KindRecoveryExecuted Kind = "RecoveryExecuted"
)

// Event describes a committed state change for one account.
type Event struct {
	Kind        Kind
	Account     common.Address
	FaceKeyHash common.Hash
	Nonce       uint64
	Timestamp   time.Time
}

// Fields flattens the event into string pairs for log and stream sinks.
func (e Event) Fields() map[string]string {
	fields := map[string]string{
		"kind":      string(e.Kind),
		"account":   e.Account.Hex(),
		"timestamp": strconv.FormatInt(e.Timestamp.Unix(), 10),
	}
	switch e.Kind {
	case KindRecoveryExecuted:
		fields["nonce"] = strconv.FormatUint(e.Nonce, 10)
	default:
		fields["face_key_hash"] = e.FaceKeyHash.Hex()
	}
	return fields
}

// Publisher delivers events to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LoggerPublisher writes events to the structured logger.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a publisher backed by slog.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logger}
}

// Publish writes the event to the structured logger.
func (p *LoggerPublisher) Publish(_ context.Context, event Event) error {
	if p == nil || p.logger == nil {
		return nil
	}
	attrs := []any{slog.String("kind", string(event.Kind)), slog.String("account", event.Account.Hex()), slog.Time("timestamp", event.Timestamp)}
	if event.Kind == KindRecoveryExecuted {
		attrs = append(attrs, slog.Uint64("nonce", event.Nonce))
	} else {
		attrs = append(attrs, slog.String("face_key_hash", event.FaceKeyHash.Hex()))
	}
	p.logger.Info("event", attrs...)
	return nil
}

// Multi fans an event out to every publisher and returns the first error.
type Multi []Publisher

// Publish delivers the event to all publishers even when one fails.
func (m Multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
