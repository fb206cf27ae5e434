package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// New creates a JSON slog logger on stdout configured at the provided level.
// If the level string is invalid it defaults to info.
func New(level string) *slog.Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(level string, w io.Writer) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With(slog.String("service", "faceguard"))
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// Account renders an account address as a log attribute.
func Account(addr common.Address) slog.Attr {
	return slog.String("account", addr.Hex())
}

// KeyHash renders a face key hash as a log attribute. Only commitments are
// ever logged, never proofs or signatures.
func KeyHash(h common.Hash) slog.Attr {
	return slog.String("face_key_hash", h.Hex())
}
