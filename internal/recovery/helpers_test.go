package recovery

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/faceguard/faceguard/internal/events"
	"github.com/faceguard/faceguard/internal/liveness"
	"github.com/faceguard/faceguard/internal/logging"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	testDigest = crypto.Keccak256Hash([]byte("recover alice"))
	goodProof  = bytes.Repeat([]byte{0xab}, liveness.MinProofLength)
)

// faceKey is a face-derived secp256k1 key and the hash it is enrolled under.
type faceKey struct {
	key  *ecdsa.PrivateKey
	hash common.Hash
}

func newFaceKey(t *testing.T) faceKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return faceKey{key: key, hash: FaceKeyHashOf(crypto.PubkeyToAddress(key.PublicKey))}
}

func (f faceKey) sign(t *testing.T, digest common.Hash) []byte {
	t.Helper()
	sig, err := crypto.Sign(digest.Bytes(), f.key)
	require.NoError(t, err)
	return sig
}

func (f faceKey) pack(t *testing.T, digest common.Hash, nonce uint64, proof []byte) []byte {
	t.Helper()
	blob, err := EncodePackedSignature(PackedSignature{LivenessProof: proof, FaceSignature: f.sign(t, digest), Nonce: nonce})
	require.NoError(t, err)
	return blob
}

// countingVerifier accepts proofs while accept is set and counts calls.
type countingVerifier struct {
	accept atomic.Bool
	calls  atomic.Int64
}

func newCountingVerifier(accept bool) *countingVerifier {
	v := &countingVerifier{}
	v.accept.Store(accept)
	return v
}

func (v *countingVerifier) Verify(_ context.Context, _ []byte) (bool, error) {
	v.calls.Add(1)
	return v.accept.Load(), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSigner(t *testing.T, verifier liveness.Verifier) (*Signer, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	s, err := New(Deps{
		Enrollments: NewMemoryEnrollmentStore(),
		Nonces:      NewMemoryNonceStore(),
		Verifier:    verifier,
		Publisher:   pub,
		Logger:      logging.Discard(),
		Now:         func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return s, pub
}
