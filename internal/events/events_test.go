package events

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/faceguard/faceguard/internal/logging"
)

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, Event) error {
	p.calls++
	return errors.New("sink down")
}

type recordingPublisher struct{ got []Event }

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.got = append(p.got, e)
	return nil
}

func TestMultiDeliversToAll(t *testing.T) {
	failing := &failingPublisher{}
	rec := &recordingPublisher{}
	m := Multi{failing, NewLoggerPublisher(logging.Discard()), rec}

	err := m.Publish(context.Background(), Event{Kind: KindFaceEnrolled})
	require.Error(t, err)
	require.Equal(t, 1, failing.calls)
	require.Len(t, rec.got, 1)
}

func TestRedisStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub := NewRedisStreamPublisher(client, "faceguard:events")
	ctx := context.Background()
	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	require.NoError(t, pub.Publish(ctx, Event{Kind: KindRecoveryExecuted, Account: account, Nonce: 7, Timestamp: time.Unix(1700000000, 0)}))

	msgs, err := client.XRange(ctx, "faceguard:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "RecoveryExecuted", msgs[0].Values["kind"])
	require.Equal(t, "7", msgs[0].Values["nonce"])
	require.Equal(t, account.Hex(), msgs[0].Values["account"])
	require.Equal(t, "1700000000", msgs[0].Values["timestamp"])
	require.NotContains(t, msgs[0].Values, "face_key_hash")
}
