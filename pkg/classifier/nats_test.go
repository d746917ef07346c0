package classifier_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionguard/pkg/classifier"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second), "embedded NATS not ready")
	return srv.ClientURL()
}

func TestNATS_Notify(t *testing.T) {
	t.Parallel()

	url := startTestNATS(t)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(classifier.DefaultSubject, ch)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	require.NoError(t, nc.Flush())

	pub, err := classifier.NewNATS(url, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	closedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Notify(context.Background(), classifier.Notification{
		SessionID: "s1",
		ClientID:  "203.0.113.7",
		ClosedAt:  closedAt,
	}))

	select {
	case msg := <-ch:
		var got classifier.Notification
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, "s1", got.SessionID)
		assert.Equal(t, "203.0.113.7", got.ClientID)
		assert.True(t, closedAt.Equal(got.ClosedAt))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published notification")
	}
}

func TestNATS_NotifyEmptySession(t *testing.T) {
	t.Parallel()

	url := startTestNATS(t)
	pub, err := classifier.NewNATS(url, "custom.subject")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	assert.ErrorIs(t, pub.Notify(context.Background(), classifier.Notification{}), classifier.ErrEmptySessionID)
}

func TestNewNATS_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := classifier.NewNATS("nats://127.0.0.1:1", "", nats.Timeout(100*time.Millisecond))
	assert.Error(t, err)
}
