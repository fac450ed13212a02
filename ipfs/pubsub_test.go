package ipfs_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/cidutil"
	"xdao.co/catchat/ipfs"
	"xdao.co/catchat/ipfs/ipfstest"
)

func subscribe(t *testing.T, n *ipfstest.Node, c *ipfs.Client, ctx context.Context, topic string) *ipfs.Subscription {
	t.Helper()
	sub, err := c.PubsubSub(ctx, topic)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	n.WaitSubscribers(t, topic, 1)
	return sub
}

func TestPubsubDelivery(t *testing.T) {
	for _, mb := range []bool{false, true} {
		n := ipfstest.New(t, nil)
		n.Multibase = mb
		c := newClient(t, n)
		ctx := context.Background()

		sub := subscribe(t, n, c, ctx, "chat")
		require.NoError(t, c.PubsubPub(ctx, "chat", []byte(`{"hello":"world"}`)))

		msg, err := sub.Next()
		require.NoError(t, err)
		require.Equal(t, n.ID(), msg.From)
		require.True(t, msg.Sender.Equals(cidutil.PeerCID(n.ID())))
		require.Equal(t, `{"hello":"world"}`, string(msg.Data))

		other := ipfstest.PeerID(t, "someone-else")
		n.Deliver("chat", other, []byte("second"))
		msg, err = sub.Next()
		require.NoError(t, err)
		require.Equal(t, other, msg.From)
		require.Equal(t, "second", string(msg.Data))
	}
}

func TestPubsubErrorEnvelopeContinues(t *testing.T) {
	n := ipfstest.New(t, nil)
	c := newClient(t, n)
	sub := subscribe(t, n, c, context.Background(), "chat")

	n.Inject("chat", []byte(`{"Message":"slow consumer","Code":0,"Type":"error"}`))
	n.Deliver("chat", n.ID(), []byte("after"))

	_, err := sub.Next()
	var apiErr *ipfs.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	require.Equal(t, "slow consumer", apiErr.Message)

	msg, err := sub.Next()
	require.NoError(t, err)
	require.Equal(t, "after", string(msg.Data))
}

func TestPubsubMalformedRecordEndsStream(t *testing.T) {
	n := ipfstest.New(t, nil)
	c := newClient(t, n)
	sub := subscribe(t, n, c, context.Background(), "chat")

	n.Inject("chat", []byte(`{"unexpected":true}`))
	n.Deliver("chat", n.ID(), []byte("never seen"))

	_, err := sub.Next()
	require.True(t, chaterr.IsKind(err, chaterr.KindProtocolDecode), "got %v", err)

	_, err = sub.Next()
	require.True(t, chaterr.IsKind(err, chaterr.KindProtocolDecode), "stream must stay terminated")
}

func TestPubsubInvalidEnvelopeEncoding(t *testing.T) {
	n := ipfstest.New(t, nil)
	c := newClient(t, n)
	sub := subscribe(t, n, c, context.Background(), "chat")

	n.Inject("chat", []byte(`{"from":"!!not base64!!","data":""}`))
	_, err := sub.Next()
	require.True(t, chaterr.IsKind(err, chaterr.KindProtocolDecode), "got %v", err)
}

func TestPubsubCancellation(t *testing.T) {
	n := ipfstest.New(t, nil)
	c := newClient(t, n)
	ctx, cancel := context.WithCancel(context.Background())
	sub := subscribe(t, n, c, ctx, "chat")

	n.Deliver("chat", n.ID(), []byte("one"))
	msg, err := sub.Next()
	require.NoError(t, err)
	require.Equal(t, "one", string(msg.Data))

	// In flight on the wire when the token fires.
	n.Deliver("chat", n.ID(), []byte("two"))
	cancel()

	_, err = sub.Next()
	require.ErrorIs(t, err, io.EOF)
	_, err = sub.Next()
	require.ErrorIs(t, err, io.EOF)

	require.Eventually(t, func() bool { return n.Subscribers("chat") == 0 },
		5*time.Second, 5*time.Millisecond, "connection must be released")
}

func TestPubsubCloseUnblocksNext(t *testing.T) {
	n := ipfstest.New(t, nil)
	c := newClient(t, n)
	sub := subscribe(t, n, c, context.Background(), "chat")

	done := make(chan error, 1)
	go func() {
		_, err := sub.Next()
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, sub.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, io.EOF)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestPubsubDisconnectIsTransportError(t *testing.T) {
	n := ipfstest.New(t, nil)
	c := newClient(t, n)
	sub := subscribe(t, n, c, context.Background(), "chat")

	n.DropSubscribers()
	_, err := sub.Next()
	require.True(t, chaterr.IsKind(err, chaterr.KindTransport), "got %v", err)
}

func TestPubsubDisconnectMidRecordIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"from":"EiD`))
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	c, err := ipfs.New(srv.URL+"/api/v0/", ipfs.Options{})
	require.NoError(t, err)
	sub, err := c.PubsubSub(context.Background(), "chat")
	require.NoError(t, err)
	defer sub.Close()

	_, err = sub.Next()
	require.True(t, chaterr.IsKind(err, chaterr.KindTransport), "got %v", err)
	require.False(t, chaterr.IsKind(err, chaterr.KindProtocolDecode))

	// The stream stays ended.
	_, again := sub.Next()
	require.Equal(t, err, again)
}

func TestPubsubAllSequence(t *testing.T) {
	n := ipfstest.New(t, nil)
	c := newClient(t, n)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := subscribe(t, n, c, ctx, "chat")

	for _, s := range []string{"a", "b", "c"} {
		n.Deliver("chat", n.ID(), []byte(s))
	}

	var got []string
	for msg, err := range sub.All() {
		require.NoError(t, err)
		got = append(got, string(msg.Data))
		if len(got) == 3 {
			break
		}
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Eventually(t, func() bool { return n.Subscribers("chat") == 0 },
		5*time.Second, 5*time.Millisecond)
}

func TestDeliverAfterSubscriberLeftDoesNotBlock(t *testing.T) {
	n := ipfstest.New(t, nil)
	c := newClient(t, n)
	sub := subscribe(t, n, c, context.Background(), "chat")
	require.NoError(t, sub.Close())

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more than a subscriber buffers.
		for i := 0; i < 500; i++ {
			n.Deliver("chat", n.ID(), []byte("late"))
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Deliver blocked on a departed subscriber")
	}
	n.WaitSubscribers(t, "chat", 0)
}
