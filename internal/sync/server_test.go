package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialib/internal/events"
)

type staticTokens map[string]string

func (s staticTokens) VerifyToken(ctx context.Context, token string) (string, error) {
	if uid, ok := s[token]; ok {
		return uid, nil
	}
	return "", errors.New("invalid token")
}

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ln.Addr().String(), NewHub(), staticTokens{"tok-a": "user-a", "tok-b": "user-b"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv, ln.Addr().String()
}

type testClient struct {
	conn net.Conn
	sc   *bufio.Scanner
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{conn: conn, sc: bufio.NewScanner(conn)}
}

func (c *testClient) read(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.True(t, c.sc.Scan(), "read: %v", c.sc.Err())
	require.NoError(t, json.Unmarshal(c.sc.Bytes(), v))
}

func (c *testClient) auth(t *testing.T, token string) Message {
	t.Helper()
	var welcome Message
	c.read(t, &welcome)
	require.Equal(t, MsgWelcome, welcome.Type)

	_, err := c.conn.Write([]byte(`{"type":"auth","token":"` + token + `"}` + "\n"))
	require.NoError(t, err)

	var reply Message
	c.read(t, &reply)
	return reply
}

func TestServerRejectsBadToken(t *testing.T) {
	_, addr := startServer(t)
	c := dial(t, addr)

	reply := c.auth(t, "nope")
	assert.Equal(t, MsgError, reply.Type)
	assert.Equal(t, "invalid token", reply.Message)
}

func TestServerDeliversOnlyOwnEvents(t *testing.T) {
	srv, addr := startServer(t)
	c := dial(t, addr)

	reply := c.auth(t, "tok-a")
	require.Equal(t, MsgAuthOK, reply.Type)
	assert.Equal(t, "user-a", reply.UserID)

	ctx := context.Background()
	require.NoError(t, srv.Hub.Publish(ctx, events.TopicLibraryUpdated,
		events.LibraryEvent{ID: "evt-b", Type: events.TypeLibraryUpdate, UserID: "user-b", MediaID: 1}))
	require.NoError(t, srv.Hub.Publish(ctx, events.TopicLibraryDeleted,
		events.LibraryEvent{ID: "evt-a", Type: events.TypeLibraryDelete, UserID: "user-a", MediaID: 2}))

	var got events.LibraryEvent
	c.read(t, &got)
	assert.Equal(t, "evt-a", got.ID)
	assert.Equal(t, events.TypeLibraryDelete, got.Type)
	assert.Equal(t, int64(2), got.MediaID)

	assert.Equal(t, 1, srv.Hub.Stats().TCPClients)
}
