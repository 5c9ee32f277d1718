package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialib/internal/client"
	"medialib/internal/events"
	libsync "medialib/internal/sync"
	"medialib/pkg/search"
)

// lockedBuffer lets the test read output written by another goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	t.Setenv("MEDIALIB_CLI_CONFIG", path)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMediaSearchWithRemove(t *testing.T) {
	useTempConfig(t)

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"media":[{"id":3,"title":"Naruto","type":"anime","status":"completed","tags":["action"]}],"total":1,"page":1,"page_size":20,"total_pages":1}`))
	}))
	defer srv.Close()

	out, err := run(t, "--api", srv.URL, "media", "search", "naruto", "tag:action", "--remove", "2")
	require.NoError(t, err)

	assert.Equal(t, "title=naruto", gotQuery)
	assert.Contains(t, out, "query: naruto")
	assert.Contains(t, out, "title:naruto")
	assert.NotContains(t, out, "tag:action")
	assert.Contains(t, out, "Naruto")
	assert.Contains(t, out, "page 1/1, 1 total")

	cfg, err := client.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"naruto"}, cfg.Recent)
}

func TestLibrarySearchNeedsLogin(t *testing.T) {
	useTempConfig(t)

	_, err := run(t, "--api", "http://127.0.0.1:1", "library", "search", "user_status:watching")
	assert.EqualError(t, err, "not logged in, run 'medialib login' first")
}

func TestRemoveOutOfRange(t *testing.T) {
	useTempConfig(t)

	_, err := run(t, "--api", "http://127.0.0.1:1", "media", "search", "naruto", "--remove", "4")
	assert.EqualError(t, err, "no chip 4 (query has 1)")
}

func TestExplainJSON(t *testing.T) {
	useTempConfig(t)

	out, err := run(t, "explain", "--context", "media", "--json", "--", "Naruto", "-status:completed", "year:>2010")
	require.NoError(t, err)

	var ex struct {
		Chips     []string            `json:"chips"`
		Params    map[string][]string `json:"params"`
		Canonical string              `json:"canonical"`
		PlainText string              `json:"plain_text"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ex))
	assert.Equal(t, []string{"title:Naruto", "year:>2010", "-status:completed"}, ex.Chips)
	assert.Equal(t, []string{"completed"}, ex.Params["exclude_status"])
	assert.Equal(t, []string{"2010"}, ex.Params["year_gt"])
	assert.Equal(t, "Naruto", ex.PlainText)
	assert.Equal(t, "title:Naruto year:>2010 -status:completed", ex.Canonical)
}

func TestExplainUnknownContext(t *testing.T) {
	useTempConfig(t)

	_, err := run(t, "explain", "--context", "books", "x")
	assert.ErrorContains(t, err, `unknown context "books"`)
}

func TestRenderTableAligns(t *testing.T) {
	got := renderTable([]string{"ID", "NAME"}, [][]string{{"1", "Itachi"}, {"22", "Ed"}})
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Index(lines[0], "NAME"), strings.Index(lines[1], "Itachi"))
	assert.Equal(t, strings.Index(lines[1], "Itachi"), strings.Index(lines[2], "Ed"))
}

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func startSync(t *testing.T) (*libsync.Hub, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hub := libsync.NewHub()
	srv := libsync.NewServer("", hub, staticVerifier{"tok": "u1"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, ln.Addr().String()
}

func TestWatchTCPPrintsOwnEvents(t *testing.T) {
	hub, addr := startSync(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &lockedBuffer{}
	errc := make(chan error, 1)
	go func() { errc <- watchTCP(ctx, addr, "tok", out) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "watching as u1")
	}, 2*time.Second, 10*time.Millisecond)

	score := 9
	require.NoError(t, hub.Publish(ctx, events.TopicLibraryUpdated, events.LibraryEvent{
		Type: events.TypeLibraryUpdate, UserID: "u1", MediaID: 4, Title: "Akira",
		Status: "completed", Score: &score, At: time.Now(),
	}))
	require.NoError(t, hub.Publish(ctx, events.TopicLibraryUpdated, events.LibraryEvent{
		Type: events.TypeLibraryUpdate, UserID: "u2", MediaID: 5, Title: "Bleach", At: time.Now(),
	}))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "4 Akira completed progress 0 score 9")
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), "Bleach")

	cancel()
	select {
	case <-errc:
	case <-time.After(2 * time.Second):
		t.Fatal("watchTCP did not stop")
	}
}

func TestWatchTCPBadToken(t *testing.T) {
	_, addr := startSync(t)

	err := watchTCP(context.Background(), addr, "nope", &lockedBuffer{})
	var authErr *syncAuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "sync auth: invalid token", err.Error())
}

func TestPrepareQueryContexts(t *testing.T) {
	r, err := client.PrepareQuery("Itachi media:Naruto", search.ContextCharacter, []int{2})
	require.NoError(t, err)
	assert.Equal(t, "Itachi", r.Query)
}
