package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibtrack/internal/model"
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	require.NoError(t, os.WriteFile(path, []byte(inventory), 0o600))

	src := FileSource{Path: path}
	got, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Contains(t, src.Name(), "tools.json")

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.List(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource_ConditionalFetchAndFallback(t *testing.T) {
	var hits atomic.Int32
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if down.Load() {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(inventory))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/tools?token=secret", t.TempDir(), nil)
	ctx := context.Background()

	body, cached, err := src.fetch(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotEmpty(t, body)

	_, cached, err = src.fetch(ctx)
	require.NoError(t, err)
	assert.True(t, cached)

	down.Store(true)
	got, err := src.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int32(3), hits.Load())

	assert.NotContains(t, src.Name(), "secret")
}

func TestHTTPSource_ErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, t.TempDir(), nil).List(context.Background())
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/a/b?token=1"))
	assert.Equal(t, "http://host:8080/...(redacted)", redactURL("http://host:8080"))
	assert.Equal(t, "...(redacted)", redactURL("not a url"))
}

type flakySource struct {
	mu    sync.Mutex
	tools []model.Tool
	err   error
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) List(context.Context) ([]model.Tool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tools, f.err
}

type recordingSink struct{ got []model.Tool }

func (s *recordingSink) ReplaceAll(_ context.Context, tools []model.Tool) error {
	s.got = tools
	return nil
}

func TestCatalog_RefreshKeepsSnapshotOnError(t *testing.T) {
	ctx := context.Background()
	src := &flakySource{tools: []model.Tool{
		{SerialID: "A", Description: "first"},
		{SerialID: "B"},
		{SerialID: "A", Description: "second"},
		{SerialID: ""},
	}}
	sink := &recordingSink{}
	c := NewCatalog(src, sink)

	require.NoError(t, c.Refresh(ctx))
	assert.Len(t, c.Tools(), 2)
	assert.Len(t, sink.got, 2)
	a, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, "first", a.Description)

	src.err = errors.New("source down")
	src.tools = nil
	assert.Error(t, c.Refresh(ctx))
	assert.Len(t, c.Tools(), 2)

	refreshed, lastErr := c.Status()
	assert.False(t, refreshed.IsZero())
	assert.EqualError(t, lastErr, "source down")

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestStatic(t *testing.T) {
	s := Static{{SerialID: "A"}}
	got, err := s.List(context.Background())
	require.NoError(t, err)
	got[0].SerialID = "changed"
	assert.Equal(t, "A", s[0].SerialID)
}
