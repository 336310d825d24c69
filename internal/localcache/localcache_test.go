package localcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadFallbackAndSave(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, KeyDashboardLayout, DefaultLayout)
	require.NoError(t, err)

	assert.Equal(t, DefaultLayout(), s.Load())

	custom := Layout{Cards: []Card{{ID: "attention", Visible: true}}}
	require.NoError(t, s.Save(custom))
	assert.Equal(t, custom, s.Load())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	assert.Equal(t, DefaultLayout(), s.Load())
}

func TestStore_CorruptFileYieldsFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyChatHistory+".json"), []byte("{not json"), 0o600))

	s, err := New(dir, KeyChatHistory, func() []string { return []string{} })
	require.NoError(t, err)
	assert.Equal(t, []string{}, s.Load())

	got, err := s.Update(func(v []string) []string { return append(v, "hello") })
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, got)
	assert.Equal(t, []string{"hello"}, s.Load())
}

func TestNewRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "../etc", "Chat", "a/b"} {
		_, err := New[int](t.TempDir(), key, nil)
		assert.Error(t, err, key)
	}
	s, err := New[int](t.TempDir(), "counter", nil)
	require.NoError(t, err)
	assert.Zero(t, s.Load())
}
