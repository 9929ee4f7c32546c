package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads/")
	require.NoError(t, err)

	key, err := s.Upload(ctx, strings.NewReader(`[{"id":"1"}]`), "offline/queue.json", "application/json")
	require.NoError(t, err)
	assert.Equal(t, "offline/queue.json", key)

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Download(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(body))

	url, err := s.GetURL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/offline/queue.json", url)

	// overwrite replaces content
	_, err = s.Upload(ctx, strings.NewReader(`[]`), key, "application/json")
	require.NoError(t, err)
	rc, err = s.Download(ctx, key)
	require.NoError(t, err)
	body, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, `[]`, string(body))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting twice is not an error")

	_, err = s.Download(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	key, err := s.Upload(context.Background(), strings.NewReader("x"), "../../etc/passwd", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", key, "paths are rooted at the storage directory")

	_, err = s.Upload(context.Background(), strings.NewReader("x"), "..", "text/plain")
	assert.Error(t, err)
}
