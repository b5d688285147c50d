package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Put(ctx, "semana 1.xlsx", "", []byte("payload"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, "/semana_1.xlsx"), key)
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	require.ErrorIs(t, err, collection.ErrBlobNotFound)
	require.ErrorIs(t, store.Delete(ctx, key), collection.ErrBlobNotFound)
}

func TestLocalStoreRejectsKeysOutsideRoot(t *testing.T) {
	t.Parallel()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../secret", "/etc/passwd", "a/../../b"} {
		_, err := store.Get(context.Background(), key)
		require.ErrorIs(t, err, collection.ErrNotFound, key)
	}
}

func TestLocalStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "week.xlsx", "", []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalStoreRequiresRoot(t *testing.T) {
	t.Parallel()
	_, err := NewLocalStore("  ")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestObjectKeys(t *testing.T) {
	t.Parallel()
	key := objectKey("C:\\uploads\\Recaudación 03.xlsx")
	prefix, filename, found := strings.Cut(key, "/")
	require.True(t, found)
	_, err := uuid.Parse(prefix)
	require.NoError(t, err)
	assert.Equal(t, "Recaudación_03.xlsx", filename)
	assert.NotEqual(t, key, objectKey("C:\\uploads\\Recaudación 03.xlsx"))

	testCases := []struct {
		input    string
		expected string
	}{
		{input: "week.xlsx", expected: "week.xlsx"},
		{input: "../../etc/passwd", expected: "passwd"},
		{input: ".hidden", expected: "hidden"},
		{input: "", expected: fallbackFilename},
		{input: "***", expected: fallbackFilename},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, safeFilename(testCase.input), testCase.input)
	}
}

func TestGCSStoreConfig(t *testing.T) {
	t.Parallel()
	_, err := NewGCSStore(context.Background(), GCSConfig{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	prefixed := &GCSStore{bucket: "uploads", prefix: "collections"}
	assert.Equal(t, "collections/abc/week.xlsx", prefixed.objectName("abc/week.xlsx"))
	plain := &GCSStore{bucket: "uploads"}
	assert.Equal(t, "abc/week.xlsx", plain.objectName("abc/week.xlsx"))
	assert.Equal(t, defaultContentType, contentTypeOrDefault(" "))
}
