package blobstore

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Ingest(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	payload := []byte("Lorem ipsum dolor sit amet")
	blob, err := store.Ingest(ctx, strings.NewReader(string(payload)), []string{AlgMD5, AlgSHA1, AlgSHA256})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = blob.Release()
	})

	assert.EqualValues(t, len(payload), blob.Size())

	md5sum := md5.Sum(payload)
	sha1sum := sha1.Sum(payload)
	sha256sum := sha256.Sum256(payload)
	checksums := blob.Checksums()
	assert.Equal(t, hex.EncodeToString(md5sum[:]), checksums[AlgMD5])
	assert.Equal(t, hex.EncodeToString(sha1sum[:]), checksums[AlgSHA1])
	assert.Equal(t, hex.EncodeToString(sha256sum[:]), checksums[AlgSHA256])

	f, err := blob.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	_ = f.Close()
	assert.Equal(t, payload, data)
}

func TestStore_IngestUnknownAlgorithm(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.New(t))

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Ingest(ctx, strings.NewReader("foo"), []string{"CRC32"})
	assert.Error(t, err)
}

func TestTempBlob_Release(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.New(t))

	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	blob, err := store.Ingest(ctx, strings.NewReader("foo"), []string{AlgSHA256})
	require.NoError(t, err)

	require.NoError(t, blob.Release())
	// releasing twice must be a no-op
	require.NoError(t, blob.Release())

	entries, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = blob.Open()
	assert.Error(t, err)
}

func TestStore_Promote(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.New(t))

	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	payload := "Lorem ipsum dolor sit amet"
	blob, err := store.Ingest(ctx, strings.NewReader(payload), []string{AlgMD5, AlgSHA1, AlgSHA256})
	require.NoError(t, err)
	defer func() {
		_ = blob.Release()
	}()

	ref, err := store.Promote(ctx, blob)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "sha256:"))

	// promotion transfers ownership, so nothing may be left behind
	// in the staging area
	entries, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	f, err := store.Open(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	_ = f.Close()
	assert.Equal(t, payload, string(data))

	t.Run("identical content dedupes", func(t *testing.T) {
		other, err := store.Ingest(ctx, strings.NewReader(payload), []string{AlgMD5, AlgSHA1, AlgSHA256})
		require.NoError(t, err)
		defer func() {
			_ = other.Release()
		}()

		ref2, err := store.Promote(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, ref, ref2)
	})
}

func TestStore_OpenMalformedRef(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.New(t))

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(ctx, "md5:abc123")
	assert.Error(t, err)
	_, err = store.Open(ctx, "")
	assert.Error(t, err)
}
