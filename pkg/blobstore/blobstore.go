package blobstore

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// Checksum algorithm names as recorded against stored content.
const (
	AlgMD5    = "MD5"
	AlgSHA1   = "SHA1"
	AlgSHA256 = "SHA256"
)

const refPrefix = "sha256:"

// Store is a filesystem-backed content store. Uploads are staged
// into a temporary area with their checksums pre-computed, and
// promoted into content-addressed storage once an asset claims them.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	for _, d := range []string{filepath.Join(dir, "tmp"), filepath.Join(dir, "content")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, err
		}
	}
	return &Store{dir: dir}, nil
}

// Ingest stages the payload into temporary storage, computing the
// requested checksums and the exact byte count as it goes. The
// returned blob must be released by the caller on every path.
func (s *Store) Ingest(ctx context.Context, r io.Reader, algorithms []string) (*TempBlob, error) {
	log := logr.FromContextOrDiscard(ctx)

	hashes := make(map[string]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms)+1)
	for _, alg := range algorithms {
		h, err := newHash(alg)
		if err != nil {
			return nil, err
		}
		hashes[alg] = h
		writers = append(writers, h)
	}

	path := filepath.Join(s.dir, "tmp", uuid.NewString())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writers = append(writers, f)

	size, err := io.Copy(io.MultiWriter(writers...), r)
	if err != nil {
		log.Error(err, "failed to stage payload", "path", path)
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	checksums := make(map[string]string, len(hashes))
	for alg, h := range hashes {
		checksums[alg] = hex.EncodeToString(h.Sum(nil))
	}
	log.V(2).Info("staged payload", "path", path, "size", size)

	return &TempBlob{
		path:      path,
		size:      size,
		checksums: checksums,
	}, nil
}

// Promote moves staged content into content-addressed storage and
// returns a reference to it. Ownership of the backing file transfers
// to the store: the blob is spent and can no longer be opened, though
// releasing it remains safe.
func (s *Store) Promote(ctx context.Context, blob *TempBlob) (string, error) {
	log := logr.FromContextOrDiscard(ctx)

	sum, ok := blob.checksums[AlgSHA256]
	if !ok {
		return "", errors.New("staged blob is missing a SHA256 checksum")
	}
	dst := filepath.Join(s.dir, "content", sum)
	if _, err := os.Stat(dst); err == nil {
		// identical bytes are already stored
		log.V(2).Info("content already present", "ref", sum)
		return refPrefix + sum, nil
	}
	if err := os.Rename(blob.path, dst); err != nil {
		return "", err
	}
	blob.released = true
	log.V(2).Info("promoted blob", "ref", sum, "size", blob.size)
	return refPrefix + sum, nil
}

// Open returns the content behind a reference previously returned
// by Promote.
func (s *Store) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	sum := strings.TrimPrefix(ref, refPrefix)
	if sum == ref || sum == "" {
		return nil, fmt.Errorf("malformed content reference: %q", ref)
	}
	return os.Open(filepath.Join(s.dir, "content", sum))
}

func newHash(alg string) (hash.Hash, error) {
	switch alg {
	case AlgMD5:
		return md5.New(), nil
	case AlgSHA1:
		return sha1.New(), nil
	case AlgSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unknown checksum algorithm: %s", alg)
	}
}
