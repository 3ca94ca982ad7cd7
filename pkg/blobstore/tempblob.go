package blobstore

import (
	"io"
	"os"
)

// TempBlob is upload content staged into temporary storage together
// with its pre-computed checksums and byte count. It is scoped to a
// single ingestion: the owner must call Release exactly once, on
// success and failure alike.
type TempBlob struct {
	path      string
	size      int64
	checksums map[string]string
	released  bool
}

func (b *TempBlob) Size() int64 {
	return b.size
}

// Checksums returns the algorithm-name to hex-digest mapping computed
// while the blob was staged.
func (b *TempBlob) Checksums() map[string]string {
	out := make(map[string]string, len(b.checksums))
	for k, v := range b.checksums {
		out[k] = v
	}
	return out
}

// Open returns a reader over the staged bytes. It fails once the blob
// has been released or promoted.
func (b *TempBlob) Open() (io.ReadCloser, error) {
	return os.Open(b.path)
}

// Release reclaims the backing temporary storage. It is idempotent
// and safe to defer alongside a Promote.
func (b *TempBlob) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
