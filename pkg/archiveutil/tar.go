package archiveutil

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
)

// TarMember scans a tar archive for the first regular file whose name
// matches name (a leading "./" is ignored) and returns a reader
// positioned over its contents. Returns os.ErrNotExist when the
// archive holds no such file.
func TarMember(ctx context.Context, r io.Reader, name string) (io.Reader, error) {
	log := logr.FromContextOrDiscard(ctx)
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		switch {
		case err == io.EOF:
			return nil, os.ErrNotExist
		case err != nil:
			log.Error(err, "failed to read file from archive")
			return nil, err
		case header == nil:
			continue
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}
		if strings.TrimPrefix(header.Name, "./") == name {
			log.V(5).Info("found archive member", "name", header.Name, "size", header.Size)
			return tr, nil
		}
	}
}
