package archiveutil

import (
	"context"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/go-logr/logr"
)

// ArMember scans an ar archive for the first member whose name
// matches one of names and returns a reader positioned over its
// contents, along with the matched name. The reader is only valid
// until the underlying stream advances. Returns os.ErrNotExist when
// the archive holds no such member.
func ArMember(ctx context.Context, r io.Reader, names ...string) (io.Reader, string, error) {
	log := logr.FromContextOrDiscard(ctx)
	tr := ar.NewReader(r)

	for {
		header, err := tr.Next()
		switch {
		case err == io.EOF:
			return nil, "", os.ErrNotExist
		case err != nil:
			log.Error(err, "failed to read file from archive")
			return nil, "", err
		case header == nil:
			continue
		}

		// some ar writers terminate member names with a slash
		name := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		if slices.Contains(names, name) {
			log.V(5).Info("found archive member", "name", name, "size", header.Size)
			return tr, name, nil
		}
	}
}
