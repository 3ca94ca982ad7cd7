package apt

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// buildDeb assembles a minimal but structurally valid .deb in memory:
// an ar container holding debian-binary, a compressed control
// tarball, and an empty data member.
func buildDeb(t *testing.T, controlArchive string, controlBody string) []byte {
	t.Helper()

	tarball := &bytes.Buffer{}
	tw := tar.NewWriter(tarball)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "./control",
		Mode: 0644,
		Size: int64(len(controlBody)),
	}))
	_, err := tw.Write([]byte(controlBody))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	compressed := &bytes.Buffer{}
	var cw io.WriteCloser
	switch controlArchive {
	case controlTarGzip:
		cw = gzip.NewWriter(compressed)
	case controlTarXZ:
		cw, err = xz.NewWriter(compressed)
		require.NoError(t, err)
	case controlTarZstd:
		cw, err = zstd.NewWriter(compressed)
		require.NoError(t, err)
	default:
		t.Fatalf("unknown control archive: %s", controlArchive)
	}
	_, err = cw.Write(tarball.Bytes())
	require.NoError(t, err)
	require.NoError(t, cw.Close())

	buf := &bytes.Buffer{}
	w := ar.NewWriter(buf)
	require.NoError(t, w.WriteGlobalHeader())
	for _, member := range []struct {
		name string
		data []byte
	}{
		{"debian-binary", []byte("2.0\n")},
		{controlArchive, compressed.Bytes()},
		{"data.tar.xz", nil},
	} {
		require.NoError(t, w.WriteHeader(&ar.Header{
			Name:    member.name,
			ModTime: time.Unix(0, 0),
			Mode:    0644,
			Size:    int64(len(member.data)),
		}))
		_, err = w.Write(member.data)
		require.NoError(t, err)
	}
	return buf.Bytes()
}

const testControl = `Package: foo
Version: 1.0
Architecture: amd64
Maintainer: Jo Bloggs <jo@example.org>
Description: a test package
 with a multi-line description
`
