package archiveutil

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAr(t *testing.T, members map[string][]byte, order ...string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	w := ar.NewWriter(buf)
	require.NoError(t, w.WriteGlobalHeader())
	for _, name := range order {
		data := members[name]
		require.NoError(t, w.WriteHeader(&ar.Header{
			Name:    name,
			ModTime: time.Unix(0, 0),
			Mode:    0644,
			Size:    int64(len(data)),
		}))
		_, err := w.Write(data)
		require.NoError(t, err)
	}
	return buf
}

func TestArMember(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	buf := writeAr(t, map[string][]byte{
		"debian-binary":  []byte("2.0\n"),
		"control.tar.gz": []byte("control-bytes"),
		"data.tar.xz":    []byte("data-bytes"),
	}, "debian-binary", "control.tar.gz", "data.tar.xz")

	r, name, err := ArMember(ctx, bytes.NewReader(buf.Bytes()), "control.tar.gz", "control.tar.xz")
	require.NoError(t, err)
	assert.Equal(t, "control.tar.gz", name)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "control-bytes", string(data))
}

func TestArMemberNotFound(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.New(t))

	buf := writeAr(t, map[string][]byte{
		"debian-binary": []byte("2.0\n"),
	}, "debian-binary")

	_, _, err := ArMember(ctx, bytes.NewReader(buf.Bytes()), "control.tar.gz")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
