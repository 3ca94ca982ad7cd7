package apt

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractControl(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	for _, archive := range []string{controlTarGzip, controlTarXZ, controlTarZstd} {
		t.Run(archive, func(t *testing.T) {
			deb := buildDeb(t, archive, testControl)

			paragraph, info, err := ExtractControl(ctx, bytes.NewReader(deb))
			require.NoError(t, err)

			assert.Equal(t, "foo", info.Name)
			assert.Equal(t, "1.0", info.Version)
			assert.Equal(t, "amd64", info.Architecture)

			assert.Equal(t, "foo", paragraph.Values["Package"])
			assert.Equal(t, "Jo Bloggs <jo@example.org>", paragraph.Values["Maintainer"])
			assert.Equal(t, "Package", paragraph.Order[0])
		})
	}
}

func TestExtractControlErrors(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.New(t))

	var cases = []struct {
		name string
		deb  []byte
	}{
		{
			"garbage input",
			[]byte("not an ar archive"),
		},
		{
			"missing package field",
			buildDeb(t, controlTarGzip, "Version: 1.0\nArchitecture: amd64\n"),
		},
		{
			"missing version field",
			buildDeb(t, controlTarGzip, "Package: foo\nArchitecture: amd64\n"),
		},
		{
			"missing architecture field",
			buildDeb(t, controlTarGzip, "Package: foo\nVersion: 1.0\n"),
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ExtractControl(ctx, bytes.NewReader(tt.deb))
			assert.ErrorIs(t, err, ErrMalformedPackage)
		})
	}
}
