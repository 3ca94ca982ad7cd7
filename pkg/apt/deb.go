package apt

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/djcass44/apt-depot/pkg/archiveutil"
	"github.com/go-logr/logr"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"pault.ag/go/debian/control"
)

// ErrMalformedPackage indicates that an upload could not be parsed as
// a Debian package. It always surfaces before anything is persisted.
var ErrMalformedPackage = errors.New("malformed debian package")

const (
	controlTarGzip = "control.tar.gz"
	controlTarXZ   = "control.tar.xz"
	controlTarZstd = "control.tar.zst"
)

// PackageInfo is the identity of a Debian package: the triple that
// deduplicates uploads into a single component.
type PackageInfo struct {
	Name         string
	Version      string
	Architecture string
}

// controlFile is the first paragraph of a package's control file. The
// embedded paragraph keeps every field in its original order.
type controlFile struct {
	control.Paragraph

	Package      string
	Version      string
	Architecture string
}

// ExtractControl unwraps a .deb stream down to its control file and
// parses the first paragraph. The reader must be positioned at the
// start of the ar container.
func ExtractControl(ctx context.Context, r io.Reader) (*control.Paragraph, *PackageInfo, error) {
	log := logr.FromContextOrDiscard(ctx)

	member, name, err := archiveutil.ArMember(ctx, r, controlTarGzip, controlTarXZ, controlTarZstd)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: no control archive", ErrMalformedPackage)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading package archive: %v", ErrMalformedPackage, err)
	}

	tarball, err := decompress(member, name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrMalformedPackage, name, err)
	}

	ctrl, err := archiveutil.TarMember(ctx, tarball, "control")
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: no control file in %s", ErrMalformedPackage, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrMalformedPackage, name, err)
	}

	dec, err := control.NewDecoder(ctrl, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}
	var cf controlFile
	if err := dec.Decode(&cf); err != nil {
		return nil, nil, fmt.Errorf("%w: parsing control file: %v", ErrMalformedPackage, err)
	}

	info, err := newPackageInfo(&cf)
	if err != nil {
		return nil, nil, err
	}
	log.V(2).Info("parsed control file", "name", info.Name, "version", info.Version, "architecture", info.Architecture)
	return &cf.Paragraph, info, nil
}

func newPackageInfo(cf *controlFile) (*PackageInfo, error) {
	for field, value := range map[string]string{
		"Package":      cf.Package,
		"Version":      cf.Version,
		"Architecture": cf.Architecture,
	} {
		if value == "" {
			return nil, fmt.Errorf("%w: control file is missing required field: %s", ErrMalformedPackage, field)
		}
	}
	return &PackageInfo{
		Name:         cf.Package,
		Version:      cf.Version,
		Architecture: cf.Architecture,
	}, nil
}

func decompress(r io.Reader, name string) (io.Reader, error) {
	switch name {
	case controlTarGzip:
		return gzip.NewReader(r)
	case controlTarXZ:
		return xz.NewReader(r)
	case controlTarZstd:
		return zstd.NewReader(r)
	default:
		return nil, fmt.Errorf("unknown control archive: %s", name)
	}
}
