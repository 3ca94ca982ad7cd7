package apt

import (
	"io"
	"strings"

	"github.com/djcass44/apt-depot/pkg/blobstore"
)

// Attribute keys persisted on package assets.
const (
	AttrArchitecture   = "architecture"
	AttrPackageName    = "package_name"
	AttrPackageVersion = "package_version"
	AttrIndexSection   = "index_section"
	AttrAssetKind      = "asset_kind"
)

// Asset kind tags.
const (
	KindDeb      = "DEB"
	KindMetadata = "METADATA"
)

// HashAlgorithms is the fixed checksum set computed for every upload.
// The index section depends on all three being present.
var HashAlgorithms = []string{blobstore.AlgMD5, blobstore.AlgSHA1, blobstore.AlgSHA256}

// Payload is an upload stream together with its declared (or sniffed)
// content type.
type Payload struct {
	Reader      io.Reader
	ContentType string
}

// NormalizeAssetPath anchors a repository path at the root.
func NormalizeAssetPath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

// IsDebPackage reports whether the path denotes a package artifact
// rather than repository metadata.
func IsDebPackage(path string) bool {
	return strings.HasSuffix(path, ".deb")
}
