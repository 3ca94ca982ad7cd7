package aptindex

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/djcass44/apt-depot/pkg/apt"
	"github.com/djcass44/apt-depot/pkg/store"
	"github.com/go-logr/logr"
	version "github.com/knqyf263/go-deb-version"
)

var compressions = []Compression{CompressionNone, CompressionGzip, CompressionXZ}

// Builder regenerates the repository's Packages indexes from the
// index sections stored against package assets.
type Builder struct {
	facet *apt.ContentFacet
}

func NewBuilder(facet *apt.ContentFacet) *Builder {
	return &Builder{facet: facet}
}

// Rebuild writes a Packages file, together with its gzip and xz
// variants, for every architecture present in the repository. Index
// files are metadata assets, so rebuilding is always permitted
// whatever the repository's base write policy.
func (b *Builder) Rebuild(ctx context.Context) ([]*store.Asset, error) {
	log := logr.FromContextOrDiscard(ctx)

	assets, err := b.facet.PackageAssets(ctx)
	if err != nil {
		return nil, err
	}

	byArch := map[string][]*store.Asset{}
	for _, asset := range assets {
		arch := asset.Attributes[apt.AttrArchitecture]
		if arch == "" || asset.Attributes[apt.AttrIndexSection] == "" {
			log.V(1).Info("skipping package with no index section", "path", asset.Path)
			continue
		}
		byArch[arch] = append(byArch[arch], asset)
	}

	var out []*store.Asset
	for arch, packages := range byArch {
		data := renderIndex(packages)
		for _, compression := range compressions {
			compressed, err := compression.Compress(data)
			if err != nil {
				return nil, err
			}
			path := b.indexPath(arch, "Packages"+compression.Extension())
			asset, err := b.facet.Put(ctx, path, apt.Payload{
				Reader:      bytes.NewReader(compressed),
				ContentType: compression.ContentType(),
			}, nil)
			if err != nil {
				return nil, fmt.Errorf("storing %s: %w", path, err)
			}
			out = append(out, asset)
		}
		log.V(1).Info("rebuilt package index", "architecture", arch, "count", len(packages))
	}
	return out, nil
}

func (b *Builder) indexPath(arch, filename string) string {
	// flat repositories serve their indexes from the root
	if b.facet.IsFlat() {
		return filename
	}
	return fmt.Sprintf("dists/%s/main/binary-%s/%s", b.facet.Distribution(), arch, filename)
}

// renderIndex concatenates index sections into one Packages listing,
// sorted by package name and then by Debian version order.
func renderIndex(packages []*store.Asset) []byte {
	sort.SliceStable(packages, func(i, j int) bool {
		ni := packages[i].Attributes[apt.AttrPackageName]
		nj := packages[j].Attributes[apt.AttrPackageName]
		if ni != nj {
			return ni < nj
		}
		return lessVersion(packages[i].Attributes[apt.AttrPackageVersion], packages[j].Attributes[apt.AttrPackageVersion])
	})

	sb := strings.Builder{}
	for _, pkg := range packages {
		sb.WriteString(strings.TrimRight(pkg.Attributes[apt.AttrIndexSection], "\n"))
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

func lessVersion(s1, s2 string) bool {
	v1, err1 := version.NewVersion(s1)
	v2, err2 := version.NewVersion(s2)
	if err1 != nil || err2 != nil {
		// fall back to a lexical ordering for unparsable versions
		return s1 < s2
	}
	return v1.LessThan(v2)
}
