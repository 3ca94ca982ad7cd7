package apt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/djcass44/apt-depot/pkg/blobstore"
	"github.com/djcass44/apt-depot/pkg/store"
	"pault.ag/go/debian/control"
)

// BuildIndexSection renders the stanza for a package as it will
// appear in the repository's Packages index: the first control
// paragraph with Filename, Size, MD5Sum, SHA1 and SHA256 describing
// the bytes stored against the asset. The asset must carry its
// content checksums; anything else is a pipeline-ordering bug.
func BuildIndexSection(paragraph *control.Paragraph, asset *store.Asset) (string, error) {
	if len(asset.Checksums) == 0 {
		return "", fmt.Errorf("cannot build %s: asset has no content checksums: %s", AttrIndexSection, asset.Path)
	}

	section := clone(paragraph)
	setField(section, "Filename", strings.TrimPrefix(asset.Path, "/"))
	setField(section, "Size", strconv.FormatInt(asset.Size, 10))
	setField(section, "MD5Sum", asset.Checksums[blobstore.AlgMD5])
	setField(section, "SHA1", asset.Checksums[blobstore.AlgSHA1])
	setField(section, "SHA256", asset.Checksums[blobstore.AlgSHA256])

	return render(section), nil
}

func clone(paragraph *control.Paragraph) *control.Paragraph {
	out := &control.Paragraph{
		Values: make(map[string]string, len(paragraph.Values)),
		Order:  make([]string, len(paragraph.Order)),
	}
	copy(out.Order, paragraph.Order)
	for k, v := range paragraph.Values {
		out.Values[k] = v
	}
	return out
}

// setField overrides a field in place, or appends it when the
// paragraph doesn't already carry it.
func setField(paragraph *control.Paragraph, key, value string) {
	if _, ok := paragraph.Values[key]; !ok {
		paragraph.Order = append(paragraph.Order, key)
	}
	paragraph.Values[key] = value
}

func render(paragraph *control.Paragraph) string {
	sb := strings.Builder{}
	for _, key := range paragraph.Order {
		lines := strings.Split(paragraph.Values[key], "\n")
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(lines[0])
		sb.WriteString("\n")
		// continuation lines keep their leading space
		for _, line := range lines[1:] {
			if !strings.HasPrefix(line, " ") {
				sb.WriteString(" ")
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
