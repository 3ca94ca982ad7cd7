package store

import "errors"

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Component is the persisted identity of one package. Within a
// repository the (name, version, architecture) triple is unique and
// any number of assets may point at the same component.
type Component struct {
	ID           int64
	Name         string
	Version      string
	Architecture string
}

// Asset is a path-keyed record binding stored content, an optional
// component link, and format-specific attributes.
type Asset struct {
	ID          int64
	Path        string
	Kind        string
	ContentType string
	ComponentID *int64
	BlobRef     string
	Size        int64
	Checksums   map[string]string
	Attributes  map[string]string
}
