package apt

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/djcass44/apt-depot/pkg/blobstore"
	"github.com/djcass44/apt-depot/pkg/store"
	"github.com/go-logr/logr"
)

// ContentFacet is the ingest and lookup surface of one apt
// repository. All dependencies are handed over at construction and
// the facet itself holds no mutable state, so a single instance is
// safe for any number of concurrent uploads.
type ContentFacet struct {
	cfg    Config
	policy WritePolicy
	blobs  *blobstore.Store
	db     *store.Store
}

func NewContentFacet(cfg Config, policy WritePolicy, blobs *blobstore.Store, db *store.Store) *ContentFacet {
	if policy == "" {
		policy = WritePolicyAllowOnce
	}
	return &ContentFacet{
		cfg:    cfg,
		policy: policy,
		blobs:  blobs,
		db:     db,
	}
}

func (f *ContentFacet) Distribution() string {
	return f.cfg.Distribution()
}

func (f *ContentFacet) IsFlat() bool {
	return f.cfg.Flat()
}

// Put ingests an uploaded file at the given repository path. Package
// artifacts have their control metadata extracted and are linked to a
// deduplicated component; anything else is stored as plain metadata.
// Callers that already know the package identity may pass it to skip
// derivation, though the control file is still parsed for the index
// section.
func (f *ContentFacet) Put(ctx context.Context, path string, payload Payload, info *PackageInfo) (*store.Asset, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)
	normalized := NormalizeAssetPath(path)

	blob, err := f.blobs.Ingest(ctx, payload.Reader, HashAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	defer func() {
		if err := blob.Release(); err != nil {
			log.Error(err, "failed to release staged blob")
		}
	}()

	if IsDebPackage(normalized) {
		return f.putPackage(ctx, normalized, blob, payload.ContentType, info)
	}
	return f.putMetadata(ctx, normalized, blob, payload.ContentType)
}

// putPackage runs the package pipeline: parse, resolve the component,
// derive the attribute set, then bind the blob. Everything is
// computed before any persistence, so a malformed upload leaves no
// partial records behind and the asset is written once, complete.
func (f *ContentFacet) putPackage(ctx context.Context, path string, blob *blobstore.TempBlob, contentType string, info *PackageInfo) (*store.Asset, error) {
	log := logr.FromContextOrDiscard(ctx)

	src, err := blob.Open()
	if err != nil {
		return nil, err
	}
	paragraph, parsed, err := ExtractControl(ctx, src)
	_ = src.Close()
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = parsed
	}

	component, err := f.db.GetOrCreateComponent(ctx, info.Name, info.Version, info.Architecture)
	if err != nil {
		return nil, fmt.Errorf("resolving component: %w", err)
	}
	log.V(1).Info("resolved component", "name", component.Name, "version", component.Version, "architecture", component.Architecture)

	// the staged blob already carries everything the index stanza
	// needs, so it can be derived before the asset record exists
	section, err := BuildIndexSection(paragraph, &store.Asset{
		Path:      path,
		Size:      blob.Size(),
		Checksums: blob.Checksums(),
	})
	if err != nil {
		return nil, err
	}

	return f.materialize(ctx, path, blob, &component.ID, KindDeb, contentType, map[string]string{
		AttrArchitecture:   info.Architecture,
		AttrPackageName:    info.Name,
		AttrPackageVersion: info.Version,
		AttrAssetKind:      KindDeb,
		AttrIndexSection:   section,
	})
}

// putMetadata stores repository index and control files: content
// only, no component link, no derived attributes.
func (f *ContentFacet) putMetadata(ctx context.Context, path string, blob *blobstore.TempBlob, contentType string) (*store.Asset, error) {
	return f.materialize(ctx, path, blob, nil, KindMetadata, contentType, nil)
}

// materialize binds staged content to the asset record at path,
// subject to the effective write policy. The policy check happens
// before any mutation.
func (f *ContentFacet) materialize(ctx context.Context, path string, blob *blobstore.TempBlob, componentID *int64, kind, contentType string, attributes map[string]string) (*store.Asset, error) {
	existing, err := f.db.FindAsset(ctx, path)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	effective := EffectiveWritePolicy(f.policy, path)
	if effective == WritePolicyDeny || (effective == WritePolicyAllowOnce && existing != nil) {
		return nil, &WriteDeniedError{Path: path, Policy: effective}
	}

	ref, err := f.blobs.Promote(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("promoting staged blob: %w", err)
	}

	if attributes == nil {
		attributes = map[string]string{}
	}
	asset := &store.Asset{
		Path:        path,
		Kind:        kind,
		ContentType: contentType,
		ComponentID: componentID,
		BlobRef:     ref,
		Size:        blob.Size(),
		Checksums:   blob.Checksums(),
		Attributes:  attributes,
	}
	if err := f.db.UpsertAsset(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// GetAsset returns the asset descriptor stored at the given path, or
// store.ErrNotFound.
func (f *ContentFacet) GetAsset(ctx context.Context, path string) (*store.Asset, error) {
	return f.db.FindAsset(ctx, NormalizeAssetPath(path))
}

// Get returns the downloadable content stored at the given path, or
// store.ErrNotFound.
func (f *ContentFacet) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	asset, err := f.GetAsset(ctx, path)
	if err != nil {
		return nil, err
	}
	return f.Open(ctx, asset)
}

// Open returns the stored content behind an asset descriptor.
func (f *ContentFacet) Open(ctx context.Context, asset *store.Asset) (io.ReadCloser, error) {
	return f.blobs.Open(ctx, asset.BlobRef)
}

// PackageAssets returns every package asset in the repository, in
// path order.
func (f *ContentFacet) PackageAssets(ctx context.Context) ([]*store.Asset, error) {
	return f.db.ListAssetsByKind(ctx, KindDeb)
}
