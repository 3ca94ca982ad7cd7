package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS components (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	architecture TEXT NOT NULL,
	UNIQUE (name, version, architecture)
);
CREATE TABLE IF NOT EXISTS assets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	component_id INTEGER REFERENCES components (id),
	blob_ref TEXT NOT NULL,
	size INTEGER NOT NULL,
	checksums TEXT NOT NULL,
	attributes TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_kind ON assets (kind);
`

// Store persists components and assets in a sqlite database.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	log := logr.FromContextOrDiscard(ctx)

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	log.V(1).Info("opened database", "path", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateComponent resolves a package identity to exactly one
// component record. The UNIQUE (name, version, architecture)
// constraint arbitrates between concurrent callers: every caller
// observes the same row no matter who inserted it.
func (s *Store) GetOrCreateComponent(ctx context.Context, name, version, architecture string) (*Component, error) {
	log := logr.FromContextOrDiscard(ctx)

	res, err := s.db.ExecContext(ctx, `INSERT INTO components (name, version, architecture)
		VALUES (?, ?, ?)
		ON CONFLICT (name, version, architecture) DO NOTHING`,
		name, version, architecture)
	if err != nil {
		return nil, fmt.Errorf("inserting component: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.V(1).Info("created component", "name", name, "version", version, "architecture", architecture)
	}

	component := &Component{}
	err = s.db.QueryRowContext(ctx, `SELECT id, name, version, architecture
		FROM components
		WHERE name = ? AND version = ? AND architecture = ?`,
		name, version, architecture).
		Scan(&component.ID, &component.Name, &component.Version, &component.Architecture)
	if err != nil {
		return nil, fmt.Errorf("fetching component: %w", err)
	}
	return component, nil
}

func (s *Store) GetComponent(ctx context.Context, id int64) (*Component, error) {
	component := &Component{}
	err := s.db.QueryRowContext(ctx, `SELECT id, name, version, architecture
		FROM components
		WHERE id = ?`, id).
		Scan(&component.ID, &component.Name, &component.Version, &component.Architecture)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return component, nil
}

// UpsertAsset creates the asset at its path or overwrites the
// existing record. The asset's ID is populated on return.
func (s *Store) UpsertAsset(ctx context.Context, asset *Asset) error {
	checksums, err := json.Marshal(asset.Checksums)
	if err != nil {
		return err
	}
	attributes, err := json.Marshal(asset.Attributes)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx, `INSERT INTO assets (path, kind, content_type, component_id, blob_ref, size, checksums, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			kind = excluded.kind,
			content_type = excluded.content_type,
			component_id = excluded.component_id,
			blob_ref = excluded.blob_ref,
			size = excluded.size,
			checksums = excluded.checksums,
			attributes = excluded.attributes
		RETURNING id`,
		asset.Path, asset.Kind, asset.ContentType, asset.ComponentID, asset.BlobRef, asset.Size, string(checksums), string(attributes)).
		Scan(&asset.ID)
	if err != nil {
		return fmt.Errorf("upserting asset: %w", err)
	}
	return nil
}

func (s *Store) FindAsset(ctx context.Context, path string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, path, kind, content_type, component_id, blob_ref, size, checksums, attributes
		FROM assets
		WHERE path = ?`, path)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return asset, err
}

// ListAssetsByKind returns every asset with the given kind tag,
// ordered by path.
func (s *Store) ListAssetsByKind(ctx context.Context, kind string) ([]*Asset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, kind, content_type, component_id, blob_ref, size, checksums, attributes
		FROM assets
		WHERE kind = ?
		ORDER BY path`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*Asset, error) {
	asset := &Asset{}
	var componentID sql.NullInt64
	var checksums, attributes string
	if err := row.Scan(&asset.ID, &asset.Path, &asset.Kind, &asset.ContentType, &componentID, &asset.BlobRef, &asset.Size, &checksums, &attributes); err != nil {
		return nil, err
	}
	if componentID.Valid {
		asset.ComponentID = &componentID.Int64
	}
	if err := json.Unmarshal([]byte(checksums), &asset.Checksums); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(attributes), &asset.Attributes); err != nil {
		return nil, err
	}
	return asset, nil
}
