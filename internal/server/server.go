package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/djcass44/apt-depot/pkg/apt"
	"github.com/djcass44/apt-depot/pkg/store"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-logr/logr"
)

// IndexRebuilder regenerates the repository's package indexes after a
// package upload. *aptindex.Builder is the production implementation.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) ([]*store.Asset, error)
}

// Server exposes one repository over HTTP: PUT uploads a file at its
// repository path, GET serves it back.
type Server struct {
	facet *apt.ContentFacet
	index IndexRebuilder
}

func New(facet *apt.ContentFacet, index IndexRebuilder) *Server {
	return &Server{
		facet: facet,
		index: index,
	}
}

type assetDescriptor struct {
	Path        string            `json:"path"`
	Kind        string            `json:"kind"`
	ContentType string            `json:"contentType,omitempty"`
	Size        int64             `json:"size"`
	Checksums   map[string]string `json:"checksums"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.get(w, r)
	case http.MethodPut, http.MethodPost:
		s.put(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logr.FromContextOrDiscard(ctx).WithValues("path", r.URL.Path)

	body := bufio.NewReader(r.Body)
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		// sniff the type from the first bytes without consuming them
		header, _ := body.Peek(3072)
		contentType = mimetype.Detect(header).String()
		log.V(2).Info("sniffed content type", "contentType", contentType)
	}

	asset, err := s.facet.Put(ctx, r.URL.Path, apt.Payload{Reader: body, ContentType: contentType}, nil)
	if err != nil {
		var denied *apt.WriteDeniedError
		switch {
		case errors.As(err, &denied):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, apt.ErrMalformedPackage):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Error(err, "failed to store upload")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	// keep the published indexes in step with the pool. The package
	// itself is already persisted, so a rebuild failure must not turn
	// the upload into an error the client would retry into a 403.
	if apt.IsDebPackage(asset.Path) {
		if _, err := s.index.Rebuild(ctx); err != nil {
			log.Error(err, "failed to rebuild package indexes")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(assetDescriptor{
		Path:        asset.Path,
		Kind:        asset.Kind,
		ContentType: asset.ContentType,
		Size:        asset.Size,
		Checksums:   asset.Checksums,
		Attributes:  asset.Attributes,
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logr.FromContextOrDiscard(ctx).WithValues("path", r.URL.Path)

	asset, err := s.facet.GetAsset(ctx, r.URL.Path)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Error(err, "failed to look up asset")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	content, err := s.facet.Open(ctx, asset)
	if err != nil {
		log.Error(err, "failed to open content")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer content.Close()

	if asset.ContentType != "" {
		w.Header().Set("Content-Type", asset.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))
	if _, err := io.Copy(w, content); err != nil {
		log.Error(err, "failed to write response")
	}
}
