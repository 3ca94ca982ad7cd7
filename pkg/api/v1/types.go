package v1

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

// RepositorySpec describes one hosted apt repository.
type RepositorySpec struct {
	Storage StorageSpec `json:"storage"`
	Apt     AptSpec     `json:"apt"`
	// WritePolicy is the base overwrite rule for the repository:
	// ALLOW, ALLOW_ONCE or DENY. Defaults to ALLOW_ONCE.
	WritePolicy string `json:"writePolicy,omitempty"`
}

type StorageSpec struct {
	// BlobDir is the directory holding staged and content-addressed
	// package data.
	BlobDir string `json:"blobDir"`
	// Database is the path of the sqlite database holding component
	// and asset records.
	Database string `json:"database"`
}

type AptSpec struct {
	// Distribution is the release the repository serves (e.g.
	// "bookworm"). Required.
	Distribution string `json:"distribution"`
	// Flat indicates that index files live at the repository root
	// rather than under dists/.
	Flat bool `json:"flat,omitempty"`
}

type Repository struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec RepositorySpec `json:"spec"`
}
