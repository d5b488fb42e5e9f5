// Package storage provides content-addressable storage for uploaded test-run
// logs and artifacts.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore provides content-addressable storage for run files.
// Objects are stored by their content hash, so identical logs uploaded by
// several test directories are kept once.
type ObjectStore interface {
	// Put streams an object into the store and returns its content hash.
	// If the content already exists, the existing object is referenced again.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get retrieves an object by its content hash.
	// Returns ErrNotFound if the object doesn't exist.
	Get(ctx context.Context, hash string) (*Object, error)

	// AppendRunRef records that an object was uploaded as part of runID.
	AppendRunRef(runID string, ref Ref) error

	// RunRefs returns the uploads recorded for runID, oldest first.
	RunRefs(runID string) ([]Ref, error)

	// Close releases any resources held by the store.
	Close() error
}

// Object represents a stored file with its metadata.
type Object struct {
	// Hash is the content hash (SHA256) of the data. Filled in by Put.
	Hash string

	// Type identifies the kind of object.
	Type ObjectType

	// Name is the uploaded name (slash separated, relative to the collected directory).
	Name string

	// Size is the size of the data in bytes.
	Size int64

	// Data is the object content. Put reads Reader instead when it is set.
	Data []byte

	// Reader provides streaming access for Put.
	Reader io.Reader

	Metadata Metadata
}

// Metadata stores object metadata.
type Metadata struct {
	CreatedAt time.Time `json:"created_at"`

	// Names lists every name this content was uploaded under.
	Names []string `json:"names"`

	// RefCount counts uploads referencing this object.
	RefCount int `json:"ref_count"`

	Custom map[string]string `json:"custom,omitempty"`
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	ObjectTypeLog      ObjectType = "log"
	ObjectTypeArtifact ObjectType = "artifact"
)

// Ref records one upload of a run: which name of which kind maps to which object.
type Ref struct {
	Type ObjectType
	Name string
	Hash string
}

// ErrNotFound is returned when an object doesn't exist.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Hash
}

// IsNotFound returns true if the error is ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
