package storage

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// FSStore is a filesystem-based implementation of ObjectStore.
// It stores objects in a content-addressable layout:
//
//	<base>/
//	  objects/
//	    ab/
//	      cd1234... (first 2 chars = subdir, rest = filename)
//	  refs/
//	    runs/
//	      <run-id> (one "type<TAB>name<TAB>hash" line per upload)
type FSStore struct {
	basePath string
	mu       sync.RWMutex
	now      func() time.Time
}

var _ ObjectStore = (*FSStore)(nil)

// NewFSStore creates a new filesystem-based object store.
func NewFSStore(basePath string) (*FSStore, error) {
	dirs := []string{
		filepath.Join(basePath, "objects"),
		filepath.Join(basePath, "refs", "runs"),
		filepath.Join(basePath, "tmp"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &FSStore{basePath: basePath, now: time.Now}, nil
}

// Put streams an object into the store and returns its content hash.
func (fs *FSStore) Put(ctx context.Context, obj *Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	src := obj.Reader
	if src == nil {
		src = bytes.NewReader(obj.Data)
	}

	// Hash while copying into a temp file; the final location depends on the hash.
	tmp, err := os.CreateTemp(filepath.Join(fs.basePath, "tmp"), "put-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	hash := hex.EncodeToString(h.Sum(nil))

	objectPath := fs.objectPath(hash)
	metadata, err := fs.readMetadata(hash)
	if _, statErr := os.Stat(objectPath); statErr == nil && err == nil {
		metadata.RefCount++
		if obj.Name != "" && !slices.Contains(metadata.Names, obj.Name) {
			metadata.Names = append(metadata.Names, obj.Name)
		}
		if err := fs.writeMetadata(hash, metadata); err != nil {
			return hash, fmt.Errorf("update metadata: %w", err)
		}
		obj.Hash, obj.Size = hash, size
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := os.Rename(tmpName, objectPath); err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}

	metadata = Metadata{
		CreatedAt: fs.now(),
		RefCount:  1,
		Custom:    make(map[string]string),
	}
	if obj.Name != "" {
		metadata.Names = []string{obj.Name}
	}
	for k, v := range obj.Metadata.Custom {
		metadata.Custom[k] = v
	}
	metadata.Custom["object_type"] = string(obj.Type)

	if err := fs.writeMetadata(hash, metadata); err != nil {
		return hash, fmt.Errorf("write metadata: %w", err)
	}

	obj.Hash, obj.Size = hash, size
	return hash, nil
}

// Get retrieves an object by its content hash.
func (fs *FSStore) Get(ctx context.Context, hash string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	// #nosec G304 - objectPath is internal, constructed from a hash
	data, err := os.ReadFile(fs.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Hash: hash}
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	metadata, err := fs.readMetadata(hash)
	if err != nil {
		return nil, err
	}

	obj := &Object{
		Hash:     hash,
		Type:     ObjectType(metadata.Custom["object_type"]),
		Size:     int64(len(data)),
		Data:     data,
		Metadata: metadata,
	}
	if len(metadata.Names) > 0 {
		obj.Name = metadata.Names[0]
	}
	return obj, nil
}

// Close releases resources.
func (fs *FSStore) Close() error {
	return nil
}

// AppendRunRef records an upload for runID.
func (fs *FSStore) AppendRunRef(runID string, ref Ref) error {
	if err := validateRunID(runID); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	refPath := filepath.Join(fs.basePath, "refs", "runs", runID)
	// #nosec G304 - refPath is internal, runID is validated
	f, err := os.OpenFile(refPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open run ref: %w", err)
	}
	_, err = fmt.Fprintf(f, "%s\t%s\t%s\n", ref.Type, ref.Name, ref.Hash)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("append run ref: %w", err)
	}
	return nil
}

// RunRefs returns the uploads recorded for runID in upload order.
func (fs *FSStore) RunRefs(runID string) ([]Ref, error) {
	if err := validateRunID(runID); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	// #nosec G304 - refPath is internal, runID is validated
	f, err := os.Open(filepath.Join(fs.basePath, "refs", "runs", runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run ref: %w", err)
	}
	defer func() { _ = f.Close() }()

	var refs []Ref
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", 3)
		if len(parts) != 3 {
			continue
		}
		refs = append(refs, Ref{Type: ObjectType(parts[0]), Name: parts[1], Hash: parts[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan run ref: %w", err)
	}
	return refs, nil
}

func validateRunID(runID string) error {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}

// objectPath returns the filesystem path for an object.
func (fs *FSStore) objectPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(fs.basePath, "objects", hash)
	}
	// Use first 2 chars as directory, rest as filename
	return filepath.Join(fs.basePath, "objects", hash[:2], hash[2:])
}

func (fs *FSStore) metadataPath(hash string) string {
	return fs.objectPath(hash) + ".meta.json"
}

func (fs *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 - metadataPath is internal, constructed from a hash
	data, err := os.ReadFile(fs.metadataPath(hash))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if metadata.Custom == nil {
		metadata.Custom = make(map[string]string)
	}
	return metadata, nil
}

func (fs *FSStore) writeMetadata(hash string, metadata Metadata) error {
	metadataPath := fs.metadataPath(hash)

	if err := os.MkdirAll(filepath.Dir(metadataPath), 0o750); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := os.WriteFile(metadataPath, data, 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
