package logarea

import (
	"context"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/storage"
)

// DirBackend stores uploads in a local content-addressable store and keeps
// a per-run index of what was uploaded.
type DirBackend struct {
	store storage.ObjectStore
}

// NewDirBackend opens (or creates) the store rooted at path.
func NewDirBackend(path string) (*DirBackend, error) {
	store, err := storage.NewFSStore(path)
	if err != nil {
		return nil, rerrors.WorkspaceError("open upload store", err)
	}
	return &DirBackend{store: store}, nil
}

func (b *DirBackend) Name() string { return "dir" }

// Store exposes the underlying object store.
func (b *DirBackend) Store() storage.ObjectStore { return b.store }

func (b *DirBackend) Upload(ctx context.Context, u Upload) error {
	obj := &storage.Object{
		Type:   objectType(u.Kind),
		Name:   u.Name,
		Reader: u.Body,
		Metadata: storage.Metadata{
			Custom: map[string]string{"run_id": u.RunID},
		},
	}
	hash, err := b.store.Put(ctx, obj)
	if err != nil {
		return rerrors.UploadFailed(string(u.Kind), err)
	}
	if u.RunID == "" {
		return nil
	}
	if err := b.store.AppendRunRef(u.RunID, storage.Ref{Type: obj.Type, Name: u.Name, Hash: hash}); err != nil {
		return rerrors.UploadFailed(string(u.Kind), err)
	}
	return nil
}

func (b *DirBackend) Close() error { return b.store.Close() }

func objectType(k Kind) storage.ObjectType {
	if k == KindLogs {
		return storage.ObjectTypeLog
	}
	return storage.ObjectTypeArtifact
}
