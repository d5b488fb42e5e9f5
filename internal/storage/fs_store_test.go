package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSStore_PutGet(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	obj := &Object{Type: ObjectTypeLog, Name: "test_output.log", Reader: strings.NewReader("hello log")}

	hash, err := store.Put(ctx, obj)
	require.NoError(t, err)
	require.Len(t, hash, 64)
	require.Equal(t, hash, obj.Hash)
	require.EqualValues(t, len("hello log"), obj.Size)

	got, err := store.Get(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, "hello log", string(got.Data))
	require.Equal(t, ObjectTypeLog, got.Type)
	require.Equal(t, "test_output.log", got.Name)
	require.Equal(t, 1, got.Metadata.RefCount)
}

func TestFSStore_Deduplicates(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	h1, err := store.Put(ctx, &Object{Type: ObjectTypeArtifact, Name: "a.txt", Data: []byte("same")})
	require.NoError(t, err)
	h2, err := store.Put(ctx, &Object{Type: ObjectTypeArtifact, Name: "b.txt", Data: []byte("same")})
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	got, err := store.Get(ctx, h1)
	require.NoError(t, err)
	require.Equal(t, 2, got.Metadata.RefCount)
	require.Equal(t, []string{"a.txt", "b.txt"}, got.Metadata.Names)
}

func TestFSStore_GetMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "abcdef")
	require.True(t, IsNotFound(err))
}

func TestFSStore_RunRefs(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	refs, err := store.RunRefs("run-1")
	require.NoError(t, err)
	require.Empty(t, refs)

	require.NoError(t, store.AppendRunRef("run-1", Ref{Type: ObjectTypeLog, Name: "a.log", Hash: "h1"}))
	require.NoError(t, store.AppendRunRef("run-1", Ref{Type: ObjectTypeArtifact, Name: "dir/b", Hash: "h2"}))

	refs, err = store.RunRefs("run-1")
	require.NoError(t, err)
	require.Equal(t, []Ref{
		{Type: ObjectTypeLog, Name: "a.log", Hash: "h1"},
		{Type: ObjectTypeArtifact, Name: "dir/b", Hash: "h2"},
	}, refs)

	if err := store.AppendRunRef("../escape", Ref{}); err == nil {
		t.Fatalf("expected invalid run id error")
	}
}
