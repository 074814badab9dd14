package objects

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/keel/pkg/fingerprint"
	"github.com/tidemark/keel/pkg/model"
	"github.com/tidemark/keel/pkg/storage"
	"github.com/tidemark/keel/pkg/storage/localfs"
)

func setupStore(t *testing.T) (*Store, storage.Store) {
	t.Helper()
	meta := localfs.New(afero.NewMemMapFs())
	return New(meta), meta
}

func TestPutBlobIdempotent(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	k1, err := s.PutBlob(ctx, []byte("hi"))
	require.NoError(t, err)
	k2, err := s.PutBlob(ctx, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := s.PutBlob(ctx, []byte("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestObjectRoundTrip(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	content := []byte("round trip payload")

	key, err := s.PutBlob(ctx, content)
	require.NoError(t, err)

	typ, payload, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.TypeBlob, typ)
	assert.Equal(t, content, payload)

	has, err := s.Has(ctx, key)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestPutTreeCanonicalOrder(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	a := model.TreeEntry{Mode: 0644, Type: model.TypeBlob, Hash: "aa11", Name: "a.txt"}
	b := model.TreeEntry{Mode: 0644, Type: model.TypeBlob, Hash: "bb22", Name: "b.txt"}
	c := model.TreeEntry{Mode: 0755, Type: model.TypeTree, Hash: "cc33", Name: "sub"}

	k1, err := s.PutTree(ctx, []model.TreeEntry{a, b, c})
	require.NoError(t, err)
	k2, err := s.PutTree(ctx, []model.TreeEntry{c, a, b})
	require.NoError(t, err)
	k3, err := s.PutTree(ctx, []model.TreeEntry{b, c, a})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, k1, k3)

	entries, err := s.GetTree(ctx, k1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "b.txt", entries[1].Name)
	assert.Equal(t, "sub", entries[2].Name)
}

func TestPutTreeRejectsBadEntries(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.PutTree(ctx, []model.TreeEntry{{Type: model.TypeBlob, Hash: "aa"}})
	require.Error(t, err)
	_, err = s.PutTree(ctx, []model.TreeEntry{{Type: model.TypeCommit, Hash: "aa", Name: "x"}})
	require.Error(t, err)
	_, err = s.PutTree(ctx, []model.TreeEntry{{Type: model.TypeBlob, Name: "x"}})
	require.Error(t, err)

	// names that would break the line-oriented tree record
	for _, name := range []string{"a\nb", "a\tb", "a/b"} {
		_, err = s.PutTree(ctx, []model.TreeEntry{{Type: model.TypeBlob, Hash: "aa", Name: name}})
		require.Error(t, err, "name %q", name)
	}
}

func TestCommitRoundTrip(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	treeKey, err := s.PutTree(ctx, nil)
	require.NoError(t, err)

	in := model.CommitDescriptor{
		Tree:      treeKey.String(),
		Parent:    "",
		Author:    model.Contributor{Name: "Ann Example", Email: "ann@example.com"},
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Message:   "first commit\n\nwith a body",
	}
	key, err := s.PutCommit(ctx, in)
	require.NoError(t, err)

	out, err := s.GetCommit(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, in.Tree, out.Tree)
	assert.Empty(t, out.Parent)
	assert.Equal(t, in.Author, out.Author)
	assert.Equal(t, in.Timestamp, out.Timestamp)
	assert.Equal(t, in.Message, out.Message)
}

func TestCommitWithParent(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	treeKey, err := s.PutTree(ctx, nil)
	require.NoError(t, err)
	first, err := s.PutCommit(ctx, model.CommitDescriptor{
		Tree:      treeKey.String(),
		Author:    model.Contributor{Name: "Ann"},
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Message:   "one",
	})
	require.NoError(t, err)

	second, err := s.PutCommit(ctx, model.CommitDescriptor{
		Tree:      treeKey.String(),
		Parent:    first.String(),
		Author:    model.Contributor{Name: "Ann"},
		Timestamp: time.Unix(1700000100, 0).UTC(),
		Message:   "two",
	})
	require.NoError(t, err)

	out, err := s.GetCommit(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, first.String(), out.Parent)
}

func TestGetNotFound(t *testing.T) {
	s, _ := setupStore(t)
	key := fingerprint.New().Digest("blob", []byte("never stored"))

	_, _, err := s.Get(context.Background(), key)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetCorruptObject(t *testing.T) {
	s, meta := setupStore(t)
	ctx := context.Background()

	key, err := s.PutBlob(ctx, []byte("pristine"))
	require.NoError(t, err)

	// no header terminator
	path := model.ObjectPath(key.String())
	require.NoError(t, meta.Put(ctx, path, bytes.NewReader([]byte("garbage without header"))))
	_, _, err = s.Get(ctx, key)
	require.ErrorIs(t, err, model.ErrCorrupted)

	// well-formed frame whose digest disagrees with the file name
	require.NoError(t, meta.Put(ctx, path, bytes.NewReader([]byte("blob 8\x00tampered"))))
	_, _, err = s.Get(ctx, key)
	require.ErrorIs(t, err, model.ErrCorrupted)

	// declared length disagrees with payload
	require.NoError(t, meta.Put(ctx, path, bytes.NewReader([]byte("blob 99\x00short"))))
	_, _, err = s.Get(ctx, key)
	require.ErrorIs(t, err, model.ErrCorrupted)

	// unknown type tag
	require.NoError(t, meta.Put(ctx, path, bytes.NewReader([]byte("bloob 2\x00hi"))))
	_, _, err = s.Get(ctx, key)
	require.ErrorIs(t, err, model.ErrCorrupted)
}

func TestObjectPathSharding(t *testing.T) {
	s, meta := setupStore(t)
	ctx := context.Background()

	key, err := s.PutBlob(ctx, []byte("sharded"))
	require.NoError(t, err)

	hex := key.String()
	want := "objects/" + hex[:2] + "/" + hex[2:]
	has, err := meta.Has(ctx, want)
	require.NoError(t, err)
	assert.True(t, has)
}
