package stage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/keel/pkg/fingerprint"
	"github.com/tidemark/keel/pkg/ignore"
	"github.com/tidemark/keel/pkg/model"
	"github.com/tidemark/keel/pkg/objects"
	"github.com/tidemark/keel/pkg/storage"
	"github.com/tidemark/keel/pkg/storage/localfs"
)

type fixture struct {
	idx  *Index
	objs *objects.Store
	work afero.Fs
	meta storage.Store
}

func setupIndex(t *testing.T, rules string) *fixture {
	t.Helper()
	work := afero.NewMemMapFs()
	meta := localfs.New(afero.NewMemMapFs())
	objs := objects.New(meta)

	matcher := ignore.New()
	require.NoError(t, matcher.Load(strings.NewReader(rules)))

	return &fixture{
		idx:  New(objs, matcher, work, meta),
		objs: objs,
		work: work,
		meta: meta,
	}
}

func (f *fixture) writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.work, path, []byte(content), 0644))
}

func TestAddStagesFile(t *testing.T) {
	f := setupIndex(t, "")
	ctx := context.Background()
	f.writeFile(t, "a.txt", "hi")

	require.NoError(t, f.idx.Add(ctx, "a.txt"))

	entries := f.idx.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Path)
	assert.Equal(t, int64(2), entries[0].Size)
	assert.True(t, entries[0].Staged)

	// blob is in the object store under the entry hash
	wantKey := f.objs.Digest(model.TypeBlob, []byte("hi"))
	assert.Equal(t, wantKey.String(), entries[0].Hash)
}

func TestAddIgnoredIsNoop(t *testing.T) {
	f := setupIndex(t, "*.log\n")
	ctx := context.Background()
	f.writeFile(t, "debug.log", "noisy")

	require.NoError(t, f.idx.Add(ctx, "debug.log"))
	assert.Zero(t, f.idx.Len())
}

func TestAddMissingFile(t *testing.T) {
	f := setupIndex(t, "")

	err := f.idx.Add(context.Background(), "absent.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFilesystem)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAddRejectsControlCharacterPaths(t *testing.T) {
	f := setupIndex(t, "")
	ctx := context.Background()

	// MemMapFs happily creates these names; the index record is line and
	// tab delimited, so they must never reach it
	for _, pth := range []string{"a\nb.txt", "a\tb.txt", "dir/a\rb"} {
		f.writeFile(t, pth, "payload")
		require.Error(t, f.idx.Add(ctx, pth), "path %q", pth)
	}
	assert.Zero(t, f.idx.Len())

	// the persisted record is still loadable
	fresh := New(f.objs, ignore.New(), f.work, f.meta)
	require.NoError(t, fresh.Load(ctx))
	assert.Zero(t, fresh.Len())
}

func TestAddUpsertsEntry(t *testing.T) {
	f := setupIndex(t, "")
	ctx := context.Background()

	f.writeFile(t, "a.txt", "v1")
	require.NoError(t, f.idx.Add(ctx, "a.txt"))
	first, _ := f.idx.Lookup("a.txt")

	f.writeFile(t, "a.txt", "v2 is longer")
	require.NoError(t, f.idx.Add(ctx, "a.txt"))
	second, _ := f.idx.Lookup("a.txt")

	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Equal(t, 1, f.idx.Len())
}

func TestRemove(t *testing.T) {
	f := setupIndex(t, "")
	ctx := context.Background()
	f.writeFile(t, "a.txt", "hi")

	require.NoError(t, f.idx.Add(ctx, "a.txt"))
	require.NoError(t, f.idx.Remove(ctx, "a.txt"))
	assert.Zero(t, f.idx.Len())

	// removing an unknown path is a no-op
	require.NoError(t, f.idx.Remove(ctx, "never-staged.txt"))
}

func TestClear(t *testing.T) {
	f := setupIndex(t, "")
	ctx := context.Background()
	f.writeFile(t, "a.txt", "hi")
	f.writeFile(t, "b.txt", "ho")

	require.NoError(t, f.idx.Add(ctx, "a.txt"))
	require.NoError(t, f.idx.Add(ctx, "b.txt"))
	require.NoError(t, f.idx.Clear(ctx))
	assert.Zero(t, f.idx.Len())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := setupIndex(t, "")
	ctx := context.Background()
	f.writeFile(t, "a.txt", "hi")
	f.writeFile(t, "dir/b.txt", "ho")

	require.NoError(t, f.idx.Add(ctx, "a.txt"))
	require.NoError(t, f.idx.Add(ctx, "dir/b.txt"))
	before := f.idx.List()

	fresh := New(f.objs, ignore.New(), f.work, f.meta)
	require.NoError(t, fresh.Load(ctx))
	after := fresh.List()

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Path, after[i].Path)
		assert.Equal(t, before[i].Hash, after[i].Hash)
		assert.Equal(t, before[i].Size, after[i].Size)
		assert.True(t, before[i].Mtime.Equal(after[i].Mtime))
	}
}

func TestLoadMissingIndex(t *testing.T) {
	f := setupIndex(t, "")
	require.NoError(t, f.idx.Load(context.Background()))
	assert.Zero(t, f.idx.Len())
}

func TestBuildTreeNested(t *testing.T) {
	f := setupIndex(t, "")
	ctx := context.Background()
	f.writeFile(t, "a.txt", "root file")
	f.writeFile(t, "dir/b.txt", "nested")
	f.writeFile(t, "dir/sub/c.txt", "deeper")

	require.NoError(t, f.idx.Add(ctx, "a.txt"))
	require.NoError(t, f.idx.Add(ctx, "dir/b.txt"))
	require.NoError(t, f.idx.Add(ctx, "dir/sub/c.txt"))

	root, err := f.idx.BuildTree(ctx)
	require.NoError(t, err)

	entries, err := f.objs.GetTree(ctx, root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, model.TypeBlob, entries[0].Type)
	assert.Equal(t, "dir", entries[1].Name)
	assert.Equal(t, model.TypeTree, entries[1].Type)

	dirKey, err := fingerprint.KeyFromString(entries[1].Hash)
	require.NoError(t, err)
	dirEntries, err := f.objs.GetTree(ctx, dirKey)
	require.NoError(t, err)
	require.Len(t, dirEntries, 2)
	assert.Equal(t, "b.txt", dirEntries[0].Name)
	assert.Equal(t, "sub", dirEntries[1].Name)
}

func TestBuildTreeOrderIndependent(t *testing.T) {
	ctx := context.Background()

	build := func(order []string) string {
		f := setupIndex(t, "")
		f.writeFile(t, "a.txt", "one")
		f.writeFile(t, "dir/b.txt", "two")
		f.writeFile(t, "dir/c.txt", "three")
		for _, p := range order {
			require.NoError(t, f.idx.Add(ctx, p))
		}
		root, err := f.idx.BuildTree(ctx)
		require.NoError(t, err)
		return root.String()
	}

	r1 := build([]string{"a.txt", "dir/b.txt", "dir/c.txt"})
	r2 := build([]string{"dir/c.txt", "a.txt", "dir/b.txt"})
	r3 := build([]string{"dir/b.txt", "dir/c.txt", "a.txt"})
	assert.Equal(t, r1, r2)
	assert.Equal(t, r1, r3)
}

func TestBuildTreeEmptyIndex(t *testing.T) {
	f := setupIndex(t, "")

	root, err := f.idx.BuildTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.objs.Digest(model.TypeTree, nil), root)
}
