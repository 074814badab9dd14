// Package stage tracks the pending snapshot: path to hash mappings that
// the next commit will capture as a tree.
package stage

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tidemark/keel/pkg/fingerprint"
	"github.com/tidemark/keel/pkg/ignore"
	"github.com/tidemark/keel/pkg/model"
	"github.com/tidemark/keel/pkg/objects"
	"github.com/tidemark/keel/pkg/storage"
)

const (
	blobMode = os.FileMode(0644)
	treeMode = os.FileMode(0755)
)

// Option configures an Index
type Option func(*Index)

// WithLogger sets the logger used for debug output
func WithLogger(l *zap.Logger) Option {
	return func(i *Index) {
		if l != nil {
			i.logs = l
		}
	}
}

// New creates a staging index. Working-tree content is read from work,
// the durable index record lives in meta, blobs and trees are written
// through objs, and matcher filters ignored paths.
func New(objs *objects.Store, matcher *ignore.Matcher, work afero.Fs, meta storage.Store, opts ...Option) *Index {
	i := &Index{
		objs:    objs,
		matcher: matcher,
		work:    work,
		meta:    meta,
		logs:    zap.NewNop(),
		entries: make(map[string]model.IndexEntry),
	}
	for _, apply := range opts {
		apply(i)
	}
	return i
}

// Index is the staging area prior to commit.
type Index struct {
	objs    *objects.Store
	matcher *ignore.Matcher
	work    afero.Fs
	meta    storage.Store
	logs    *zap.Logger
	entries map[string]model.IndexEntry
}

func normalize(pth string) string {
	p := filepath.ToSlash(pth)
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Add stages the working-tree content of pth. An ignored path is a
// silent no-op, not an error. The index record is persisted before
// returning.
func (i *Index) Add(ctx context.Context, pth string) error {
	p := normalize(pth)
	if err := model.ValidatePath(p); err != nil {
		return err
	}
	if i.matcher.Match(p) {
		i.logs.Debug("path ignored, not staged", zap.String("path", p))
		return nil
	}

	fi, err := i.work.Stat(p)
	if err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	content, err := afero.ReadFile(i.work, p)
	if err != nil {
		return model.ErrFilesystem.Wrap(err)
	}

	key, err := i.objs.PutBlob(ctx, content)
	if err != nil {
		return err
	}

	i.entries[p] = model.IndexEntry{
		Path:   p,
		Hash:   key.String(),
		Size:   fi.Size(),
		Mtime:  fi.ModTime(),
		Staged: true,
	}
	i.logs.Debug("path staged", zap.String("path", p), zap.String("hash", key.String()))
	return i.Save(ctx)
}

// Remove unstages a path. Removing an unknown path is a no-op.
func (i *Index) Remove(ctx context.Context, pth string) error {
	p := normalize(pth)
	if _, ok := i.entries[p]; !ok {
		return nil
	}
	delete(i.entries, p)
	return i.Save(ctx)
}

// Clear drops every staged entry.
func (i *Index) Clear(ctx context.Context) error {
	i.entries = make(map[string]model.IndexEntry)
	return i.Save(ctx)
}

// List returns the staged entries sorted by path. Display order only;
// nothing downstream depends on it.
func (i *Index) List() []model.IndexEntry {
	out := make([]model.IndexEntry, 0, len(i.entries))
	for _, e := range i.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Path < out[b].Path })
	return out
}

// Lookup returns the staged entry for a path, if any.
func (i *Index) Lookup(pth string) (model.IndexEntry, bool) {
	e, ok := i.entries[normalize(pth)]
	return e, ok
}

// Len returns the number of staged entries.
func (i *Index) Len() int {
	return len(i.entries)
}

// BuildTree writes tree objects for the staged entries, deepest
// directories first so every child hash exists before its parent tree
// references it, and returns the root tree key.
func (i *Index) BuildTree(ctx context.Context) (fingerprint.Key, error) {
	children := make(map[string][]model.TreeEntry)
	dirs := map[string]struct{}{"": {}}

	for _, e := range i.entries {
		dir := parentDir(e.Path)
		for d := dir; d != ""; d = parentDir(d) {
			dirs[d] = struct{}{}
		}
		children[dir] = append(children[dir], model.TreeEntry{
			Mode: blobMode,
			Type: model.TypeBlob,
			Hash: e.Hash,
			Name: path.Base(e.Path),
		})
	}

	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(a, b int) bool {
		da, db := strings.Count(ordered[a], "/"), strings.Count(ordered[b], "/")
		if ordered[a] == "" {
			da = -1
		}
		if ordered[b] == "" {
			db = -1
		}
		if da != db {
			return da > db
		}
		return ordered[a] < ordered[b]
	})

	var root fingerprint.Key
	for _, d := range ordered {
		key, err := i.objs.PutTree(ctx, children[d])
		if err != nil {
			return fingerprint.Key{}, err
		}
		if d == "" {
			root = key
			break
		}
		parent := parentDir(d)
		children[parent] = append(children[parent], model.TreeEntry{
			Mode: treeMode,
			Type: model.TypeTree,
			Hash: key.String(),
			Name: path.Base(d),
		})
	}
	return root, nil
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}
