package repo

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/tidemark/keel/pkg/fingerprint"
	"github.com/tidemark/keel/pkg/model"
)

// Status classifies every path known to the working tree, the index or
// HEAD's tree by comparing recomputed working-tree hashes against both.
func (r *Repository) Status(ctx context.Context) ([]model.FileStatus, error) {
	if err := r.requireInitialized(ctx); err != nil {
		return nil, err
	}

	headTree, err := r.headTree(ctx)
	if err != nil {
		return nil, err
	}

	staged := make(map[string]string)
	for _, e := range r.idx.List() {
		staged[e.Path] = e.Hash
	}

	workHashes, err := r.workingTreeHashes(ctx)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]struct{})
	for p := range headTree {
		paths[p] = struct{}{}
	}
	for p := range staged {
		paths[p] = struct{}{}
	}
	for p := range workHashes {
		paths[p] = struct{}{}
	}

	out := make([]model.FileStatus, 0, len(paths))
	for p := range paths {
		out = append(out, model.FileStatus{
			Path:  p,
			State: classify(workHashes[p], staged[p], headTree[p]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// classify one path from its three hashes; any of them may be empty
// when the path is absent from that view.
func classify(work, staged, head string) model.FileState {
	switch {
	case staged == "" && head == "":
		return model.StateUntracked
	case staged != "":
		if work != staged {
			return model.StateModified
		}
		if staged == head {
			return model.StateCommitted
		}
		return model.StateStaged
	default:
		// committed but no longer staged
		if work == head {
			return model.StateCommitted
		}
		return model.StateModified
	}
}

// headTree flattens HEAD's tree into path -> blob hash.
func (r *Repository) headTree(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	commitHash, err := r.resolveHead(ctx)
	if err != nil || commitHash == "" {
		return out, err
	}
	commitKey, err := fingerprint.KeyFromString(commitHash)
	if err != nil {
		return nil, model.ErrCorrupted.Wrap(err)
	}
	c, err := r.objs.GetCommit(ctx, commitKey)
	if err != nil {
		return nil, err
	}
	treeKey, err := fingerprint.KeyFromString(c.Tree)
	if err != nil {
		return nil, model.ErrCorrupted.Wrap(err)
	}
	if err := r.flattenTree(ctx, treeKey, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) flattenTree(ctx context.Context, key fingerprint.Key, prefix string, out map[string]string) error {
	entries, err := r.objs.GetTree(ctx, key)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := path.Join(prefix, e.Name)
		if e.Type == model.TypeBlob {
			out[p] = e.Hash
			continue
		}
		childKey, err := fingerprint.KeyFromString(e.Hash)
		if err != nil {
			return model.ErrCorrupted.Wrap(err)
		}
		if err := r.flattenTree(ctx, childKey, p, out); err != nil {
			return err
		}
	}
	return nil
}

// workingTreeHashes digests every non-ignored working-tree file without
// writing anything to the object store.
func (r *Repository) workingTreeHashes(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	err := afero.Walk(r.work, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
		if rel == "" || rel == "." {
			return nil
		}
		if info.IsDir() {
			if rel == r.cfg.MetaDir || r.matcher.Match(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if r.matcher.Match(rel) {
			return nil
		}
		content, err := afero.ReadFile(r.work, p)
		if err != nil {
			return err
		}
		out[rel] = r.objs.Digest(model.TypeBlob, content).String()
		return nil
	})
	if err != nil {
		return nil, model.ErrFilesystem.Wrap(err)
	}
	return out, nil
}
