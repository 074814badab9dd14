package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tidemark/keel/pkg/fingerprint"
	"github.com/tidemark/keel/pkg/model"
	"github.com/tidemark/keel/pkg/storage"
)

var errNotARepository = errors.New("not a repository (run init first)")

// Head describes the current HEAD: the checked out branch, or the bare
// commit hash when detached.
type Head struct {
	Branch string
	Commit string
}

// Detached reports whether HEAD points at a commit rather than a branch.
func (h Head) Detached() bool {
	return h.Branch == ""
}

// Head reads and parses the HEAD record.
func (r *Repository) Head(ctx context.Context) (Head, error) {
	data, err := storage.ReadAll(ctx, r.meta, model.HeadPath())
	if err != nil {
		if err == storage.ErrNotFound {
			return Head{}, model.ErrNotFound.Wrap(errNotARepository)
		}
		return Head{}, model.ErrFilesystem.Wrap(err)
	}
	branch, commit := model.ParseHead(string(data))
	return Head{Branch: branch, Commit: commit}, nil
}

// resolveHead returns the commit hash HEAD currently resolves to, empty
// when the repository has no commits yet.
func (r *Repository) resolveHead(ctx context.Context) (string, error) {
	head, err := r.Head(ctx)
	if err != nil {
		return "", err
	}
	if head.Detached() {
		return head.Commit, nil
	}
	hash, err := r.readRef(ctx, model.BranchRefPath(head.Branch))
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return "", err
	}
	return hash, nil
}

func (r *Repository) readRef(ctx context.Context, key string) (string, error) {
	data, err := storage.ReadAll(ctx, r.meta, key)
	if err != nil {
		if err == storage.ErrNotFound {
			return "", model.ErrNotFound.Wrap(fmt.Errorf("ref %s", key))
		}
		return "", model.ErrFilesystem.Wrap(err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (r *Repository) writeRef(ctx context.Context, key, hash string) error {
	if err := r.meta.Put(ctx, key, bytes.NewReader([]byte(hash+"\n"))); err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	return nil
}

func (r *Repository) hasRef(ctx context.Context, key string) (bool, error) {
	has, err := r.meta.Has(ctx, key)
	if err != nil {
		return false, model.ErrFilesystem.Wrap(err)
	}
	return has, nil
}

func (r *Repository) writeHeadBranch(ctx context.Context, branch string) error {
	record := model.SymbolicHead(branch) + "\n"
	if err := r.meta.Put(ctx, model.HeadPath(), bytes.NewReader([]byte(record))); err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	return nil
}

func (r *Repository) writeHeadDetached(ctx context.Context, hash string) error {
	if err := r.meta.Put(ctx, model.HeadPath(), bytes.NewReader([]byte(hash+"\n"))); err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	return nil
}

// CreateBranch adds a named pointer at the commit HEAD resolves to.
func (r *Repository) CreateBranch(ctx context.Context, name string) error {
	if err := model.ValidateRefName(name); err != nil {
		return err
	}
	key := model.BranchRefPath(name)
	has, err := r.hasRef(ctx, key)
	if err != nil {
		return err
	}
	if has {
		return model.ErrExists.Wrap(fmt.Errorf("branch %q", name))
	}
	commit, err := r.resolveHead(ctx)
	if err != nil {
		return err
	}
	if commit == "" {
		return model.ErrNotFound.Wrap(fmt.Errorf("branch %q: no commits yet", name))
	}
	if err := r.writeRef(ctx, key, commit); err != nil {
		return err
	}
	r.logs.Info("branch created", zap.String("branch", name), zap.String("commit", commit))
	return nil
}

// CreateTag adds an immutable named pointer at the commit HEAD
// resolves to.
func (r *Repository) CreateTag(ctx context.Context, name string) error {
	if err := model.ValidateRefName(name); err != nil {
		return err
	}
	key := model.TagRefPath(name)
	has, err := r.hasRef(ctx, key)
	if err != nil {
		return err
	}
	if has {
		return model.ErrExists.Wrap(fmt.Errorf("tag %q", name))
	}
	commit, err := r.resolveHead(ctx)
	if err != nil {
		return err
	}
	if commit == "" {
		return model.ErrNotFound.Wrap(fmt.Errorf("tag %q: no commits yet", name))
	}
	return r.writeRef(ctx, key, commit)
}

// Checkout repoints HEAD at a branch. The working tree is deliberately
// left untouched; materialization is a collaborator concern.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	if err := r.requireInitialized(ctx); err != nil {
		return err
	}
	has, err := r.hasRef(ctx, model.BranchRefPath(branch))
	if err != nil {
		return err
	}
	if !has {
		return model.ErrUnknownBranch.Wrap(fmt.Errorf("branch %q", branch))
	}
	if err := r.writeHeadBranch(ctx, branch); err != nil {
		return err
	}
	r.logs.Info("checked out", zap.String("branch", branch))
	return nil
}

// CheckoutCommit detaches HEAD at an existing commit.
func (r *Repository) CheckoutCommit(ctx context.Context, hash string) error {
	if err := r.requireInitialized(ctx); err != nil {
		return err
	}
	key, err := fingerprint.KeyFromString(hash)
	if err != nil {
		return model.ErrNotFound.Wrap(err)
	}
	has, err := r.objs.Has(ctx, key)
	if err != nil {
		return err
	}
	if !has {
		return model.ErrNotFound.Wrap(fmt.Errorf("commit %s", hash))
	}
	return r.writeHeadDetached(ctx, hash)
}

// ListBranches returns the known branch names, sorted.
func (r *Repository) ListBranches(ctx context.Context) ([]string, error) {
	return r.listRefs(ctx, model.BranchFromRefPath)
}

// ListTags returns the known tag names, sorted.
func (r *Repository) ListTags(ctx context.Context) ([]string, error) {
	return r.listRefs(ctx, model.TagFromRefPath)
}

func (r *Repository) listRefs(ctx context.Context, fromPath func(string) (string, bool)) ([]string, error) {
	keys, err := r.meta.Keys(ctx)
	if err != nil {
		return nil, model.ErrFilesystem.Wrap(err)
	}
	var names []string
	for _, k := range keys {
		if name, ok := fromPath(k); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
