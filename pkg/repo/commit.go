package repo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tidemark/keel/pkg/fingerprint"
	"github.com/tidemark/keel/pkg/model"
)

// Commit captures the staged tree as a new commit and advances the
// current branch. The commit object is durably written before any ref
// moves, so a ref can never point at a missing commit; when the staged
// tree is identical to the tree at HEAD the call fails with
// model.ErrNothingStaged and no state changes.
func (r *Repository) Commit(ctx context.Context, message string) (fingerprint.Key, error) {
	if err := r.requireInitialized(ctx); err != nil {
		return fingerprint.Key{}, err
	}

	root, err := r.idx.BuildTree(ctx)
	if err != nil {
		return fingerprint.Key{}, err
	}

	head, err := r.Head(ctx)
	if err != nil {
		return fingerprint.Key{}, err
	}
	parent, err := r.resolveHead(ctx)
	if err != nil {
		return fingerprint.Key{}, err
	}

	if parent != "" {
		parentKey, err := fingerprint.KeyFromString(parent)
		if err != nil {
			return fingerprint.Key{}, model.ErrCorrupted.Wrap(err)
		}
		parentCommit, err := r.objs.GetCommit(ctx, parentKey)
		if err != nil {
			return fingerprint.Key{}, err
		}
		if parentCommit.Tree == root.String() {
			return fingerprint.Key{}, model.ErrNothingStaged.Wrap(
				fmt.Errorf("staged tree %s matches HEAD", root))
		}
	}

	key, err := r.objs.PutCommit(ctx, model.CommitDescriptor{
		Tree:      root.String(),
		Parent:    parent,
		Author:    r.cfg.Contributor,
		Timestamp: time.Now().UTC(),
		Message:   message,
	})
	if err != nil {
		return fingerprint.Key{}, err
	}

	// the object is durable; only now may the ref advance
	if head.Detached() {
		err = r.writeHeadDetached(ctx, key.String())
	} else {
		err = r.writeRef(ctx, model.BranchRefPath(head.Branch), key.String())
	}
	if err != nil {
		return fingerprint.Key{}, err
	}

	r.logs.Info("commit created",
		zap.String("commit", key.String()),
		zap.String("tree", root.String()),
		zap.String("branch", head.Branch))
	return key, nil
}

// Log walks the parent chain from HEAD, newest first. An empty
// repository yields an empty slice.
func (r *Repository) Log(ctx context.Context) ([]model.CommitRecord, error) {
	if err := r.requireInitialized(ctx); err != nil {
		return nil, err
	}
	hash, err := r.resolveHead(ctx)
	if err != nil {
		return nil, err
	}

	var records []model.CommitRecord
	seen := make(map[string]struct{})
	for hash != "" {
		if _, ok := seen[hash]; ok {
			return nil, model.ErrCorrupted.Wrap(fmt.Errorf("commit %s is its own ancestor", hash))
		}
		seen[hash] = struct{}{}

		key, err := fingerprint.KeyFromString(hash)
		if err != nil {
			return nil, model.ErrCorrupted.Wrap(err)
		}
		c, err := r.objs.GetCommit(ctx, key)
		if err != nil {
			return nil, err
		}
		records = append(records, model.CommitRecord{Hash: hash, CommitDescriptor: c})
		hash = c.Parent
	}
	return records, nil
}
