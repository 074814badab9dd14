// Package repo orchestrates the engine: it owns HEAD and the branch
// refs and composes the object store, staging index and ignore matcher
// into the init/add/commit/branch/checkout/log/status operations.
package repo

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tidemark/keel/pkg/ignore"
	"github.com/tidemark/keel/pkg/model"
	"github.com/tidemark/keel/pkg/objects"
	"github.com/tidemark/keel/pkg/stage"
	"github.com/tidemark/keel/pkg/storage"
	"github.com/tidemark/keel/pkg/storage/instrumented"
	"github.com/tidemark/keel/pkg/storage/localfs"
)

// Repository composes the engine components over one working tree. All
// collaborators are wired eagerly at construction; nothing is
// materialized lazily on first use.
type Repository struct {
	cfg     Config
	work    afero.Fs
	metaFs  afero.Fs
	meta    storage.Store
	objs    *objects.Store
	matcher *ignore.Matcher
	idx     *stage.Index
	logs    *zap.Logger
}

// New wires a repository over cfg's working tree. When the repository
// is already initialized, persisted config, ignore rules and the index
// are loaded; otherwise the instance is ready for Init.
func New(ctx context.Context, cfg Config) (*Repository, error) {
	cfg = cfg.withDefaults()

	work := cfg.Workspace
	metaFs := afero.NewBasePathFs(work, cfg.MetaDir)
	meta := instrumented.New(cfg.Tracer, cfg.Logger, localfs.New(metaFs))

	objs := objects.New(meta, objects.WithLogger(cfg.Logger))
	matcher := ignore.New(
		ignore.WithLogger(cfg.Logger),
		ignore.MetaDir(cfg.MetaDir),
	)
	idx := stage.New(objs, matcher, work, meta, stage.WithLogger(cfg.Logger))

	r := &Repository{
		cfg:     cfg,
		work:    work,
		metaFs:  metaFs,
		meta:    meta,
		objs:    objs,
		matcher: matcher,
		idx:     idx,
		logs:    cfg.Logger,
	}

	initialized, err := r.initialized(ctx)
	if err != nil {
		return nil, err
	}
	if initialized {
		if r.cfg, err = readConfigFile(work, cfg.MetaDir, r.cfg); err != nil {
			return nil, err
		}
		if err := r.matcher.LoadFile(work, ignore.DefaultRulesFile); err != nil {
			return nil, err
		}
		if err := r.idx.Load(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Objects exposes the object store to collaborators.
func (r *Repository) Objects() *objects.Store {
	return r.objs
}

// Stage exposes the staging index to collaborators.
func (r *Repository) Stage() *stage.Index {
	return r.idx
}

// Matcher exposes the ignore matcher to collaborators.
func (r *Repository) Matcher() *ignore.Matcher {
	return r.matcher
}

func (r *Repository) initialized(ctx context.Context) (bool, error) {
	has, err := r.meta.Has(ctx, model.HeadPath())
	if err != nil {
		return false, model.ErrFilesystem.Wrap(err)
	}
	return has, nil
}

// Init creates the on-disk skeleton: object and ref directories, a HEAD
// pointing at the default branch, an empty index, the config file and
// the repository descriptor.
func (r *Repository) Init(ctx context.Context) error {
	initialized, err := r.initialized(ctx)
	if err != nil {
		return err
	}
	if initialized {
		return model.ErrInitialized
	}

	for _, dir := range []string{"objects", "refs/heads", "refs/tags"} {
		if err := r.metaFs.MkdirAll(dir, 0700); err != nil {
			return model.ErrFilesystem.Wrap(err)
		}
	}
	if err := r.writeHeadBranch(ctx, r.cfg.DefaultBranch); err != nil {
		return err
	}
	if err := r.idx.Save(ctx); err != nil {
		return err
	}
	if err := writeConfigFile(r.work, r.cfg.MetaDir, r.cfg); err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	if err := r.writeDescriptor(ctx); err != nil {
		return err
	}
	// user rules may predate init
	if err := r.matcher.LoadFile(r.work, ignore.DefaultRulesFile); err != nil {
		return err
	}

	r.logs.Info("repository initialized",
		zap.String("branch", r.cfg.DefaultBranch),
		zap.String("meta", r.cfg.MetaDir))
	return nil
}

// Add stages a working-tree path. Ignored paths are silently skipped.
func (r *Repository) Add(ctx context.Context, pth string) error {
	if err := r.requireInitialized(ctx); err != nil {
		return err
	}
	return r.idx.Add(ctx, pth)
}

// ReloadIgnoreRules re-reads the rules file, invalidating the match
// cache.
func (r *Repository) ReloadIgnoreRules() error {
	return r.matcher.LoadFile(r.work, ignore.DefaultRulesFile)
}

func (r *Repository) requireInitialized(ctx context.Context) error {
	initialized, err := r.initialized(ctx)
	if err != nil {
		return err
	}
	if !initialized {
		return model.ErrNotFound.Wrap(errNotARepository)
	}
	return nil
}
