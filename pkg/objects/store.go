// Package objects implements the content-addressable object store. An
// object is persisted under the hex digest of its type-tagged bytes, so
// writes are idempotent and a stored object can never change meaning.
package objects

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tidemark/keel/pkg/fingerprint"
	"github.com/tidemark/keel/pkg/model"
	"github.com/tidemark/keel/pkg/storage"
)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for debug output
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logs = l
		}
	}
}

// WithMaker overrides the digest maker
func WithMaker(m *fingerprint.Maker) Option {
	return func(s *Store) {
		if m != nil {
			s.maker = m
		}
	}
}

// New creates an object store persisting into meta.
func New(meta storage.Store, opts ...Option) *Store {
	s := &Store{
		meta:  meta,
		maker: fingerprint.New(),
		logs:  zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// Store is a content-addressable store for blob, tree and commit objects.
type Store struct {
	meta  storage.Store
	maker *fingerprint.Maker
	logs  *zap.Logger
}

// PutBlob persists raw file content and returns its key. Re-writing the
// same content is a no-op.
func (s *Store) PutBlob(ctx context.Context, content []byte) (fingerprint.Key, error) {
	return s.put(ctx, model.TypeBlob, content)
}

// PutTree persists a directory listing. Entries are serialized in
// canonical name order, so the caller's insertion order never affects
// the resulting key.
func (s *Store) PutTree(ctx context.Context, entries []model.TreeEntry) (fingerprint.Key, error) {
	for _, e := range entries {
		if err := model.ValidateEntryName(e.Name); err != nil {
			return fingerprint.Key{}, err
		}
		if e.Type != model.TypeBlob && e.Type != model.TypeTree {
			return fingerprint.Key{}, fmt.Errorf("tree entry %q has invalid type %q", e.Name, e.Type)
		}
		if e.Hash == "" {
			return fingerprint.Key{}, fmt.Errorf("tree entry %q has no hash", e.Name)
		}
	}
	return s.put(ctx, model.TypeTree, encodeTree(entries))
}

// PutCommit persists a commit record.
func (s *Store) PutCommit(ctx context.Context, c model.CommitDescriptor) (fingerprint.Key, error) {
	if c.Tree == "" {
		return fingerprint.Key{}, fmt.Errorf("commit has no tree hash")
	}
	return s.put(ctx, model.TypeCommit, encodeCommit(c))
}

func (s *Store) put(ctx context.Context, t model.ObjectType, payload []byte) (fingerprint.Key, error) {
	key := s.maker.Digest(t.String(), payload)
	path := model.ObjectPath(key.String())

	has, err := s.meta.Has(ctx, path)
	if err != nil {
		return fingerprint.Key{}, model.ErrFilesystem.Wrap(err)
	}
	if has {
		// immutable and content-keyed: nothing to do
		return key, nil
	}
	if err := s.meta.Put(ctx, path, bytes.NewReader(frame(t, payload))); err != nil {
		return fingerprint.Key{}, model.ErrFilesystem.Wrap(err)
	}
	s.logs.Debug("object written",
		zap.String("type", t.String()),
		zap.String("hash", key.String()),
		zap.Int("bytes", len(payload)))
	return key, nil
}

// Get reads an object back by key. It fails with model.ErrNotFound when
// absent and model.ErrCorrupted when the stored bytes violate the
// self-describing format or no longer digest to the key.
func (s *Store) Get(ctx context.Context, key fingerprint.Key) (model.ObjectType, []byte, error) {
	data, err := storage.ReadAll(ctx, s.meta, model.ObjectPath(key.String()))
	if err != nil {
		if err == storage.ErrNotFound {
			return "", nil, model.ErrNotFound.Wrap(fmt.Errorf("object %s", key))
		}
		return "", nil, model.ErrFilesystem.Wrap(err)
	}
	t, payload, err := unframe(data)
	if err != nil {
		return "", nil, err
	}
	if recomputed := s.maker.Digest(t.String(), payload); recomputed != key {
		return "", nil, model.ErrCorrupted.Wrap(
			fmt.Errorf("object %s digests to %s", key, recomputed))
	}
	return t, payload, nil
}

// GetTree reads a tree object and decodes its entries.
func (s *Store) GetTree(ctx context.Context, key fingerprint.Key) ([]model.TreeEntry, error) {
	t, payload, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if t != model.TypeTree {
		return nil, model.ErrCorrupted.Wrap(fmt.Errorf("object %s is a %s, expected tree", key, t))
	}
	return ParseTree(payload)
}

// GetCommit reads a commit object and decodes its record.
func (s *Store) GetCommit(ctx context.Context, key fingerprint.Key) (model.CommitDescriptor, error) {
	t, payload, err := s.Get(ctx, key)
	if err != nil {
		return model.CommitDescriptor{}, err
	}
	if t != model.TypeCommit {
		return model.CommitDescriptor{},
			model.ErrCorrupted.Wrap(fmt.Errorf("object %s is a %s, expected commit", key, t))
	}
	return ParseCommit(payload)
}

// Has reports whether an object is present.
func (s *Store) Has(ctx context.Context, key fingerprint.Key) (bool, error) {
	has, err := s.meta.Has(ctx, model.ObjectPath(key.String()))
	if err != nil {
		return false, model.ErrFilesystem.Wrap(err)
	}
	return has, nil
}

// Digest computes the key content would be stored under, without
// persisting anything.
func (s *Store) Digest(t model.ObjectType, payload []byte) fingerprint.Key {
	return s.maker.Digest(t.String(), payload)
}
