package repo

import (
	"bytes"
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tidemark/keel/pkg/model"
	"github.com/tidemark/keel/pkg/storage"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

func (r *Repository) writeDescriptor(ctx context.Context) error {
	desc := model.RepoDescriptor{
		Name:        r.cfg.Name,
		Description: r.cfg.Description,
		Timestamp:   time.Now().UTC(),
		Contributor: r.cfg.Contributor,
	}
	if err := model.Validate(desc); err != nil {
		return err
	}
	data, err := jsonit.Marshal(desc)
	if err != nil {
		return err
	}
	if err := r.meta.Put(ctx, model.RepoDescriptorPath(), bytes.NewReader(data)); err != nil {
		return model.ErrFilesystem.Wrap(err)
	}
	return nil
}

// Descriptor reads back the repository descriptor.
func (r *Repository) Descriptor(ctx context.Context) (model.RepoDescriptor, error) {
	data, err := storage.ReadAll(ctx, r.meta, model.RepoDescriptorPath())
	if err != nil {
		if err == storage.ErrNotFound {
			return model.RepoDescriptor{}, model.ErrNotFound.Wrap(errNotARepository)
		}
		return model.RepoDescriptor{}, model.ErrFilesystem.Wrap(err)
	}
	var desc model.RepoDescriptor
	if err := jsonit.Unmarshal(data, &desc); err != nil {
		return model.RepoDescriptor{}, model.ErrCorrupted.Wrap(err)
	}
	return desc, nil
}
