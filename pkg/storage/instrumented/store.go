// Package instrumented decorates a storage.Store with tracing spans and
// debug logging.
package instrumented

import (
	"context"
	"io"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/tidemark/keel/pkg/storage"
)

// New wraps store so every operation opens an opentracing span and emits a
// debug log line.
func New(tr opentracing.Tracer, logger *zap.Logger, store storage.Store) storage.Store {
	if tr == nil {
		tr = opentracing.NoopTracer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumentedStore{
		tr:    tr,
		store: store,
		logs:  logger.With(zap.String("store", store.String())),
	}
}

type instrumentedStore struct {
	store storage.Store
	tr    opentracing.Tracer
	logs  *zap.Logger
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}

func (i *instrumentedStore) opName(name string) string {
	return strings.Join([]string{"storage", i.String(), name}, ".")
}

func (i *instrumentedStore) spanFromContext(ctx context.Context, name string) opentracing.Span {
	parent := opentracing.SpanFromContext(ctx)
	if parent != nil {
		return i.tr.StartSpan(name, opentracing.ChildOf(parent.Context()))
	}
	return i.tr.StartSpan(name)
}

func (i *instrumentedStore) Has(ctx context.Context, key string) (bool, error) {
	span := i.spanFromContext(ctx, i.opName("Has"))
	defer span.Finish()
	i.logs.Debug("storage has", zap.String("key", key))

	return i.store.Has(ctx, key)
}

func (i *instrumentedStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	span := i.spanFromContext(ctx, i.opName("Get"))
	defer span.Finish()
	i.logs.Debug("storage get", zap.String("key", key))

	return i.store.Get(ctx, key)
}

func (i *instrumentedStore) Put(ctx context.Context, key string, rdr io.Reader) error {
	span := i.spanFromContext(ctx, i.opName("Put"))
	defer span.Finish()
	i.logs.Debug("storage put", zap.String("key", key))

	return i.store.Put(ctx, key, rdr)
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) error {
	span := i.spanFromContext(ctx, i.opName("Delete"))
	defer span.Finish()
	i.logs.Debug("storage delete", zap.String("key", key))

	return i.store.Delete(ctx, key)
}

func (i *instrumentedStore) Keys(ctx context.Context) ([]string, error) {
	span := i.spanFromContext(ctx, i.opName("Keys"))
	defer span.Finish()
	i.logs.Debug("storage keys")

	return i.store.Keys(ctx)
}

func (i *instrumentedStore) Clear(ctx context.Context) error {
	span := i.spanFromContext(ctx, i.opName("Clear"))
	defer span.Finish()
	i.logs.Debug("storage clear")

	return i.store.Clear(ctx)
}
