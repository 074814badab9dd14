// Package storage defines the K/V file store the engine persists into.
package storage

import (
	"context"
	"io"
	"io/ioutil"
)

type errString string

func (e errString) Error() string { return string(e) }

const (
	// ErrNotFound is returned when a key has no stored entry
	ErrNotFound errString = "not found"

	// ErrForbidden is returned when the backend denies access
	ErrForbidden errString = "forbidden"

	// ErrExists is returned by exclusive writes over a present key
	ErrExists errString = "exists already"
)

// Store implementations know how to persist entries to a K/V store.
//
// Typically this is something file system-like. Implementations of this
// interface are assumed to be fairly simple: keys may contain slashes and
// map to nested paths.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}

// ReadAll fetches a key and drains it into memory.
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	rdr, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	return ioutil.ReadAll(rdr)
}

// PipeIO copies reader to writer with a bounded buffer.
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	buf := make([]byte, 32*1024)
	return io.CopyBuffer(writer, reader, buf)
}
