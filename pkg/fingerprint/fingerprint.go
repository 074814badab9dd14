// Package fingerprint computes the content digests the object store is
// keyed by. Digests are blake2b-256 over a type-tagged preimage, so two
// objects of different types never collide even when their payloads are
// byte-identical.
package fingerprint

import (
	"fmt"
	"io"

	units "github.com/docker/go-units"
	blake2b "github.com/minio/blake2b-simd"
)

// Option configures a Maker
type Option func(*Maker)

// BufferSize sets the read buffer used when digesting streams
func BufferSize(sz int) Option {
	return func(m *Maker) {
		if sz > 0 {
			m.bufferSize = sz
		}
	}
}

// New creates a digest maker
func New(opts ...Option) *Maker {
	m := &Maker{
		bufferSize: int(64 * units.KiB),
	}
	for _, apply := range opts {
		apply(m)
	}
	return m
}

// Maker computes type-tagged blake2b digests.
type Maker struct {
	bufferSize int
}

// Digest hashes the canonical preimage "<tag> <len>\0<payload>".
func (m *Maker) Digest(tag string, payload []byte) Key {
	h := blake2b.New256()
	fmt.Fprintf(h, "%s %d\x00", tag, len(payload))
	_, _ = h.Write(payload)
	return MustNewKey(h.Sum(nil))
}

// DigestReader hashes a stream whose total payload length is known
// upfront. The length is part of the preimage, so it must be exact.
func (m *Maker) DigestReader(tag string, length int64, r io.Reader) (Key, error) {
	h := blake2b.New256()
	fmt.Fprintf(h, "%s %d\x00", tag, length)
	buf := make([]byte, m.bufferSize)
	n, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return Key{}, err
	}
	if n != length {
		return Key{}, fmt.Errorf("stream length %d does not match declared length %d", n, length)
	}
	return MustNewKey(h.Sum(nil)), nil
}
