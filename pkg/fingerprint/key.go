package fingerprint

import (
	"encoding/hex"
	"fmt"
)

const (
	// KeySize for blake2b-256 digests
	KeySize = 32

	// KeySizeHex for the hex representation of a key
	KeySizeHex = 2 * KeySize
)

// Key identifies an object by the digest of its type-tagged content.
type Key [KeySize]byte

// NewKey creates a new key from raw digest bytes
func NewKey(data []byte) (Key, error) {
	var k Key
	n := copy(k[:], data)
	if n != KeySize || len(data) != KeySize {
		return Key{}, &BadKeySize{Key: data}
	}
	return k, nil
}

// MustNewKey creates a new key from raw digest bytes but panics on error
func MustNewKey(data []byte) Key {
	k, e := NewKey(data)
	if e != nil {
		panic(e.Error())
	}
	return k
}

// KeyFromString parses the hex rendering of a key
func KeyFromString(s string) (Key, error) {
	if len(s) != KeySizeHex {
		return Key{}, &BadKeySize{Key: []byte(s)}
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, err
	}
	return NewKey(data)
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether the key holds no digest
func (k Key) IsZero() bool {
	return k == Key{}
}

// BadKeySize is returned when raw key material has an invalid length.
type BadKeySize struct {
	Key []byte
}

func (b *BadKeySize) Error() string {
	return fmt.Sprintf("%x has invalid size of %d, expected %d", b.Key, len(b.Key), KeySize)
}
