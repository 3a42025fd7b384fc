package btx

import (
	"bytes"
	"fmt"

	"btxconv/internal/domain/texture"
)

// HeaderSize is the length of the BTX magic prefix.
const HeaderSize = 4

// DefaultMagic is the fixed prefix placed in front of the inner KTX payload.
var DefaultMagic = [HeaderSize]byte{0x4B, 0x54, 0x58, 0x11}

// Framer converts between BTX containers and their inner payload.
type Framer struct {
	magic [HeaderSize]byte
}

// NewFramer creates a framer for the given magic sequence.
func NewFramer(magic []byte) (*Framer, error) {
	if len(magic) != HeaderSize {
		return nil, fmt.Errorf("btx magic must be %d bytes, got %d", HeaderSize, len(magic))
	}
	f := &Framer{}
	copy(f.magic[:], magic)
	return f, nil
}

// Default returns a framer using DefaultMagic.
func Default() *Framer {
	return &Framer{magic: DefaultMagic}
}

// Magic returns a copy of the configured header.
func (f *Framer) Magic() []byte {
	out := make([]byte, HeaderSize)
	copy(out, f.magic[:])
	return out
}

// Strip drops the header and returns the remainder unmodified. The header
// bytes are not checked.
func (f *Framer) Strip(data []byte) ([]byte, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", texture.ErrMalformedInput, len(data), HeaderSize)
	}
	return data[HeaderSize:], nil
}

// Wrap prepends the header to inner.
func (f *Framer) Wrap(inner []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(inner))
	out = append(out, f.magic[:]...)
	return append(out, inner...)
}

// HasMagic reports whether data starts with the configured header.
func (f *Framer) HasMagic(data []byte) bool {
	return bytes.HasPrefix(data, f.magic[:])
}
