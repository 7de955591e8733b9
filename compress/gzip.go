// Package compress is the gzip layer between a serialized value and the
// bytes handed to a provider.
//
// Decode is policy-free: a payload is decompressed only when it starts with
// the standard gzip header, so records written under a different Policy (or
// before compression was enabled) stay readable.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var (
	ErrUnsupportedValue = errors.New("compress: value must be string or []byte")
	ErrCorrupt          = errors.New("compress: corrupt gzip payload")
)

// magic is the gzip member header: ID1, ID2, CM=deflate.
var magic = []byte{0x1f, 0x8b, 0x08}

type mode uint8

const (
	modeUnset mode = iota
	modeNever
	modeAlways
	modeAbove
)

// Policy decides when Encode compresses. The zero value is "unset": it
// compresses nothing and lets option merging fall back to a default.
type Policy struct {
	mode mode
	kb   int
}

// Never disables compression.
func Never() Policy { return Policy{mode: modeNever} }

// Always compresses every payload.
func Always() Policy { return Policy{mode: modeAlways} }

// Above compresses payloads strictly larger than kb*1000 bytes.
// Non-positive kb disables compression.
func Above(kb int) Policy {
	if kb <= 0 {
		return Never()
	}
	return Policy{mode: modeAbove, kb: kb}
}

func (p Policy) IsZero() bool { return p.mode == modeUnset }

func (p Policy) should(n int) bool {
	switch p.mode {
	case modeAlways:
		return true
	case modeAbove:
		return n > p.kb*1000
	default:
		return false
	}
}

func (p Policy) String() string {
	switch p.mode {
	case modeAlways:
		return "always"
	case modeAbove:
		return fmt.Sprintf("above(%dkB)", p.kb)
	case modeNever:
		return "never"
	default:
		return "unset"
	}
}

// Encode converts v to bytes and compresses them when p says so.
// v must be a string or a []byte.
func Encode(v any, p Policy) ([]byte, error) {
	var raw []byte
	switch x := v.(type) {
	case []byte:
		raw = x
	case string:
		raw = []byte(x)
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedValue, v)
	}
	if !p.should(len(raw)) {
		return raw, nil
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsCompressed reports whether b starts with the gzip header.
func IsCompressed(b []byte) bool {
	return len(b) >= len(magic) && bytes.Equal(b[:len(magic)], magic)
}

// Decode returns the decompressed payload when b is gzip, b unchanged otherwise.
func Decode(b []byte) ([]byte, error) {
	if !IsCompressed(b) {
		return b, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}
