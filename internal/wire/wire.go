package wire

import (
	"bytes"
	"encoding/binary"
	"errors"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

const (
	version    byte = 1
	kindRecord byte = 1
)

var (
	ErrCorrupt = errors.New("swrcache: corrupt record")
	ErrTooLong = errors.New("swrcache: namespace or id too long")
	magic4     = [...]byte{'S', 'W', 'R', 'C'}
)

const hdrLen = 4 + 1 + 1 + 8 + 8

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record layout, all integers big endian:
//
//	magic(4) | ver(1) | kind(1) | createdAt(i64) | ttl(i64)
//	nsLen(u16) | ns | idLen(u16) | id | vlen(u32) | value(vlen)
//
// Byte-oriented providers (redis, bigcache, ristretto) store this envelope.
func EncodeRecord(rec pr.Record) ([]byte, error) {
	if len(rec.Namespace) > 0xFFFF || len(rec.ID) > 0xFFFF {
		return nil, ErrTooLong
	}

	var buf bytes.Buffer
	buf.Grow(hdrLen + 2 + len(rec.Namespace) + 2 + len(rec.ID) + 4 + len(rec.Value))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], uint64(rec.CreatedAt))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(rec.TTL))
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(rec.Namespace)))
	buf.Write(u2[:])
	buf.WriteString(rec.Namespace)

	binary.BigEndian.PutUint16(u2[:], uint16(len(rec.ID)))
	buf.Write(u2[:])
	buf.WriteString(rec.ID)

	binary.BigEndian.PutUint32(u4[:], uint32(len(rec.Value)))
	buf.Write(u4[:])
	buf.Write(rec.Value)

	return buf.Bytes(), nil
}

// DecodeRecord parses an envelope produced by EncodeRecord. The returned
// Value aliases b.
func DecodeRecord(b []byte) (pr.Record, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return pr.Record{}, ErrCorrupt
	}

	off := 6
	var rec pr.Record

	rec.CreatedAt = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	rec.TTL = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	ns, off, ok := readString(b, off)
	if !ok {
		return pr.Record{}, ErrCorrupt
	}
	id, off, ok := readString(b, off)
	if !ok {
		return pr.Record{}, ErrCorrupt
	}
	rec.Namespace, rec.ID = ns, id

	// vlen
	if off+4 > len(b) {
		return pr.Record{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // no trailing bytes
		return pr.Record{}, ErrCorrupt
	}
	rec.Value = b[off : off+vlen]
	return rec, nil
}

func readString(b []byte, off int) (string, int, bool) {
	if off+2 > len(b) {
		return "", off, false
	}
	n := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if n > len(b)-off {
		return "", off, false
	}
	return string(b[off : off+n]), off + n, true
}
