package clvm

import (
	"bytes"
	"errors"
	"io"
)

// Byte serialization is a ledger compatibility surface: puzzle reveals and
// solutions are submitted in exactly this encoding.
//
//	0x80                    nil / empty atom
//	0x00..0x7f              one-byte atom, encoded as itself
//	0x80|len                atom up to 0x3f bytes
//	0xc0.. 0xe0.. 0xf0..    longer atoms, big-endian length in the low bits
//	0xff <left> <right>     pair

var (
	ErrAtomOverflow = errors.New("atom exceeds maximum serializable size")
	ErrBadEncoding  = errors.New("malformed serialization")
)

const maxAtomSize = 0x3FFFFFFFF

// Serialize encodes n into its canonical byte form.
func Serialize(a *Allocator, n NodePtr) ([]byte, error) {
	var buf bytes.Buffer
	if err := serializeNode(a, n, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func serializeNode(a *Allocator, n NodePtr, buf *bytes.Buffer) error {
	if a.IsPair(n) {
		buf.WriteByte(0xff)
		if err := serializeNode(a, a.Left(n), buf); err != nil {
			return err
		}
		return serializeNode(a, a.Right(n), buf)
	}
	atom := a.AtomBytes(n)
	switch size := uint64(len(atom)); {
	case size == 0:
		buf.WriteByte(0x80)
	case size == 1 && atom[0] < 0x80:
		buf.WriteByte(atom[0])
	case size <= 0x3f:
		buf.WriteByte(0x80 | byte(size))
		buf.Write(atom)
	case size <= 0x1fff:
		buf.WriteByte(0xc0 | byte(size>>8))
		buf.WriteByte(byte(size))
		buf.Write(atom)
	case size <= 0xfffff:
		buf.WriteByte(0xe0 | byte(size>>16))
		buf.WriteByte(byte(size >> 8))
		buf.WriteByte(byte(size))
		buf.Write(atom)
	case size <= 0x7ffffff:
		buf.WriteByte(0xf0 | byte(size>>24))
		buf.WriteByte(byte(size >> 16))
		buf.WriteByte(byte(size >> 8))
		buf.WriteByte(byte(size))
		buf.Write(atom)
	case size <= maxAtomSize:
		buf.WriteByte(0xf8 | byte(size>>32))
		buf.WriteByte(byte(size >> 24))
		buf.WriteByte(byte(size >> 16))
		buf.WriteByte(byte(size >> 8))
		buf.WriteByte(byte(size))
		buf.Write(atom)
	default:
		return ErrAtomOverflow
	}
	return nil
}

// Deserialize decodes one value from b, which must contain exactly one
// serialized value.
func Deserialize(a *Allocator, b []byte) (NodePtr, error) {
	r := bytes.NewReader(b)
	n, err := deserializeNode(a, r)
	if err != nil {
		return 0, err
	}
	if r.Len() != 0 {
		return 0, ErrBadEncoding
	}
	return n, nil
}

func deserializeNode(a *Allocator, r *bytes.Reader) (NodePtr, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, ErrBadEncoding
	}
	if first == 0xff {
		left, err := deserializeNode(a, r)
		if err != nil {
			return 0, err
		}
		right, err := deserializeNode(a, r)
		if err != nil {
			return 0, err
		}
		return a.Pair(left, right), nil
	}
	if first == 0x80 {
		return a.Nil(), nil
	}
	if first < 0x80 {
		return a.Atom([]byte{first}), nil
	}
	var size uint64
	var lenBytes int
	switch {
	case first&0xc0 == 0x80:
		size = uint64(first & 0x3f)
	case first&0xe0 == 0xc0:
		size, lenBytes = uint64(first&0x1f), 1
	case first&0xf0 == 0xe0:
		size, lenBytes = uint64(first&0x0f), 2
	case first&0xf8 == 0xf0:
		size, lenBytes = uint64(first&0x07), 3
	case first&0xfc == 0xf8:
		size, lenBytes = uint64(first&0x03), 4
	default:
		return 0, ErrBadEncoding
	}
	for i := 0; i < lenBytes; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, ErrBadEncoding
		}
		size = size<<8 | uint64(c)
	}
	if size > maxAtomSize {
		return 0, ErrAtomOverflow
	}
	atom := make([]byte, size)
	if _, err := io.ReadFull(r, atom); err != nil {
		return 0, ErrBadEncoding
	}
	return a.Atom(atom), nil
}
