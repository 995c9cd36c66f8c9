package clvm

import "encoding/binary"

// AtomFromInt encodes v as a minimal-width signed big-endian atom. Zero is
// the empty atom. Leading bytes are stripped while they stay redundant: a
// zero byte is kept only when the next byte would otherwise flip the sign,
// and likewise for 0xff on negative values.
func AtomFromInt(v int64) []byte {
	if v == 0 {
		return []byte{}
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	for len(buf) > 1 {
		if buf[0] == 0x00 && buf[1]&0x80 == 0 {
			buf = buf[1:]
			continue
		}
		if buf[0] == 0xff && buf[1]&0x80 != 0 {
			buf = buf[1:]
			continue
		}
		break
	}
	return buf
}

// AtomFromUint64 encodes v with the same signed convention, adding a leading
// zero byte when the top bit is set so the value does not read as negative.
func AtomFromUint64(v uint64) []byte {
	if v == 0 {
		return []byte{}
	}
	buf := make([]byte, 9)
	binary.BigEndian.PutUint64(buf[1:], v)
	for len(buf) > 1 && buf[0] == 0x00 && buf[1]&0x80 == 0 {
		buf = buf[1:]
	}
	return buf
}

// IntFromAtom decodes a signed big-endian atom. It is the exact inverse of
// AtomFromInt for every int64.
func IntFromAtom(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) > 8 {
		return 0, ErrAtomTooLarge
	}
	var v int64
	if b[0]&0x80 != 0 {
		v = -1
	}
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v, nil
}

// Uint64FromAtom decodes an unsigned value, accepting the redundant leading
// zero byte AtomFromUint64 emits. Negative encodings are rejected.
func Uint64FromAtom(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if b[0]&0x80 != 0 {
		return 0, ErrAtomTooLarge
	}
	if b[0] == 0 {
		b = b[1:]
	}
	if len(b) > 8 {
		return 0, ErrAtomTooLarge
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}
