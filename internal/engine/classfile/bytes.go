package classfile

import (
	"encoding/binary"
	"fmt"
)

// byteReader is a big-endian cursor with a sticky error: once a read runs past
// the end every further read returns zero and err stays set.
type byteReader struct {
	buf []byte
	pos int
	err error
}

// endOfDataError reports a read past the end of the class data.
type endOfDataError struct {
	offset, need, have int
}

func (e *endOfDataError) Error() string {
	return fmt.Sprintf("unexpected end of data at offset %d (need %d bytes, have %d)", e.offset, e.need, e.have)
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (r *byteReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = &endOfDataError{offset: r.pos, need: n, have: len(r.buf) - r.pos}
		return false
	}
	return true
}

func (r *byteReader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *byteReader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v
}

func (r *byteReader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *byteReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *byteReader) skip(n int) {
	if r.need(n) {
		r.pos += n
	}
}

func (r *byteReader) remaining() int {
	return len(r.buf) - r.pos
}
