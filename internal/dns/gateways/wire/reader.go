package wire

import (
	"encoding/binary"
	"fmt"
)

// reader walks a message body front to back. Every read is bounds-checked and
// reports the field it was after when the buffer runs out.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) need(n int, field string) error {
	if n < 0 || r.remaining() < n {
		return fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d", ErrShortBuffer, field, n, r.off, r.remaining())
	}
	return nil
}

func (r *reader) u8(field string) (uint8, error) {
	if err := r.need(1, field); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) u16(field string) (uint16, error) {
	if err := r.need(2, field); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u32(field string) (uint32, error) {
	if err := r.need(4, field); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// bytes returns a copy of the next n bytes so the result never aliases the
// read buffer.
func (r *reader) bytes(n int, field string) ([]byte, error) {
	if err := r.need(n, field); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

// rest returns a copy of everything not yet consumed. It is never nil.
func (r *reader) rest() []byte {
	out := make([]byte, r.remaining())
	copy(out, r.buf[r.off:])
	r.off = len(r.buf)
	return out
}
