package classfile

import "encoding/binary"

// reader is a big-endian cursor over class-file bytes.
//
// base is the absolute offset of data[0] in the class file so that errors
// raised by attribute sub-readers still report file offsets. When bounded is
// set the reader covers one attribute body: running out of bytes there means
// the attribute lied about its length, which is a format error rather than a
// truncated file.
type reader struct {
	data    []byte
	offset  int
	base    int
	section string
	bounded bool
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

// sub returns a reader over the next n bytes and advances past them.
func (r *reader) sub(n int, section string) (*reader, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	s := &reader{
		data:    r.data[r.offset : r.offset+n],
		base:    r.base + r.offset,
		section: section,
		bounded: true,
	}
	r.offset += n
	return s, nil
}

func (r *reader) pos() int {
	return r.base + r.offset
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) need(n int) error {
	if r.remaining() >= n {
		return nil
	}
	if r.bounded {
		return formatErrorf(r.pos(), "%s overruns its declared length (need %d bytes, have %d)",
			r.section, n, r.remaining())
	}
	return &TruncationError{Section: r.section, Offset: r.pos(), Need: n, Have: r.remaining()}
}

func (r *reader) u1() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.offset]
	r.offset++
	return v, nil
}

func (r *reader) u2() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

func (r *reader) u8() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.data[r.offset : r.offset+n]
	r.offset += n
	return v, nil
}

func (r *reader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.offset += n
	return nil
}

// u2s reads a u2 count followed by that many u2 values.
func (r *reader) u2s() ([]uint16, error) {
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		if out[i], err = r.u2(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
