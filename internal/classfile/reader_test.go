package classfile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_BigEndian(t *testing.T) {
	t.Parallel()

	r := newReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F})

	v1, err := r.u1()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), v1)

	v2, err := r.u2()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), v2)

	v4, err := r.u4()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04050607), v4)

	v8, err := r.u8()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x08090A0B0C0D0E0F), v8)

	assert.Equal(t, 15, r.pos())
	assert.Equal(t, 0, r.remaining())
}

func TestReader_ShortInputIsTruncation(t *testing.T) {
	t.Parallel()

	r := newReader([]byte{0xCA, 0xFE})
	r.section = "header"

	_, err := r.u4()
	var trunc *TruncationError
	require.True(t, errors.As(err, &trunc), "got %v", err)
	assert.Equal(t, "header", trunc.Section)
	assert.Equal(t, 0, trunc.Offset)
	assert.Equal(t, 4, trunc.Need)
	assert.Equal(t, 2, trunc.Have)
}

func TestReader_SubReaderOverrunIsFormatError(t *testing.T) {
	t.Parallel()

	r := newReader([]byte{0xAA, 0xBB, 0x00, 0x01, 0xCC})
	_, err := r.u2()
	require.NoError(t, err)

	body, err := r.sub(2, "Signature attribute")
	require.NoError(t, err)
	assert.Equal(t, 4, r.pos(), "parent advances past the body")
	assert.Equal(t, 2, body.pos(), "sub-reader reports file offsets")

	_, err = body.u4()
	var fe *FormatError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, 2, fe.Offset)
	assert.Contains(t, fe.Msg, "Signature attribute")
}

func TestReader_SubBeyondInputIsTruncation(t *testing.T) {
	t.Parallel()

	r := newReader([]byte{0x00, 0x01})
	_, err := r.sub(8, "Code attribute")

	var trunc *TruncationError
	assert.True(t, errors.As(err, &trunc), "got %v", err)
}

func TestReader_U2s(t *testing.T) {
	t.Parallel()

	r := newReader([]byte{0x00, 0x02, 0x00, 0x07, 0x00, 0x09})
	vals, err := r.u2s()
	require.NoError(t, err)
	assert.Equal(t, []uint16{7, 9}, vals)
}
