package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeModifiedUTF8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("java/lang/Object"), "java/lang/Object"},
		{"empty", []byte{}, ""},
		{"two-byte NUL", []byte{'a', 0xC0, 0x80, 'b'}, "a\x00b"},
		{"two-byte latin", []byte{0xC3, 0xA9}, "é"},
		{"three-byte BMP", []byte{0xE2, 0x82, 0xAC}, "€"},
		{"surrogate pair", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, "😀"},
		{"lone high surrogate", []byte{0xED, 0xA0, 0xBD, 'x'}, "�x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := decodeModifiedUTF8(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeModifiedUTF8_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
	}{
		{"raw NUL", []byte{'a', 0x00}},
		{"four-byte form", []byte{0xF0, 0x9F, 0x98, 0x80}},
		{"cut two-byte", []byte{0xC3}},
		{"cut three-byte", []byte{0xE2, 0x82}},
		{"bad continuation", []byte{0xC3, 0x41}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decodeModifiedUTF8(tt.in)
			assert.Error(t, err)
		})
	}
}
