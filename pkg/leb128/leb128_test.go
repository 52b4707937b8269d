package leb128

import (
	"math"
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// values that fit in 64 bits encode like a protobuf varint
func TestUint128SmallValues(t *testing.T) {
	tests := []struct {
		name     string
		input    uint64
		expected []byte
	}{
		{name: "zero", input: 0, expected: []byte{0x00}},
		{name: "one byte", input: 127, expected: []byte{0x7f}},
		{name: "two bytes", input: 128, expected: []byte{0x80, 0x01}},
		{name: "624485", input: 624485, expected: []byte{0xe5, 0x8e, 0x26}},
		{name: "max uint64", input: math.MaxUint64, expected: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeUint128(uint128.From64(tt.input))
			assert.Equal(t, tt.expected, encoded)

			decoded, length, err := DecodeUint128(append(encoded, 0xaa))
			require.NoError(t, err)
			assert.Equal(t, uint128.From64(tt.input), decoded)
			assert.Equal(t, len(encoded), length)
		})
	}

	t.Run("empty", func(t *testing.T) {
		_, _, err := DecodeUint128(nil)
		assert.ErrorIs(t, err, ErrEmpty)
	})
	t.Run("unterminated", func(t *testing.T) {
		_, _, err := DecodeUint128([]byte{0x80, 0x80})
		assert.ErrorIs(t, err, ErrUnterminated)
	})
}

func TestUint128(t *testing.T) {
	tests := []struct {
		name  string
		input uint128.Uint128
	}{
		{name: "zero", input: uint128.Zero},
		{name: "small", input: uint128.From64(300)},
		{name: "above uint64", input: uint128.New(5, 7)},
		{name: "max", input: uint128.Max},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := AppendUint128([]byte{0x01}, tt.input)
			assert.Equal(t, EncodeUint128(tt.input), encoded[1:])

			decoded, length, err := DecodeUint128(encoded[1:])
			require.NoError(t, err)
			assert.Equal(t, tt.input, decoded)
			assert.Equal(t, len(encoded)-1, length)
		})
	}
}
