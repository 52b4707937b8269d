package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionKey(t *testing.T) {
	vk := VersionKey([]byte{0x01, 0x02}, 300)
	key, height, ok := SplitVersionKey(vk)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, key)
	assert.EqualValues(t, 300, height)

	// versions of one key sort by height
	assert.Less(t, string(VersionKey([]byte{0x01}, 2)), string(VersionKey([]byte{0x01}, 10)))

	_, _, ok = SplitVersionKey([]byte{0x01})
	assert.False(t, ok)
}

func TestPrefixEnd(t *testing.T) {
	tests := []struct {
		prefix   []byte
		expected []byte
	}{
		{[]byte{0x01}, []byte{0x02}},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0xff, 0xff}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, PrefixEnd(tt.prefix), "prefix %x", tt.prefix)
	}
}
