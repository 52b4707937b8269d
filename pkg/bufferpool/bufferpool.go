// Package bufferpool pools scratch byte buffers for encoders.
package bufferpool

import (
	"sync"
)

const _size = 1024 // by default, create 1 KiB buffers

// buffers that grew beyond this are dropped instead of pooled
const _maxPooledSize = 1 << 20

var pool = &sync.Pool{
	New: func() interface{} {
		return &Buffer{B: make([]byte, 0, _size)}
	},
}

type Buffer struct {
	B []byte
}

// Release returns the Buffer to its pool.
//
// Callers must not retain references to the Buffer after calling Release.
func (b *Buffer) Release() {
	if cap(b.B) > _maxPooledSize {
		return
	}
	pool.Put(b)
}

// Copy returns a copy of the buffered bytes that outlives the buffer.
func (b *Buffer) Copy() []byte {
	out := make([]byte, len(b.B))
	copy(out, b.B)
	return out
}

func Get() *Buffer {
	buf := pool.Get().(*Buffer)
	buf.B = buf.B[:0]
	return buf
}
