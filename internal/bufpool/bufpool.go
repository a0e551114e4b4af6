// Package bufpool recycles the byte buffers used to assemble command lines.
package bufpool

import (
	"bytes"
	"sync"
)

// Pool is a sync.Pool of *bytes.Buffer.
// Buffers grown past maxSize are dropped instead of being recycled.
type Pool struct {
	pool    sync.Pool
	maxSize int
}

func New(initialSize, maxSize int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, initialSize))
			},
		},
		maxSize: maxSize,
	}
}

// Get returns an empty buffer.
func (p *Pool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put returns buf to the pool, buf must not be used afterwards.
func (p *Pool) Put(buf *bytes.Buffer) {
	if buf.Cap() > p.maxSize {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}
