// Package pools provides object pooling for reducing GC pressure.
//
// Frame exports are rendered into a buffer before anything is written so
// a failed export can still become an error response. Those buffers are
// recycled here.
package pools

import (
	"bytes"
	"sync"
)

// MaxPooled is the default capacity above which buffers are dropped
// instead of pooled, so one huge export does not pin memory
const MaxPooled = 1 << 20

// BufferPool recycles bytes.Buffers
type BufferPool struct {
	pool   sync.Pool
	maxCap int
}

// NewBufferPool creates a pool that keeps buffers up to maxCap bytes.
// maxCap <= 0 uses MaxPooled.
func NewBufferPool(maxCap int) *BufferPool {
	if maxCap <= 0 {
		maxCap = MaxPooled
	}
	return &BufferPool{
		pool: sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
		maxCap: maxCap,
	}
}

// Get returns an empty buffer
func (p *BufferPool) Get() *bytes.Buffer {
	b, ok := p.pool.Get().(*bytes.Buffer)
	if !ok {
		return new(bytes.Buffer)
	}
	return b
}

// Put resets b and returns it to the pool. b must not be used afterwards.
func (p *BufferPool) Put(b *bytes.Buffer) {
	if b == nil || b.Cap() > p.maxCap {
		return
	}
	b.Reset()
	p.pool.Put(b)
}

var defaultBuffers = NewBufferPool(MaxPooled)

// GetBuffer returns a buffer from the default pool
func GetBuffer() *bytes.Buffer {
	return defaultBuffers.Get()
}

// PutBuffer returns a buffer to the default pool
func PutBuffer(b *bytes.Buffer) {
	defaultBuffers.Put(b)
}
