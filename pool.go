package cascade

import (
	"bytes"
	"sync"
)

// Factory builds and recycles pooled items.
type Factory[T any] interface {
	New() T
	Reset(item T)
}

// Pool is a typed sync.Pool that resets items on Put.
type Pool[T any] struct {
	pool    sync.Pool
	factory Factory[T]
}

func NewPool[T any](factory Factory[T]) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() interface{} {
				return factory.New()
			},
		},
		factory: factory,
	}
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(item T) {
	p.factory.Reset(item)
	p.pool.Put(item)
}

type bufferFactory struct{}

func (bufferFactory) New() *bytes.Buffer {
	return new(bytes.Buffer)
}

func (bufferFactory) Reset(buf *bytes.Buffer) {
	buf.Reset()
}
