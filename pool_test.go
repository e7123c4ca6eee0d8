package cascade

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFactory[T any] struct {
	mock.Mock
}

func (m *MockFactory[T]) New() T {
	args := m.Called()
	return args.Get(0).(T)
}

func (m *MockFactory[T]) Reset(item T) {
	m.Called(item)
}

func TestNewPool(t *testing.T) {
	var mockFactory MockFactory[int]
	mockFactory.On("New").Return(0)

	pool := NewPool[int](&mockFactory)

	assert.NotNil(t, pool, "pool should not be nil")
	assert.IsType(t, &Pool[int]{}, pool, "pool should be of type *Pool[int]")
}

func TestPoolOperations(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		var mockFactory MockFactory[int]
		mockFactory.On("New").Return(0)

		pool := NewPool[int](&mockFactory)
		item := pool.Get()

		assert.Equal(t, 0, item, "item should be 0")
	})

	t.Run("Put resets the item", func(t *testing.T) {
		var mockFactory MockFactory[int]
		mockFactory.On("New").Return(0)
		mockFactory.On("Reset", 0).Return()

		pool := NewPool[int](&mockFactory)
		item := pool.Get()
		pool.Put(item)

		assert.Equal(t, 0, pool.Get(), "retrievedItem should be 0")
		mockFactory.AssertCalled(t, "Reset", 0)
	})

	t.Run("Buffers come back empty", func(t *testing.T) {
		pool := NewPool[*bytes.Buffer](bufferFactory{})
		buf := pool.Get()
		buf.WriteString("dirty")
		pool.Put(buf)

		assert.Zero(t, pool.Get().Len())
	})
}
