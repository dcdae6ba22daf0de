package reactive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_Tick(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, uint64(0), c.Peek())

	assert.Equal(t, uint64(1), c.Tick())
	assert.Equal(t, uint64(2), c.Tick())
	assert.Equal(t, uint64(2), c.Read())
	assert.Equal(t, uint64(1), c.Reads())

	c.Reset()
	assert.Equal(t, uint64(0), c.Peek())
}

func TestCounter_Subscribe(t *testing.T) {
	var c Counter
	var seen []uint64

	unsubscribe := c.Subscribe(func(v uint64) { seen = append(seen, v) })
	c.Tick()
	c.Tick()
	unsubscribe()
	c.Tick()

	assert.Equal(t, []uint64{1, 2}, seen)
}

func TestCounter_SubscribeOrder(t *testing.T) {
	var c Counter
	var order []string

	c.Subscribe(func(uint64) { order = append(order, "first") })
	c.Subscribe(func(uint64) { order = append(order, "second") })
	c.Subscribe(nil)()
	c.Tick()

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestCounter_UnsubscribeDuringNotify(t *testing.T) {
	var c Counter
	calls := 0

	var unsubscribe func()
	unsubscribe = c.Subscribe(func(uint64) {
		calls++
		unsubscribe()
	})
	c.Tick()
	c.Tick()

	assert.Equal(t, 1, calls)
}

func TestCounter_ConcurrentTicks(t *testing.T) {
	c := NewCounter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Tick()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), c.Peek())
}
