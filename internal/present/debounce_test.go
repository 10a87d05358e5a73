package present

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebounce_CollapsesBurst(t *testing.T) {
	var calls atomic.Int32
	d := Debounce(20*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Call()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebounce_Stop(t *testing.T) {
	var calls atomic.Int32
	d := Debounce(10*time.Millisecond, func() { calls.Add(1) })

	d.Call()
	d.Stop()
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
}
