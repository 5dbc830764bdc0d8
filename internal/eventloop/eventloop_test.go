package eventloop_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"jsvm/internal/eventloop"
)

func TestSetTimeoutFiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := eventloop.New(func() {}, func() bool { return false })
	fired := 0
	loop.SetTimeout(10*time.Millisecond, func(args []interface{}) { fired++ })

	deadline := time.Now().Add(time.Second)
	for fired == 0 && time.Now().Before(deadline) {
		loop.RunOnce()
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 1, fired)

	// RunOnce again well after the deadline must not refire a one-shot timer.
	loop.RunOnce()
	assert.Equal(t, 1, fired)
}

func TestSetIntervalRefires(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := eventloop.New(func() {}, func() bool { return false })
	fired := 0
	id := loop.SetInterval(5*time.Millisecond, func(args []interface{}) { fired++ })

	deadline := time.Now().Add(time.Second)
	for fired < 3 && time.Now().Before(deadline) {
		loop.RunOnce()
		time.Sleep(time.Millisecond)
	}
	loop.ClearInterval(id)
	require.GreaterOrEqual(t, fired, 3)

	stoppedAt := fired
	time.Sleep(20 * time.Millisecond)
	loop.RunOnce()
	assert.Equal(t, stoppedAt, fired, "clearInterval must stop further firings")
}

func TestClearTimeoutPreventsFiring(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := eventloop.New(func() {}, func() bool { return false })
	fired := false
	id := loop.SetTimeout(5*time.Millisecond, func(args []interface{}) { fired = true })
	loop.ClearTimeout(id)

	time.Sleep(20 * time.Millisecond)
	loop.RunOnce()
	assert.False(t, fired)
}

func TestRunDrainsMicrotasksBeforeAndAfterTimers(t *testing.T) {
	defer goleak.VerifyNone(t)

	var order []string
	drainCount := 0
	hasMicro := func() bool { return false }
	drain := func() { drainCount++ }

	loop := eventloop.New(drain, hasMicro)
	loop.SetTimeout(0, func(args []interface{}) { order = append(order, "timer") })
	loop.Run()

	assert.Contains(t, order, "timer")
	assert.GreaterOrEqual(t, drainCount, 2, "drain should run both before and after the timer fires")
}

func TestPendingReflectsLiveTimersAndMicrotasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	hasMicro := false
	loop := eventloop.New(func() {}, func() bool { return hasMicro })
	assert.False(t, loop.Pending())

	id := loop.SetTimeout(time.Hour, func(args []interface{}) {})
	assert.True(t, loop.Pending())
	loop.ClearTimeout(id)
	assert.False(t, loop.Pending())

	hasMicro = true
	assert.True(t, loop.Pending())
}

func TestTimerCallbackReceivesArgs(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := eventloop.New(func() {}, func() bool { return false })
	var got []interface{}
	loop.SetTimeout(0, func(args []interface{}) { got = args }, "a", 1.0)

	deadline := time.Now().Add(time.Second)
	for got == nil && time.Now().Before(deadline) {
		loop.RunOnce()
		time.Sleep(time.Millisecond)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0])
	assert.Equal(t, 1.0, got[1])
}
