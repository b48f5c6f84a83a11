package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastLimit keeps adaptive delays in the microsecond range so tests stay quick
var fastLimit = Limit{Window: time.Second, MaxCalls: 1000}

func TestDispatcher_RunsTasksInOrderExactlyOnce(t *testing.T) {
	d := NewDispatcher(fastLimit)

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	const total = 20
	for i := 0; i < total; i++ {
		i := i
		d.Enqueue(func() {
			mu.Lock()
			order = append(order, i)
			last := len(order) == total
			mu.Unlock()
			if last {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not finish in time")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, total)
	for i := 0; i < total; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestDispatcher_RestartsWorkerAfterDraining(t *testing.T) {
	d := NewDispatcher(fastLimit)

	ran := make(chan int, 2)
	d.Enqueue(func() { ran <- 1 })
	assert.Equal(t, 1, waitFor(t, ran))

	// queue is empty now, the worker has exited; a fresh enqueue must still run
	d.Enqueue(func() { ran <- 2 })
	assert.Equal(t, 2, waitFor(t, ran))
}

func TestDispatcher_StopDiscardsQueuedTasks(t *testing.T) {
	d := NewDispatcher(fastLimit)

	started := make(chan struct{})
	release := make(chan struct{})
	var droppedRan bool

	d.Enqueue(func() {
		close(started)
		<-release
	})
	waitForClose(t, started)

	d.Enqueue(func() { droppedRan = true })
	d.Stop()
	close(release)

	time.Sleep(50 * time.Millisecond)
	assert.True(t, d.Stopping())
	assert.Equal(t, 0, d.Pending())
	assert.False(t, droppedRan)
}

func TestDispatcher_EnqueueAfterStopIsDropped(t *testing.T) {
	d := NewDispatcher(fastLimit)
	d.Stop()

	d.Enqueue(func() { t.Error("task ran after Stop") })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcher_NextDelay(t *testing.T) {
	limit := Limit{Window: time.Minute, MaxCalls: 20}
	avg := limit.Window / time.Duration(limit.MaxCalls) // 3s steady-state interval
	now := time.Now()

	t.Run("Idle destination pays no delay", func(t *testing.T) {
		d := NewDispatcher(limit)
		assert.Equal(t, time.Duration(0), d.nextDelay(now))
	})

	t.Run("Half-full window pays the steady-state interval", func(t *testing.T) {
		d := NewDispatcher(limit)
		for i := 0; i < limit.MaxCalls/2; i++ {
			d.recent = append(d.recent, now)
		}
		assert.Equal(t, avg, d.nextDelay(now))
	})

	t.Run("Saturated window pays twice the steady-state interval", func(t *testing.T) {
		d := NewDispatcher(limit)
		for i := 0; i < limit.MaxCalls; i++ {
			d.recent = append(d.recent, now)
		}
		assert.Equal(t, 2*avg, d.nextDelay(now))
	})

	t.Run("Timestamps older than the window are pruned", func(t *testing.T) {
		d := NewDispatcher(limit)
		for i := 0; i < limit.MaxCalls; i++ {
			d.recent = append(d.recent, now.Add(-2*limit.Window))
		}
		assert.Equal(t, time.Duration(0), d.nextDelay(now))
		assert.Empty(t, d.recent)
	})
}

func waitFor(t *testing.T, ch chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task")
		return 0
	}
}

func waitForClose(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task to start")
	}
}
