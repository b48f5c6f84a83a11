// Package dispatch serializes and paces outbound platform calls so that one
// destination never exceeds its platform's rate ceiling while staying
// near-instant when idle.
package dispatch

import (
	"sync"
	"time"
)

// Task is one deferred outbound call. Tasks for a destination run strictly in
// enqueue order.
type Task func()

// Limit describes a platform's rate ceiling for a single destination: at most
// MaxCalls within any rolling Window.
type Limit struct {
	Window   time.Duration
	MaxCalls int
}

// Rate ceilings per platform destination, per published API limits.
var (
	TelegramChatLimit   = Limit{Window: time.Minute, MaxCalls: 20}
	DiscordChannelLimit = Limit{Window: 5 * time.Second, MaxCalls: 5}
	SlackChannelLimit   = Limit{Window: time.Minute, MaxCalls: 50}
)

// Dispatcher owns the outbound FIFO queue of one destination. Any number of
// goroutines may enqueue; a single lazily-started worker drains the queue,
// sleeping an adaptively computed delay between calls. When the queue empties
// the worker exits and a fresh one is started on the next enqueue.
type Dispatcher struct {
	limit Limit

	mu       sync.Mutex
	queue    []Task
	recent   []time.Time
	running  bool
	stopping bool
}

func NewDispatcher(limit Limit) *Dispatcher {
	if limit.MaxCalls <= 0 || limit.Window <= 0 {
		panic("dispatch: limit must have a positive window and call count")
	}
	return &Dispatcher{limit: limit}
}

// Enqueue appends a task and wakes a worker if none is active. Tasks enqueued
// after Stop are dropped.
func (d *Dispatcher) Enqueue(task Task) {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, task)
	start := !d.running
	if start {
		d.running = true
	}
	d.mu.Unlock()

	if start {
		go d.work()
	}
}

// Stop marks the destination as retired: queued tasks are discarded and the
// worker exits without rescheduling. In-flight calls run to completion.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopping = true
	d.queue = nil
	d.mu.Unlock()
}

// Stopping reports whether the destination has been retired
func (d *Dispatcher) Stopping() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopping
}

// Pending returns the number of queued tasks not yet executed
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) work() {
	for {
		d.mu.Lock()
		if d.stopping || len(d.queue) == 0 {
			d.running = false
			d.mu.Unlock()
			return
		}
		task := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		task()

		d.mu.Lock()
		now := time.Now()
		d.recent = append(d.recent, now)
		pause := d.nextDelay(now)
		d.mu.Unlock()

		if pause > 0 {
			time.Sleep(pause)
		}
	}
}

// nextDelay computes the adaptive pause after a call. With an empty window the
// delay is effectively zero; at saturation it approaches twice the steady-state
// interval, trading throughput for safety margin. Caller must hold d.mu.
func (d *Dispatcher) nextDelay(now time.Time) time.Duration {
	cutoff := now.Add(-d.limit.Window)
	kept := 0
	for kept < len(d.recent) && !d.recent[kept].After(cutoff) {
		kept++
	}
	d.recent = d.recent[kept:]

	n := len(d.recent)
	avg := d.limit.Window / time.Duration(d.limit.MaxCalls)
	delay := avg * time.Duration(2*n) / time.Duration(d.limit.MaxCalls)
	if delay < 0 {
		delay = 0
	}
	return delay
}
