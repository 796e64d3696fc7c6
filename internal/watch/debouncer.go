package watch

import (
	"sync"
	"time"
)

// Event is a batched file system event.
type Event struct {
	Path string
	Op   Op
}

// Op is the type of file system operation.
type Op int

const (
	OpWrite Op = iota
	OpRemove
)

// Debouncer collects file system events and emits batches after a quiet
// period. Multiple events for the same path within the window collapse
// into the latest one, so a burst of editor writes triggers one reindex.
type Debouncer struct {
	interval time.Duration
	events   map[string]Event
	mu       sync.Mutex
	timer    *time.Timer
	output   chan []Event
}

// NewDebouncer creates a debouncer with the specified quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		events:   make(map[string]Event),
		output:   make(chan []Event, 16),
	}
}

// Output returns the channel that receives batched events.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Add adds an event to the debounce window. An event for a path already in
// the window replaces the earlier operation.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events[path] = Event{Path: path, Op: op}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// flush sends the accumulated events to the output channel and resets the buffer.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.events) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.events))
	for _, event := range d.events {
		batch = append(batch, event)
	}

	d.events = make(map[string]Event)
	d.output <- batch
}
