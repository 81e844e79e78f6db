// Package buffer holds the most recent alerts received from the realtime
// channel in a fixed-capacity ring.
package buffer

import (
	"sync"

	"github.com/nixlim/ids-top/internal/alerts"
)

// DefaultCapacity is the number of alerts kept when no capacity is configured.
const DefaultCapacity = 100

// AlertBuffer is a fixed-capacity, thread-safe ring of alerts read back
// newest-first. When the buffer is full, appending evicts the oldest alert.
// Alerts are not deduplicated by id.
type AlertBuffer struct {
	mu    sync.RWMutex
	items []alerts.Alert
	cap   int
	head  int // index of the oldest element
	count int // number of elements currently stored
}

// New creates an AlertBuffer with the given capacity.
// A capacity below 1 is raised to 1.
func New(capacity int) *AlertBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &AlertBuffer{
		items: make([]alerts.Alert, capacity),
		cap:   capacity,
	}
}

// Append inserts a at the front. If the buffer is full, the oldest alert
// is overwritten.
func (b *AlertBuffer) Append(a alerts.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == b.cap {
		b.items[b.head] = a
		b.head = (b.head + 1) % b.cap
		return
	}
	b.items[(b.head+b.count)%b.cap] = a
	b.count++
}

// Clear empties the buffer.
func (b *AlertBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.items)
	b.head = 0
	b.count = 0
}

// Snapshot returns a copy of the buffered alerts, newest first.
func (b *AlertBuffer) Snapshot() []alerts.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}
	result := make([]alerts.Alert, b.count)
	for i := 0; i < b.count; i++ {
		result[i] = b.items[(b.head+b.count-1-i)%b.cap]
	}
	return result
}

// Latest returns the most recently appended alert.
func (b *AlertBuffer) Latest() (alerts.Alert, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return alerts.Alert{}, false
	}
	return b.items[(b.head+b.count-1)%b.cap], true
}

// Len returns the number of alerts currently buffered.
func (b *AlertBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the capacity of the buffer.
func (b *AlertBuffer) Cap() int {
	return b.cap
}
