package sim

import (
	"sync"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
)

const (
	commandBufferOccupancyMetricKey = "sim_command_queue_depth"
	commandBufferOverflowMetricKey  = "sim_command_queue_overflow_total"
)

// CommandBuffer is a fixed-size FIFO ring. Network goroutines push; the
// loop goroutine drains once per tick.
type CommandBuffer struct {
	mu      sync.Mutex
	ring    []Command
	head    int
	size    int
	metrics telemetry.Metrics
}

func NewCommandBuffer(capacity int, metrics telemetry.Metrics) *CommandBuffer {
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	return &CommandBuffer{ring: make([]Command, max(capacity, 1)), metrics: metrics}
}

func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.ring)
}

// Push stages cmd and reports false when the ring is full.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.ring) {
		b.metrics.Add(commandBufferOverflowMetricKey, 1)
		return false
	}
	b.ring[(b.head+b.size)%len(b.ring)] = cmd
	b.size++
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(b.size))
	return true
}

// Drain empties the ring in arrival order.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return nil
	}
	out := make([]Command, b.size)
	for i := range out {
		slot := (b.head + i) % len(b.ring)
		out[i] = b.ring[slot]
		b.ring[slot] = Command{}
	}
	b.head = (b.head + b.size) % len(b.ring)
	b.size = 0
	b.metrics.Store(commandBufferOccupancyMetricKey, 0)
	return out
}

func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
