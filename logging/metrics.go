package logging

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Metrics is a concurrency-safe bag of named counters and gauges. Keys are
// created on first use.
type Metrics struct {
	mu     sync.RWMutex
	values map[string]*atomic.Uint64
}

func (m *Metrics) slot(key string) *atomic.Uint64 {
	m.mu.RLock()
	value, ok := m.values[key]
	m.mu.RUnlock()
	if ok {
		return value
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]*atomic.Uint64)
	}
	if value, ok = m.values[key]; !ok {
		value = new(atomic.Uint64)
		m.values[key] = value
	}
	return value
}

// TelemetryAdd increments the counter stored under key.
func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.slot(key).Add(delta)
}

// TelemetryStore overwrites the gauge stored under key.
func (m *Metrics) TelemetryStore(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.slot(key).Store(value)
}

// TelemetryMax raises the gauge stored under key to value when value is
// larger. It is used for high-water marks.
func (m *Metrics) TelemetryMax(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	slot := m.slot(key)
	for {
		current := slot.Load()
		if value <= current || slot.CompareAndSwap(current, value) {
			return
		}
	}
}

// Snapshot copies every metric into a plain map.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]uint64, len(m.values))
	for k, v := range m.values {
		out[k] = v.Load()
	}
	return out
}

// Keys lists metric names in sorted order.
func (m *Metrics) Keys() []string {
	snapshot := m.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
