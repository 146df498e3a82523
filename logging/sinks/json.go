package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

// record is one line of the events.jsonl file.
type record struct {
	Type     logging.EventType   `json:"type"`
	Tick     uint64              `json:"tick"`
	Time     string              `json:"time"`
	Severity string              `json:"severity"`
	Category string              `json:"category,omitempty"`
	Actor    *logging.EntityRef  `json:"actor,omitempty"`
	Targets  []logging.EntityRef `json:"targets,omitempty"`
	Payload  any                 `json:"payload,omitempty"`
	Extra    map[string]any      `json:"extra,omitempty"`
	Session  string              `json:"session,omitempty"`
}

func recordOf(event logging.Event) record {
	r := record{
		Type:     event.Type,
		Tick:     event.Tick,
		Time:     event.Time.UTC().Format(time.RFC3339Nano),
		Severity: event.Severity.String(),
		Category: event.Category,
		Targets:  event.Targets,
		Payload:  event.Payload,
		Extra:    event.Extra,
		Session:  event.TraceID,
	}
	if event.Actor != (logging.EntityRef{}) {
		actor := event.Actor
		r.Actor = &actor
	}
	return r
}

// JSON writes one record per line. Output is buffered and flushed on a timer
// or after every record when no interval is set.
type JSON struct {
	mu        sync.Mutex
	writer    *bufio.Writer
	encoder   *json.Encoder
	autoFlush bool
	written   atomic.Uint64

	stop      chan struct{}
	closeOnce sync.Once
}

func NewJSON(w io.Writer, flushInterval time.Duration) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{
		writer:    buf,
		encoder:   json.NewEncoder(buf),
		autoFlush: flushInterval <= 0,
		stop:      make(chan struct{}),
	}
	if !sink.autoFlush {
		go sink.flushEvery(flushInterval)
	}
	return sink
}

func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Encode(recordOf(event)); err != nil {
		return err
	}
	s.written.Add(1)
	if s.autoFlush {
		return s.writer.Flush()
	}
	return nil
}

// Written reports how many records were encoded.
func (s *JSON) Written() uint64 { return s.written.Load() }

func (s *JSON) Close(context.Context) error {
	s.closeOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Flush()
}

func (s *JSON) flushEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.writer.Flush()
			s.mu.Unlock()
		}
	}
}
