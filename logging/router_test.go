package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/sinks"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type failingSink struct{}

func (failingSink) Write(logging.Event) error   { return nil }
func (failingSink) Close(context.Context) error { return errors.New("close failed") }

func newRouter(t *testing.T, cfg logging.Config, named ...logging.NamedSink) (*logging.Router, *bytes.Buffer) {
	t.Helper()
	var fallback bytes.Buffer
	return logging.NewRouter(fixedClock{now: time.Unix(100, 0)}, cfg, log.New(&fallback, "", 0), named), &fallback
}

func TestRouterDeliversOnClose(t *testing.T) {
	mem := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"host": "test"}
	router, _ := newRouter(t, cfg, logging.NamedSink{Name: "memory", Sink: mem})

	router.Publish(context.Background(), logging.Event{Type: "test.one", Tick: 1, Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "test.debug", Tick: 2, Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "", Tick: 3})

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected only the info event, got %d", len(events))
	}
	if !events[0].Time.Equal(time.Unix(100, 0)) {
		t.Fatalf("expected router clock to stamp the event, got %s", events[0].Time)
	}
	if events[0].Extra["host"] != "test" {
		t.Fatalf("expected router fields merged, got %v", events[0].Extra)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if router.Sink("memory") != mem {
		t.Fatalf("expected memory sink lookup by name")
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	mem := sinks.NewMemorySink()
	router, _ := newRouter(t, logging.DefaultConfig(), logging.NamedSink{Name: "memory", Sink: mem})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if len(mem.Events()) != 0 {
		t.Fatalf("expected events after close to be discarded")
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}

func TestRouterReportsSinkCloseError(t *testing.T) {
	router, _ := newRouter(t, logging.DefaultConfig(), logging.NamedSink{Name: "broken", Sink: failingSink{}})
	if err := router.Close(context.Background()); err == nil {
		t.Fatalf("expected sink close error")
	}
}

func TestWithFieldsDecoratesEvents(t *testing.T) {
	mem := sinks.NewMemorySink()
	pub := logging.WithFields(mem, map[string]any{"session": "abc"})
	pub.Publish(context.Background(), logging.Event{Type: "decorated"})
	events := mem.Events()
	if len(events) != 1 || events[0].Extra["session"] != "abc" {
		t.Fatalf("expected session field, got %+v", events)
	}
}

func TestRouterAppliesPerSinkSeverity(t *testing.T) {
	all := sinks.NewMemorySink()
	warnings := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.SinkSeverity = map[string]logging.Severity{"warnings": logging.SeverityWarn}
	router, _ := newRouter(t, cfg,
		logging.NamedSink{Name: "all", Sink: all, MinSeverity: cfg.SeverityFor("all")},
		logging.NamedSink{Name: "warnings", Sink: warnings, MinSeverity: cfg.SeverityFor("warnings")},
	)

	router.Publish(context.Background(), logging.Event{Type: "test.info", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "test.warn", Severity: logging.SeverityWarn})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := len(all.Events()); got != 2 {
		t.Fatalf("expected 2 events on the unfiltered sink, got %d", got)
	}
	if got := warnings.Events(); len(got) != 1 || got[0].Type != "test.warn" {
		t.Fatalf("expected only the warning on the filtered sink, got %+v", got)
	}

	stats := router.Stats()
	if len(stats.Sinks) != 2 {
		t.Fatalf("expected per-sink stats, got %+v", stats.Sinks)
	}
	byName := map[string]logging.SinkStats{}
	for _, s := range stats.Sinks {
		byName[s.Name] = s
	}
	if byName["all"].Written != 2 || byName["all"].Filtered != 0 {
		t.Fatalf("unexpected stats for all: %+v", byName["all"])
	}
	if byName["warnings"].Written != 1 || byName["warnings"].Filtered != 1 {
		t.Fatalf("unexpected stats for warnings: %+v", byName["warnings"])
	}
}

func TestSeverityForNeverLowersRouterMinimum(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	cfg.SinkSeverity = map[string]logging.Severity{"console": logging.SeverityDebug}
	if got := cfg.SeverityFor("console"); got != logging.SeverityWarn {
		t.Fatalf("expected router minimum to win, got %v", got)
	}
	if got := cfg.SeverityFor("json"); got != logging.SeverityWarn {
		t.Fatalf("expected default minimum for unlisted sink, got %v", got)
	}
}
