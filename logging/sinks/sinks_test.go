package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/combat"
)

func battleEvent(tick uint64) logging.Event {
	return logging.Event{
		Type:     combat.EventBattleResolved,
		Tick:     tick,
		Time:     time.Unix(100, 0),
		Actor:    logging.ClusterRef(3),
		Targets:  []logging.EntityRef{logging.ClusterRef(7)},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  combat.BattlePayload{Multiplier: 0.2, Tie: true, CellsCulled: 4},
		TraceID:  "session-1",
	}
}

func TestConsoleLineFlattensPayload(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	sink.logger.SetFlags(0)
	if err := sink.Write(battleEvent(42)); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "[combat.battle_resolved] tick=42 info cluster:3 -> cluster:7 cellsCulled=4 loserOffense=0 multiplier=0.2 tie=true winnerOffense=0\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected console line\n got %q\nwant %q", got, want)
	}
}

func TestConsoleLineWithoutActorOrPayload(t *testing.T) {
	line := consoleLine(logging.Event{Type: "simulation.game_started", Tick: 1, Severity: logging.SeverityWarn})
	if line != "[simulation.game_started] tick=1 warn" {
		t.Fatalf("unexpected line %q", line)
	}
	if got := payloadFields([]int{1, 2}); len(got) != 1 || got[0] != "payload=[1,2]" {
		t.Fatalf("expected non-object payload printed whole, got %v", got)
	}
}

func TestJSONWritesOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	if err := sink.Write(battleEvent(1)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Write(logging.Event{Type: "hazards.medication_deployed", Tick: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if sink.Written() != 2 {
		t.Fatalf("expected two records, got %d", sink.Written())
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first["session"] != "session-1" || first["severity"] != "info" || first["time"] != "1970-01-01T00:01:40Z" {
		t.Fatalf("unexpected record %v", first)
	}
	payload, _ := first["payload"].(map[string]any)
	if payload["cellsCulled"] != float64(4) {
		t.Fatalf("expected payload to be embedded, got %v", first["payload"])
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := second["actor"]; ok {
		t.Fatalf("expected empty actor to be omitted, got %v", second)
	}
}

func TestBoundedMemorySinkKeepsNewest(t *testing.T) {
	sink := NewBoundedMemorySink(3)
	for tick := uint64(1); tick <= 5; tick++ {
		sink.Publish(context.Background(), battleEvent(tick))
	}
	events := sink.Events()
	if len(events) != 3 || events[0].Tick != 3 || events[2].Tick != 5 {
		t.Fatalf("expected ticks 3..5, got %+v", events)
	}
	if last := sink.Last(2); len(last) != 2 || last[0].Tick != 4 {
		t.Fatalf("unexpected last two %+v", last)
	}
	if got := sink.OfType(combat.EventBattleResolved); len(got) != 3 {
		t.Fatalf("expected three battles, got %d", len(got))
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}

func TestMemorySinkCopiesTargets(t *testing.T) {
	sink := NewMemorySink()
	event := battleEvent(1)
	sink.Write(event)
	event.Targets[0] = logging.ClusterRef(9)
	if got := sink.Events()[0].Targets[0]; got != logging.ClusterRef(7) {
		t.Fatalf("expected stored targets to be independent, got %+v", got)
	}
}
