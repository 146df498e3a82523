package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

// ConsoleSink renders one line per event:
//
//	[combat.battle_resolved] tick=42 info cluster:3 -> cluster:7 cellsCulled=4 multiplier=0.2 ...
type ConsoleSink struct {
	logger *log.Logger
}

func NewConsole(w io.Writer) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	s.logger.Print(consoleLine(event))
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func consoleLine(event logging.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] tick=%d %s", event.Type, event.Tick, event.Severity)
	if actor := entityName(event.Actor); actor != "" {
		b.WriteString(" " + actor)
	}
	if len(event.Targets) > 0 {
		names := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			names = append(names, entityName(target))
		}
		b.WriteString(" -> " + strings.Join(names, ","))
	}
	for _, field := range payloadFields(event.Payload) {
		b.WriteString(" " + field)
	}
	return b.String()
}

func entityName(ref logging.EntityRef) string {
	switch {
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	}
	return string(ref.Kind) + ":" + ref.ID
}

// payloadFields flattens a payload into sorted key=value pairs. Payloads that
// are not JSON objects are printed whole.
func payloadFields(payload any) []string {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return []string{fmt.Sprintf("payload=%v", payload)}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return []string{"payload=" + string(data)}
	}
	out := make([]string, 0, len(fields))
	for k, v := range fields {
		out = append(out, k+"="+strings.Trim(string(v), `"`))
	}
	sort.Strings(out)
	return out
}
