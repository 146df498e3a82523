package logging

import (
	"context"
	"strconv"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindVirus   EntityKind = "virus"
	EntityKindCluster EntityKind = "cluster"
	EntityKindCell    EntityKind = "ucell"
	EntityKindPlayer  EntityKind = "player"
	EntityKindSession EntityKind = "session"
)

// Event is a single structured gameplay record. Tick is the host tick that
// produced it; TraceID carries the session id so multi-match logs can be split.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	TraceID  string         `json:"traceId,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// VirusRef names a virus by its category-local id.
func VirusRef(id uint8) EntityRef {
	return EntityRef{ID: strconv.Itoa(int(id)), Kind: EntityKindVirus}
}

// ClusterRef names a cluster by its category-local id.
func ClusterRef(id uint8) EntityRef {
	return EntityRef{ID: strconv.Itoa(int(id)), Kind: EntityKindCluster}
}

// CellRef names an uninfected cell by its category-local id.
func CellRef(id uint8) EntityRef {
	return EntityRef{ID: strconv.Itoa(int(id)), Kind: EntityKindCell}
}

const (
	CategoryGameplay = "gameplay"
	CategoryCombat   = "combat"
	CategoryHazard   = "hazard"
	CategoryNetwork  = "network"
	CategorySystem   = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

type fieldPublisher struct {
	next    Publisher
	fields  map[string]any
	traceID string
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	if event.TraceID == "" {
		event.TraceID = p.traceID
	}
	if len(p.fields) > 0 {
		event = mergeFields(event, p.fields)
	}
	p.next.Publish(ctx, event)
}

func cloneEvent(event Event) Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}

func mergeFields(event Event, fields map[string]any) Event {
	event = cloneEvent(event)
	if event.Extra == nil {
		event.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, exists := event.Extra[k]; !exists {
			event.Extra[k] = v
		}
	}
	return event
}

// WithFields decorates p so every event carries the given extra fields.
func WithFields(p Publisher, fields map[string]any) Publisher {
	return WithTrace(p, "", fields)
}

// WithTrace decorates p so every event without a trace id is stamped with
// traceID and carries the given extra fields.
func WithTrace(p Publisher, traceID string, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 && traceID == "" {
		return p
	}
	var copied map[string]any
	if len(fields) > 0 {
		copied = make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
	}
	return &fieldPublisher{next: p, fields: copied, traceID: traceID}
}

func (e Event) WithExtra(key string, value any) Event {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}
