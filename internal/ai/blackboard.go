package ai

import (
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// RequestKind is a cluster's own default behavior request.
type RequestKind uint8

const (
	RequestNone RequestKind = iota
	RequestChaseType
	RequestBattleEnemy
	RequestBattleCluster
	RequestDivideType
	RequestDivideAny
	RequestEvade
)

func (k RequestKind) String() string {
	switch k {
	case RequestChaseType:
		return "chase_type"
	case RequestBattleEnemy:
		return "battle_enemy"
	case RequestBattleCluster:
		return "battle_cluster"
	case RequestDivideType:
		return "divide_type"
	case RequestDivideAny:
		return "divide_any"
	case RequestEvade:
		return "evade"
	default:
		return "none"
	}
}

// Request is one tick's decision for a cluster.
type Request struct {
	Kind     RequestKind
	CellType cells.Type
	Target   registry.ID
}

// Sighting is the nearest entity of some kind seen during observation.
type Sighting struct {
	ID       registry.ID
	Distance float32
	Offense  float64
	Defense  float64
	Type     cells.Type
}

// Found reports whether the sighting refers to an entity.
func (s Sighting) Found() bool { return s.ID != entity.NoTarget }

var nothing = Sighting{ID: entity.NoTarget}

// Frame is one buffer of a blackboard.
type Frame struct {
	Tick   uint64
	Action entity.ActionState

	Offense        float64
	Defense        float64
	HealthFraction float64
	Cells          int
	Counts         composition.Counts

	UCell  Sighting
	Enemy  Sighting
	Threat Sighting
	Ally   Sighting

	// Readiness is nutrient store over divide threshold per sub-type.
	Readiness [cells.NumSubTypes]float64

	Request Request
}

func (f *Frame) reset(tick uint64) {
	*f = Frame{
		Tick:   tick,
		UCell:  nothing,
		Enemy:  nothing,
		Threat: nothing,
		Ally:   nothing,
	}
}

// Blackboard double-buffers a cluster's AI data. Observation writes buffer N
// while decisions read buffer N-1; Flip swaps them at the end of a pass.
type Blackboard struct {
	frames [2]Frame
	write  int
}

func newBlackboard() *Blackboard {
	b := &Blackboard{}
	b.frames[0].reset(0)
	b.frames[1].reset(0)
	return b
}

// Read returns the frame completed on the previous pass.
func (b *Blackboard) Read() *Frame { return &b.frames[1-b.write] }

// Write returns the frame being populated this pass.
func (b *Blackboard) Write() *Frame { return &b.frames[b.write] }

// Flip publishes the write frame and starts a clean one for the next pass.
func (b *Blackboard) Flip(nextTick uint64) {
	b.write = 1 - b.write
	b.frames[b.write].reset(nextTick)
}
