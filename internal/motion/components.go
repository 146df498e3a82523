package motion

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// Body links an ECS entity back to its registry id.
type Body struct {
	ID registry.ID
}

type Position struct {
	V mgl32.Vec3
}

type Velocity struct {
	V mgl32.Vec3
}

// Mode selects how steering drives velocity.
type Mode uint8

const (
	Hold Mode = iota
	Seek
	Flee
)

// Steering is the movement intent set by the simulation each tick.
type Steering struct {
	Mode   Mode
	Target mgl32.Vec3
	Speed  float32
}

// Spin rotates an entity about its own axis. Only uninfected cells carry it.
type Spin struct {
	Angle float32
	Rate  float32
}
