// Package motion integrates positions for every simulated body. Bodies live
// in an ark ECS world keyed by registry id; the simulation sets steering
// intent and calls Step once per tick.
package motion

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// Store owns the ECS world for kinematics.
type Store struct {
	world *ecs.World

	mapper   *ecs.Map4[Body, Position, Velocity, Steering]
	filter   *ecs.Filter4[Body, Position, Velocity, Steering]
	posMap   *ecs.Map1[Position]
	steerMap *ecs.Map1[Steering]
	spinMap  *ecs.Map1[Spin]
	spins    *ecs.Filter1[Spin]

	bodies map[registry.ID]ecs.Entity
	radius float32
}

// NewStore creates an empty store. Positions are kept within radius of the
// origin; a non-positive radius disables the bound.
func NewStore(radius float32) *Store {
	world := ecs.NewWorld()
	return &Store{
		world:    world,
		mapper:   ecs.NewMap4[Body, Position, Velocity, Steering](world),
		filter:   ecs.NewFilter4[Body, Position, Velocity, Steering](world),
		posMap:   ecs.NewMap1[Position](world),
		steerMap: ecs.NewMap1[Steering](world),
		spinMap:  ecs.NewMap1[Spin](world),
		spins:    ecs.NewFilter1[Spin](world),
		bodies:   make(map[registry.ID]ecs.Entity),
		radius:   radius,
	}
}

// Spawn adds a body at pos. Spawning an id twice replaces the old body.
func (s *Store) Spawn(id registry.ID, pos mgl32.Vec3) {
	s.Remove(id)
	body := Body{ID: id}
	p := Position{V: s.bound(pos)}
	v := Velocity{}
	steer := Steering{}
	s.bodies[id] = s.mapper.NewEntity(&body, &p, &v, &steer)
}

// SpawnSpinning adds a body that rotates at rate radians per second.
func (s *Store) SpawnSpinning(id registry.ID, pos mgl32.Vec3, angle, rate float32) {
	s.Spawn(id, pos)
	s.spinMap.Add(s.bodies[id], &Spin{Angle: angle, Rate: rate})
}

func (s *Store) Has(id registry.ID) bool {
	e, ok := s.bodies[id]
	return ok && s.world.Alive(e)
}

// Remove drops the body for id if present.
func (s *Store) Remove(id registry.ID) {
	e, ok := s.bodies[id]
	if !ok {
		return
	}
	delete(s.bodies, id)
	if s.world.Alive(e) {
		s.world.RemoveEntity(e)
	}
}

// Len reports how many bodies are live.
func (s *Store) Len() int { return len(s.bodies) }

func (s *Store) Position(id registry.ID) (mgl32.Vec3, bool) {
	e, ok := s.bodies[id]
	if !ok {
		return mgl32.Vec3{}, false
	}
	return s.posMap.Get(e).V, true
}

// Orientation reports the spin angle, zero for bodies that do not spin.
func (s *Store) Orientation(id registry.ID) float32 {
	e, ok := s.bodies[id]
	if !ok || !s.spinMap.HasAll(e) {
		return 0
	}
	return s.spinMap.Get(e).Angle
}

// Spin reports the angle and rate of a spinning body.
func (s *Store) Spin(id registry.ID) (angle, rate float32) {
	e, ok := s.bodies[id]
	if !ok || !s.spinMap.HasAll(e) {
		return 0, 0
	}
	sp := s.spinMap.Get(e)
	return sp.Angle, sp.Rate
}

// SetOrientation overrides the spin angle of a spinning body.
func (s *Store) SetOrientation(id registry.ID, angle float32) {
	e, ok := s.bodies[id]
	if !ok || !s.spinMap.HasAll(e) {
		return
	}
	s.spinMap.Get(e).Angle = angle
}

// Teleport places the body at pos without changing its steering.
func (s *Store) Teleport(id registry.ID, pos mgl32.Vec3) {
	if e, ok := s.bodies[id]; ok {
		s.posMap.Get(e).V = s.bound(pos)
	}
}

// Seek steers toward target at speed units per second.
func (s *Store) Seek(id registry.ID, target mgl32.Vec3, speed float32) {
	s.steer(id, Steering{Mode: Seek, Target: target, Speed: speed})
}

// Flee steers directly away from threat at speed units per second.
func (s *Store) Flee(id registry.ID, threat mgl32.Vec3, speed float32) {
	s.steer(id, Steering{Mode: Flee, Target: threat, Speed: speed})
}

// Stop holds the body in place.
func (s *Store) Stop(id registry.ID) {
	s.steer(id, Steering{})
}

func (s *Store) steer(id registry.ID, st Steering) {
	if e, ok := s.bodies[id]; ok {
		*s.steerMap.Get(e) = st
	}
}

// Step advances every body by dt seconds.
func (s *Store) Step(dt float32) {
	if dt <= 0 {
		return
	}
	query := s.filter.Query()
	for query.Next() {
		_, pos, vel, steer := query.Get()
		vel.V = velocityFor(pos.V, steer, dt)
		pos.V = s.bound(pos.V.Add(vel.V.Mul(dt)))
	}

	spins := s.spins.Query()
	for spins.Next() {
		spin := spins.Get()
		spin.Angle = wrapAngle(spin.Angle + spin.Rate*dt)
	}
}

// Each visits every body in unspecified order.
func (s *Store) Each(fn func(id registry.ID, pos mgl32.Vec3)) {
	query := s.filter.Query()
	for query.Next() {
		body, pos, _, _ := query.Get()
		fn(body.ID, pos.V)
	}
}

func velocityFor(pos mgl32.Vec3, steer *Steering, dt float32) mgl32.Vec3 {
	if steer.Speed <= 0 {
		return mgl32.Vec3{}
	}
	switch steer.Mode {
	case Seek:
		delta := steer.Target.Sub(pos)
		dist := delta.Len()
		if dist < 1e-6 {
			return mgl32.Vec3{}
		}
		speed := steer.Speed
		if dist < speed*dt {
			speed = dist / dt
		}
		return delta.Mul(speed / dist)
	case Flee:
		delta := pos.Sub(steer.Target)
		dist := delta.Len()
		if dist < 1e-6 {
			delta = mgl32.Vec3{1, 0, 0}
			dist = 1
		}
		return delta.Mul(steer.Speed / dist)
	default:
		return mgl32.Vec3{}
	}
}

func (s *Store) bound(p mgl32.Vec3) mgl32.Vec3 {
	if s.radius <= 0 {
		return p
	}
	if l := p.Len(); l > s.radius {
		return p.Mul(s.radius / l)
	}
	return p
}

func wrapAngle(a float32) float32 {
	const twoPi = 2 * math.Pi
	for a >= twoPi {
		a -= twoPi
	}
	for a < 0 {
		a += twoPi
	}
	return a
}
