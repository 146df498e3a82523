package replica

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// correction is the part of a snapshot error not yet applied to a body.
type correction struct {
	offset    mgl32.Vec3
	remaining float32
}

// correct moves id toward the host position. Small errors are spread over
// the blend window; large ones snap.
func (r *Replica) correct(id registry.ID, host mgl32.Vec3) {
	here, ok := r.bodies.Position(id)
	if !ok {
		return
	}
	delta := host.Sub(here)
	if delta.Len() > r.cfg.SnapDistance {
		r.bodies.Teleport(id, host)
		delete(r.corrections, id)
		return
	}
	r.corrections[id] = &correction{offset: delta, remaining: float32(r.cfg.BlendTime.Seconds())}
}

// ease applies the share of every pending correction due over dt.
func (r *Replica) ease(dt float32) {
	for id, c := range r.corrections {
		here, ok := r.bodies.Position(id)
		if !ok {
			delete(r.corrections, id)
			continue
		}
		share := float32(1)
		if c.remaining > dt {
			share = dt / c.remaining
		}
		step := c.offset.Mul(share)
		r.bodies.Teleport(id, here.Add(step))
		c.offset = c.offset.Sub(step)
		c.remaining -= dt
		if c.remaining <= 0 {
			delete(r.corrections, id)
		}
	}
}

func (r *Replica) forget(id registry.ID) {
	r.bodies.Remove(id)
	delete(r.corrections, id)
}
