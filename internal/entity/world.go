package entity

import (
	"sort"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/invariant"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// World is the typed view over a registry. Removing an entity through the
// registry also drops it from the owning virus's cluster list and the white
// blood cell list.
type World struct {
	reg        *registry.Registry
	viruses    []*Virus
	whiteBlood []uint8
}

func NewWorld() *World {
	w := &World{reg: registry.New()}
	w.reg.Attach(registry.MembershipFunc(w.detach))
	return w
}

func (w *World) Registry() *registry.Registry { return w.reg }

func (w *World) detach(id registry.ID) {
	switch id.Category() {
	case registry.CategoryCluster:
		local := id.Local()
		for _, v := range w.viruses {
			v.detachCluster(local)
		}
		for i, c := range w.whiteBlood {
			if c == local {
				w.whiteBlood = append(w.whiteBlood[:i], w.whiteBlood[i+1:]...)
				break
			}
		}
	case registry.CategoryVirus:
		for i, v := range w.viruses {
			if v.RegistryID() == id {
				w.viruses = append(w.viruses[:i], w.viruses[i+1:]...)
				break
			}
		}
	}
}

// AddVirus registers v under its own id.
func (w *World) AddVirus(v *Virus) {
	w.reg.Register(v)
	w.viruses = append(w.viruses, v)
	sort.Slice(w.viruses, func(i, j int) bool { return w.viruses[i].ID < w.viruses[j].ID })
}

// Viruses returns every virus in id order. The slice must not be modified.
func (w *World) Viruses() []*Virus { return w.viruses }

func (w *World) Virus(id uint8) (*Virus, bool) {
	return registry.Get[*Virus](w.reg, registry.GlobalID(registry.CategoryVirus, id))
}

// SpawnCluster allocates an id for a new cluster owned by owner and
// registers it. White blood cells ignore owner.
func (w *World) SpawnCluster(owner uint8, state composition.Cluster) *Cluster {
	id := w.reg.Allocate(registry.CategoryCluster)
	return w.PlaceCluster(id, owner, state)
}

// PlaceCluster registers a cluster under a known id. Replicas use it to
// mirror host-assigned ids.
func (w *World) PlaceCluster(id, owner uint8, state composition.Cluster) *Cluster {
	c := &Cluster{Cluster: state, ID: id, Owner: owner, Target: NoTarget, Attacker: NoTarget, Active: true}
	if state.WhiteBlood {
		c.Owner = 0
		w.reg.Register(c)
		w.whiteBlood = append(w.whiteBlood, id)
		return c
	}
	v, ok := w.Virus(owner)
	invariant.Check(ok, "entity.PlaceCluster", "owner virus %d not registered", owner)
	w.reg.Register(c)
	v.Clusters = append(v.Clusters, id)
	return c
}

func (w *World) Cluster(id uint8) (*Cluster, bool) {
	return registry.Get[*Cluster](w.reg, registry.GlobalID(registry.CategoryCluster, id))
}

// Clusters returns every registered cluster in id order.
func (w *World) Clusters() []*Cluster {
	var out []*Cluster
	w.reg.Each(registry.CategoryCluster, func(e registry.Entity) {
		out = append(out, e.(*Cluster))
	})
	return out
}

// WhiteBloodCells returns the ids of live white blood cell clusters in spawn
// order.
func (w *World) WhiteBloodCells() []uint8 { return w.whiteBlood }

// SpawnUCell allocates and registers a new uninfected cell.
func (w *World) SpawnUCell(t cells.Type) *UninfectedCell {
	id := w.reg.Allocate(registry.CategoryUninfectedCell)
	return w.PlaceUCell(id, t)
}

func (w *World) PlaceUCell(id uint8, t cells.Type) *UninfectedCell {
	invariant.Check(t.SubType(), "entity.PlaceUCell", "%s cannot be an uninfected cell", t)
	u := &UninfectedCell{ID: id, Type: t, Active: true}
	w.reg.Register(u)
	return u
}

func (w *World) UCell(id uint8) (*UninfectedCell, bool) {
	return registry.Get[*UninfectedCell](w.reg, registry.GlobalID(registry.CategoryUninfectedCell, id))
}

// UCells returns every registered uninfected cell in id order.
func (w *World) UCells() []*UninfectedCell {
	var out []*UninfectedCell
	w.reg.Each(registry.CategoryUninfectedCell, func(e registry.Entity) {
		out = append(out, e.(*UninfectedCell))
	})
	return out
}

// Remove unregisters id and detaches it from every membership list.
func (w *World) Remove(id registry.ID) bool {
	return w.reg.Unregister(id)
}

// Sweep removes every inactive cluster and uninfected cell and returns the
// removed ids. Removal happens after collection so callers may iterate
// safely beforehand.
func (w *World) Sweep() []registry.ID {
	var dead []registry.ID
	for _, c := range w.Clusters() {
		if !c.Active || c.Empty() {
			dead = append(dead, c.RegistryID())
		}
	}
	for _, u := range w.UCells() {
		if !u.Active {
			dead = append(dead, u.RegistryID())
		}
	}
	for _, id := range dead {
		w.Remove(id)
	}
	return dead
}
