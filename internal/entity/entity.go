// Package entity defines the records the registry owns and the World that
// keeps their membership lists consistent with the registry.
package entity

import (
	"image/color"

	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// NoTarget marks a cluster that is not acting on anything.
const NoTarget = registry.None

// Virus is one player's organism, human or bot.
type Virus struct {
	ID       uint8
	Name     string
	Color    color.RGBA
	Bot      bool
	Mine     bool
	PlayerID uuid.UUID

	Alive   bool
	Spawned bool
	// Infection is the share of all cells this virus controls, 0 to 100.
	Infection float64
	// Rank is zero until assigned, then 1 for the winner.
	Rank        int
	UnderAttack bool

	// Clusters lists owned cluster ids in creation order.
	Clusters []uint8
}

func (v *Virus) RegistryID() registry.ID {
	return registry.GlobalID(registry.CategoryVirus, v.ID)
}

// Owns reports whether cluster id is in the virus's cluster list.
func (v *Virus) Owns(id uint8) bool {
	for _, c := range v.Clusters {
		if c == id {
			return true
		}
	}
	return false
}

func (v *Virus) detachCluster(id uint8) {
	for i, c := range v.Clusters {
		if c == id {
			v.Clusters = append(v.Clusters[:i], v.Clusters[i+1:]...)
			return
		}
	}
}

// Cluster is a mobile group of infected cells, or a white blood cell when
// composition.Cluster.WhiteBlood is set.
type Cluster struct {
	composition.Cluster

	ID    uint8
	Owner uint8

	Action ActionState
	Target registry.ID

	UnderAttack bool
	Attacker    registry.ID

	// Active is cleared when the cluster is destroyed; the cluster is
	// removed from the world during the next cleanup pass.
	Active bool
}

func (c *Cluster) RegistryID() registry.ID {
	return registry.GlobalID(registry.CategoryCluster, c.ID)
}

// Owned reports whether the cluster belongs to a virus.
func (c *Cluster) Owned() bool { return !c.WhiteBlood }

// ClearAction returns the cluster to Idle with no target.
func (c *Cluster) ClearAction() {
	c.Action = Idle
	c.Target = NoTarget
}

// SetAction starts acting on target.
func (c *Cluster) SetAction(state ActionState, target registry.ID) {
	c.Action = state
	c.Target = target
}

// UninfectedCell is a neutral resource waiting to be infected.
type UninfectedCell struct {
	ID     uint8
	Type   cells.Type
	Active bool
}

func (u *UninfectedCell) RegistryID() registry.ID {
	return registry.GlobalID(registry.CategoryUninfectedCell, u.ID)
}
