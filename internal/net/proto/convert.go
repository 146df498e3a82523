package proto

import (
	"math"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
)

// WireCounts narrows a composition for the wire, saturating at the uint16
// range.
func WireCounts(c composition.Counts) Counts {
	var out Counts
	for i, n := range c {
		out[i] = uint16(min(max(n, 0), math.MaxUint16))
	}
	return out
}

// Composition widens wire counts back to a composition.
func (c Counts) Composition() composition.Counts {
	var out composition.Counts
	for i, n := range c {
		out[i] = int(n)
	}
	return out
}

// StateOf captures the replicated state of a cluster.
func StateOf(c *entity.Cluster) ClusterState {
	return ClusterState{
		Counts:      WireCounts(c.Counts),
		Health:      int32(c.Health),
		Nutrient:    float32(c.NutrientStore),
		Action:      uint8(c.Action),
		Target:      c.Target,
		UnderAttack: c.UnderAttack,
	}
}

// Apply overwrites a replica cluster with s. Derived stats are left to the
// caller's composition model.
func (s ClusterState) Apply(c *entity.Cluster) {
	if !c.WhiteBlood {
		c.Counts = s.Counts.Composition()
	}
	c.Health = int(s.Health)
	c.NutrientStore = float64(s.Nutrient)
	c.Action = entity.ActionState(s.Action)
	c.Target = s.Target
	c.UnderAttack = s.UnderAttack
}
