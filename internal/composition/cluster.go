// Package composition derives a cluster's aggregate stats from its mixed
// cell composition and implements every operation that mutates it. All
// operations are deterministic so host and replicas reach identical results
// from identical inputs.
package composition

import (
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
)

// Counts holds the number of cells of each composition sub-type, indexed by
// cells.Type.
type Counts [cells.NumSubTypes]int

// Total sums every sub-type count.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Add returns the element-wise sum.
func (c Counts) Add(other Counts) Counts {
	for i := range c {
		c[i] += other[i]
	}
	return c
}

// Sub returns the element-wise difference.
func (c Counts) Sub(other Counts) Counts {
	for i := range c {
		c[i] -= other[i]
	}
	return c
}

// Of returns the count of t, or zero for non-composition types.
func (c Counts) Of(t cells.Type) int {
	if !t.SubType() {
		return 0
	}
	return c[t]
}

// Covers reports whether every count in c is at least the matching count in
// other and other has no negative entries.
func (c Counts) Covers(other Counts) bool {
	for i := range c {
		if other[i] < 0 || other[i] > c[i] {
			return false
		}
	}
	return true
}

func (c Counts) vector() []float64 {
	v := make([]float64, len(c))
	for i, n := range c {
		v[i] = float64(n)
	}
	return v
}

// Stats are the maxima derived from a composition. They are never set
// directly; Model.Readjust recomputes them.
type Stats struct {
	NumCellsTotal    int
	MaxHealth        int
	MaxNutrientStore float64
	MaxBattleOffense float64
	MaxBattleDefense float64
	MaxVelocity      float64
	NutrientIncome   float64
}

// Cluster is the numeric state of a cell cluster. White blood cell clusters
// ignore Counts and always count as a single cell.
type Cluster struct {
	Counts        Counts
	WhiteBlood    bool
	Health        int
	NutrientStore float64
	Stats
}

// Empty reports whether a virus cluster has lost every cell.
func (c *Cluster) Empty() bool {
	return !c.WhiteBlood && c.Counts.Total() == 0
}

// HealthFraction is health over max health, zero for an empty cluster.
func (c *Cluster) HealthFraction() float64 {
	if c.MaxHealth <= 0 {
		return 0
	}
	return float64(c.Health) / float64(c.MaxHealth)
}
