package composition

import (
	"gonum.org/v1/gonum/floats"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/invariant"
)

// Model applies composition arithmetic using a fixed coefficient table. It
// holds no per-cluster state and is safe to share.
type Model struct {
	table    cells.Table
	health   []float64
	offense  []float64
	defense  []float64
	nutrient []float64
	income   []float64
	velocity []float64
}

func NewModel(table cells.Table) *Model {
	return &Model{
		table:    table,
		health:   table.Column(func(c cells.Coefficients) float64 { return c.MaxHealth }),
		offense:  table.Column(func(c cells.Coefficients) float64 { return c.MaxOffense }),
		defense:  table.Column(func(c cells.Coefficients) float64 { return c.MaxDefense }),
		nutrient: table.Column(func(c cells.Coefficients) float64 { return c.MaxNutrient }),
		income:   table.Column(func(c cells.Coefficients) float64 { return c.NutrientIncome }),
		velocity: table.Column(func(c cells.Coefficients) float64 { return c.MaxVelocity }),
	}
}

// Table returns the coefficient table the model was built with.
func (m *Model) Table() cells.Table { return m.table }

// Readjust recomputes every derived maximum from the composition and clamps
// health and nutrient store into their new ranges. Every mutating operation
// ends with it.
func (m *Model) Readjust(c *Cluster) {
	if c.WhiteBlood {
		row := m.table[cells.WhiteBlood]
		c.Stats = Stats{
			NumCellsTotal:    1,
			MaxHealth:        int(row.MaxHealth),
			MaxNutrientStore: row.MaxNutrient,
			MaxBattleOffense: row.MaxOffense,
			MaxBattleDefense: row.MaxDefense,
			MaxVelocity:      row.MaxVelocity,
			NutrientIncome:   row.NutrientIncome,
		}
	} else {
		v := c.Counts.vector()
		total := c.Counts.Total()
		c.Stats = Stats{
			NumCellsTotal:    total,
			MaxHealth:        int(floats.Dot(v, m.health)),
			MaxNutrientStore: floats.Dot(v, m.nutrient),
			MaxBattleOffense: floats.Dot(v, m.offense),
			MaxBattleDefense: floats.Dot(v, m.defense),
			NutrientIncome:   floats.Dot(v, m.income),
		}
		if total > 0 {
			c.MaxVelocity = floats.Dot(v, m.velocity) / float64(total)
		}
	}
	c.Health = min(max(c.Health, 0), c.MaxHealth)
	c.NutrientStore = min(max(c.NutrientStore, 0), c.MaxNutrientStore)
}

// NewFromCell builds a one-cell cluster of type t at full health.
func (m *Model) NewFromCell(t cells.Type) Cluster {
	invariant.Check(t.SubType(), "composition.NewFromCell", "%s is not a composition type", t)
	var c Cluster
	c.Counts[t] = 1
	c.Health = cells.CellHealth
	m.Readjust(&c)
	return c
}

// NewWhiteBloodCell builds an unowned hazard cluster at full health.
func (m *Model) NewWhiteBloodCell() Cluster {
	c := Cluster{WhiteBlood: true}
	m.Readjust(&c)
	c.Health = c.MaxHealth
	return c
}

// Infect absorbs one uninfected cell of type t into c.
func (m *Model) Infect(c *Cluster, t cells.Type) {
	invariant.Check(!c.WhiteBlood, "composition.Infect", "white blood cells cannot infect")
	invariant.Check(t.SubType(), "composition.Infect", "%s is not a composition type", t)
	c.Counts[t]++
	c.Health += int(m.table[t].MaxHealth)
	m.Readjust(c)
}

// Divide adds amounts of each sub-type at full health. Nutrient accounting is
// the caller's responsibility.
func (m *Model) Divide(c *Cluster, amounts Counts) {
	invariant.Check(!c.WhiteBlood, "composition.Divide", "white blood cells cannot divide")
	for i, n := range amounts {
		invariant.Check(n >= 0, "composition.Divide", "negative amount %d for %s", n, cells.Type(i))
	}
	c.Counts = c.Counts.Add(amounts)
	c.Health += amounts.Total() * cells.CellHealth
	m.Readjust(c)
}

// CanHybridize reports whether Hybridize(c, a, b, n) would succeed.
func CanHybridize(c *Cluster, a, b cells.Type, n int) bool {
	if c.WhiteBlood || n <= 0 {
		return false
	}
	if _, ok := cells.HybridOf(a, b); !ok {
		return false
	}
	return c.Counts[a] >= n && c.Counts[b] >= n
}

// Hybridize fuses n cells of a with n cells of b into n hybrids of the tier
// cells.HybridOf selects, and returns that tier.
func (m *Model) Hybridize(c *Cluster, a, b cells.Type, n int) cells.Type {
	invariant.Check(CanHybridize(c, a, b, n), "composition.Hybridize", "cannot fuse %d of %s with %s from %v", n, a, b, c.Counts)
	hybrid, _ := cells.HybridOf(a, b)
	c.Counts[a] -= n
	c.Counts[b] -= n
	c.Counts[hybrid] += n
	m.Readjust(c)
	return hybrid
}

// CanSplit reports whether parts is a valid, non-empty split of c that leaves
// at least one cell behind.
func CanSplit(c *Cluster, parts Counts) bool {
	if c.WhiteBlood || !c.Counts.Covers(parts) {
		return false
	}
	moved := parts.Total()
	return moved > 0 && moved < c.Counts.Total()
}

// Split moves parts out of src into a new cluster. An all-zero split is a
// no-op and reports false. Health on both sides is the pre-split health
// fraction applied to each side's new max health, truncated toward zero; the
// new cluster starts with an empty nutrient store.
func (m *Model) Split(src *Cluster, parts Counts) (Cluster, bool) {
	if parts.Total() == 0 {
		return Cluster{}, false
	}
	invariant.Check(CanSplit(src, parts), "composition.Split", "split %v exceeds source %v", parts, src.Counts)

	health, maxHealth := src.Health, src.MaxHealth
	src.Counts = src.Counts.Sub(parts)
	m.Readjust(src)
	src.Health = scaleHealth(health, src.MaxHealth, maxHealth)

	split := Cluster{Counts: parts}
	m.Readjust(&split)
	split.Health = scaleHealth(health, split.MaxHealth, maxHealth)
	return split, true
}

// scaleHealth returns health*part/whole in integer arithmetic, truncated
// toward zero.
func scaleHealth(health, part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return health * part / whole
}

// Combine merges src into dst additively. Ownership checks belong to the
// caller; src must be discarded afterwards.
func (m *Model) Combine(dst, src *Cluster) {
	invariant.Check(!dst.WhiteBlood && !src.WhiteBlood, "composition.Combine", "white blood cells cannot combine")
	dst.Counts = dst.Counts.Add(src.Counts)
	dst.Health += src.Health
	dst.NutrientStore += src.NutrientStore
	m.Readjust(dst)
}

// Medicate zeroes every cell of type t and reports how many were removed.
func (m *Model) Medicate(c *Cluster, t cells.Type) int {
	invariant.Check(t.Medicatable(), "composition.Medicate", "%s is immune to medication", t)
	if c.WhiteBlood {
		return 0
	}
	removed := c.Counts[t]
	if removed == 0 {
		return 0
	}
	c.Counts[t] = 0
	m.Readjust(c)
	return removed
}

// Feed accrues nutrient income over dt seconds.
func (m *Model) Feed(c *Cluster, dt float64) {
	if c.WhiteBlood || dt <= 0 {
		return
	}
	c.NutrientStore = min(c.NutrientStore+c.NutrientIncome*dt, c.MaxNutrientStore)
}

// DivisionReadiness is how many cells of type t the current nutrient store
// can fund. A value of at least 1 allows a division.
func (m *Model) DivisionReadiness(c *Cluster, t cells.Type) float64 {
	if c.WhiteBlood || !t.SubType() {
		return 0
	}
	return c.NutrientStore / m.table[t].DivideThreshold
}

// DivisionCost is the nutrient debit for dividing amounts.
func (m *Model) DivisionCost(amounts Counts) float64 {
	cost := 0.0
	for i, n := range amounts {
		cost += float64(n) * m.table[i].DivideThreshold
	}
	return cost
}

// FundedDivide divides amounts when the nutrient store can pay for them and
// debits the cost. It reports whether the division happened.
func (m *Model) FundedDivide(c *Cluster, amounts Counts) bool {
	if c.WhiteBlood || amounts.Total() <= 0 {
		return false
	}
	for _, n := range amounts {
		if n < 0 {
			return false
		}
	}
	cost := m.DivisionCost(amounts)
	if cost > c.NutrientStore {
		return false
	}
	c.NutrientStore -= cost
	m.Divide(c, amounts)
	return true
}
