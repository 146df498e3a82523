package cells

import "fmt"

// CellHealth is the health every composition cell carries. Cluster health
// arithmetic (max health, battle culling) relies on it being uniform.
const CellHealth = 100

// Coefficients are the static per-type limits a single cell contributes to
// its cluster.
type Coefficients struct {
	MaxHealth       float64 `yaml:"max_health"`
	MaxOffense      float64 `yaml:"max_offense"`
	MaxDefense      float64 `yaml:"max_defense"`
	MaxNutrient     float64 `yaml:"max_nutrient"`
	DivideThreshold float64 `yaml:"divide_threshold"`
	NutrientIncome  float64 `yaml:"nutrient_income"`
	MaxVelocity     float64 `yaml:"max_velocity"`
}

// Table holds one coefficient row per cell type. It is built once from
// configuration and shared read-only.
type Table [NumTypes]Coefficients

// DefaultTable mirrors the embedded configuration defaults.
func DefaultTable() Table {
	return Table{
		RedBlood:     {MaxHealth: 100, MaxOffense: 2, MaxDefense: 1, MaxNutrient: 10, DivideThreshold: 8, NutrientIncome: 1.0, MaxVelocity: 6},
		Platelet:     {MaxHealth: 100, MaxOffense: 1, MaxDefense: 3, MaxNutrient: 12, DivideThreshold: 10, NutrientIncome: 0.8, MaxVelocity: 5},
		BigSilo:      {MaxHealth: 100, MaxOffense: 1, MaxDefense: 4, MaxNutrient: 60, DivideThreshold: 40, NutrientIncome: 2.0, MaxVelocity: 2},
		BigTank:      {MaxHealth: 100, MaxOffense: 8, MaxDefense: 6, MaxNutrient: 20, DivideThreshold: 30, NutrientIncome: 0.5, MaxVelocity: 3},
		SmallHybrid:  {MaxHealth: 100, MaxOffense: 4, MaxDefense: 4, MaxNutrient: 25, DivideThreshold: 20, NutrientIncome: 1.2, MaxVelocity: 5},
		MediumHybrid: {MaxHealth: 100, MaxOffense: 8, MaxDefense: 8, MaxNutrient: 40, DivideThreshold: 30, NutrientIncome: 1.5, MaxVelocity: 4},
		BigHybrid:    {MaxHealth: 100, MaxOffense: 14, MaxDefense: 12, MaxNutrient: 80, DivideThreshold: 50, NutrientIncome: 2.0, MaxVelocity: 3},
		WhiteBlood:   {MaxHealth: 100, MaxOffense: 20, MaxDefense: 10, MaxVelocity: 4},
	}
}

// Validate rejects tables that would make derived stats undefined.
func (t Table) Validate() error {
	for i, row := range t {
		typ := Type(i)
		if row.MaxHealth <= 0 {
			return fmt.Errorf("cells: %s max_health must be positive", typ)
		}
		if row.MaxOffense < 0 || row.MaxDefense < 0 || row.MaxNutrient < 0 || row.NutrientIncome < 0 || row.MaxVelocity < 0 {
			return fmt.Errorf("cells: %s coefficients must be non-negative", typ)
		}
		if typ.SubType() && row.MaxHealth != CellHealth {
			return fmt.Errorf("cells: %s max_health must be %d", typ, CellHealth)
		}
		if typ.SubType() && row.DivideThreshold <= 0 {
			return fmt.Errorf("cells: %s divide_threshold must be positive", typ)
		}
	}
	return nil
}

// Column extracts one coefficient across the composition sub-types, in type
// order, for use as a weight vector.
func (t Table) Column(pick func(Coefficients) float64) []float64 {
	column := make([]float64, NumSubTypes)
	for i := 0; i < NumSubTypes; i++ {
		column[i] = pick(t[i])
	}
	return column
}
