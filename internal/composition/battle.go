package composition

import (
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
)

const (
	// MinMultiplier is the winner's health multiplier floor, and the exact
	// multiplier applied on a tie.
	MinMultiplier = 0.2
	// MaxMultiplier caps the winner's health multiplier so every battle
	// costs the winner something.
	MaxMultiplier = 0.9
)

// Outcome describes a resolved battle. The loser is always destroyed; the
// caller marks it inactive.
type Outcome struct {
	ChaserWins    bool
	Tie           bool
	WinnerOffense float64
	LoserOffense  float64
	Multiplier    float64
	HealthLost    int
	CellsCulled   int
}

// EffectiveOffense is attacker offense less defender defense, never negative.
func EffectiveOffense(attacker, defender *Cluster) float64 {
	return max(0, attacker.MaxBattleOffense-defender.MaxBattleDefense)
}

// BattleMultiplier returns the winner's health multiplier for the given
// effective offenses, clamped to [MinMultiplier, MaxMultiplier].
func BattleMultiplier(winnerOffense, loserOffense float64) float64 {
	if winnerOffense <= 0 {
		return MinMultiplier
	}
	raw := 1 - loserOffense/winnerOffense
	return min(max(raw, MinMultiplier), MaxMultiplier)
}

// Battle resolves a fight between the initiating chaser and defender. The
// winner's health is scaled by the multiplier and its composition culled in
// proportion to the health lost.
func (m *Model) Battle(chaser, defender *Cluster) Outcome {
	chaserEff := EffectiveOffense(chaser, defender)
	defenderEff := EffectiveOffense(defender, chaser)

	var out Outcome
	winner := chaser
	switch {
	case chaserEff == defenderEff:
		out = Outcome{ChaserWins: true, Tie: true, WinnerOffense: chaserEff, LoserOffense: defenderEff, Multiplier: MinMultiplier}
	case chaserEff > defenderEff:
		out = Outcome{ChaserWins: true, WinnerOffense: chaserEff, LoserOffense: defenderEff}
		out.Multiplier = BattleMultiplier(chaserEff, defenderEff)
	default:
		winner = defender
		out = Outcome{WinnerOffense: defenderEff, LoserOffense: chaserEff}
		out.Multiplier = BattleMultiplier(defenderEff, chaserEff)
	}

	before := winner.Health
	winner.Health = int(float64(before) * out.Multiplier)
	out.HealthLost = before - winner.Health
	out.CellsCulled = m.Cull(winner, out.HealthLost/cells.CellHealth)
	return out
}

// Cull removes up to n cells from c in cells.CullOrder. The bulk pass keeps
// one cell of every populated type; the leftover pass then clears those
// singletons in the same order. At least one cell always survives. Cull
// returns the number of cells removed.
func (m *Model) Cull(c *Cluster, n int) int {
	if c.WhiteBlood || n <= 0 {
		return 0
	}
	n = min(n, c.Counts.Total()-1)
	removed := 0
	for _, t := range cells.CullOrder {
		if removed == n {
			break
		}
		take := min(n-removed, max(c.Counts[t]-1, 0))
		c.Counts[t] -= take
		removed += take
	}
	for _, t := range cells.CullOrder {
		if removed == n {
			break
		}
		if c.Counts[t] == 1 {
			c.Counts[t] = 0
			removed++
		}
	}
	m.Readjust(c)
	return removed
}
