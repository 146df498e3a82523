package sim

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/config"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/lifecycle"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/simulation"
)

const rankEpsilon = 1e-6

var reasonNames = map[uint8]string{
	proto.ReasonEliminated:      "eliminated",
	proto.ReasonLocalDestroyed:  "local_destroyed",
	proto.ReasonHumansDestroyed: "humans_destroyed",
	proto.ReasonTimeUp:          "time_up",
	proto.ReasonInfection:       "infection",
}

// ReasonName names a game over reason for logs and exports.
func ReasonName(reason uint8) string {
	if name, ok := reasonNames[reason]; ok {
		return name
	}
	return "unknown"
}

// Standing is one virus's final result.
type Standing struct {
	Rank      int
	Virus     uint8
	Name      string
	Bot       bool
	Infection float64
	Clusters  int
	Cells     int
}

// updateInfection sets every virus's share of all cells in play: live
// uninfected cells plus every cell in a virus cluster.
func (g *Game) updateInfection() {
	viruses := g.world.Viruses()
	owned := make([]float64, len(viruses))
	index := make(map[uint8]int, len(viruses))
	for i, v := range viruses {
		index[v.ID] = i
	}
	for _, c := range g.world.Clusters() {
		if !c.Active || !c.Owned() {
			continue
		}
		if i, ok := index[c.Owner]; ok {
			owned[i] += float64(c.NumCellsTotal)
		}
	}
	uninfected := 0.0
	for _, u := range g.world.UCells() {
		if u.Active {
			uninfected++
		}
	}
	total := floats.Sum(owned) + uninfected
	for i, v := range viruses {
		if total == 0 {
			v.Infection = math.NaN()
			continue
		}
		v.Infection = 100 * owned[i] / total
	}
}

// checkEliminations retires spawned viruses that own no clusters. Ranks are
// handed out from the bottom as viruses fall.
func (g *Game) checkEliminations() {
	total := len(g.world.Viruses())
	for _, v := range g.world.Viruses() {
		if !v.Alive || !v.Spawned || len(v.Clusters) > 0 {
			continue
		}
		v.Alive = false
		g.eliminated = append(g.eliminated, v.ID)
		v.Rank = total - len(g.eliminated) + 1
		lifecycle.VirusEliminated(g.ctx, g.deps.Publisher, g.tick, logging.VirusRef(v.ID), lifecycle.VirusEliminatedPayload{Rank: v.Rank})
	}
}

func (g *Game) checkGameOver() {
	if reason, over := g.gameOverReason(); over {
		g.finish(reason)
	}
}

func (g *Game) gameOverReason() (uint8, bool) {
	viruses := g.world.Viruses()
	n, e := len(viruses), len(g.eliminated)
	switch {
	case n > 0 && e == n, n > 1 && e == n-1:
		return proto.ReasonEliminated, true
	}
	humans, humansAlive := 0, 0
	for _, v := range viruses {
		if !v.Bot {
			humans++
			if v.Alive {
				humansAlive++
			}
		}
	}
	if humans > 0 && humansAlive == 0 {
		if g.cfg.Session.Multiplayer {
			return proto.ReasonHumansDestroyed, true
		}
		return proto.ReasonLocalDestroyed, true
	}
	switch g.cfg.Session.Gameplay {
	case config.GameplayTimed:
		limit := time.Duration(g.cfg.Session.Setting * float64(time.Minute))
		if g.elapsed >= limit {
			return proto.ReasonTimeUp, true
		}
	case config.GameplayIllness:
		for _, v := range viruses {
			if v.Alive && v.Infection >= g.cfg.Session.Setting {
				return proto.ReasonInfection, true
			}
		}
	}
	return 0, false
}

// finish ranks every virus, announces the result and freezes the game.
func (g *Game) finish(reason uint8) {
	var alive []*entity.Virus
	for _, v := range g.world.Viruses() {
		if v.Alive {
			alive = append(alive, v)
		}
	}
	g.ranking = Rank(alive, g.eliminated)
	for i, id := range g.ranking[:len(alive)] {
		if v, ok := g.world.Virus(id); ok {
			v.Rank = i + 1
		}
	}
	g.over = true
	g.reason = reason

	g.out.Broadcast(&proto.GameOver{Reason: reason, Ranking: g.Ranking()})
	simulation.GameOver(g.ctx, g.deps.Publisher, g.tick, simulation.GameOverPayload{
		Reason:  ReasonName(reason),
		Ranking: g.Ranking(),
	})
	g.deps.Logger.Printf("game over reason=%s ranking=%v elapsed=%s", ReasonName(reason), g.ranking, g.elapsed.Round(time.Second))
	if g.hooks.OnGameOver != nil {
		g.hooks.OnGameOver(reason, g.Standings())
	}
}

// Rank orders the surviving viruses by descending infection, ahead of the
// eliminated stack popped most recent first. Colliding infection values are
// nudged upward in iteration order until unique; NaN counts as 1.
func Rank(alive []*entity.Virus, eliminated []uint8) []uint8 {
	type keyed struct {
		id  uint8
		key float64
	}
	used := make(map[float64]bool, len(alive))
	entries := make([]keyed, 0, len(alive))
	for _, v := range alive {
		key := v.Infection
		if math.IsNaN(key) {
			key = 1.0
		}
		for used[key] {
			key = key*1.05 + rankEpsilon
		}
		used[key] = true
		entries = append(entries, keyed{id: v.ID, key: key})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key > entries[j].key })

	out := make([]uint8, 0, len(alive)+len(eliminated))
	for _, e := range entries {
		out = append(out, e.id)
	}
	for i := len(eliminated) - 1; i >= 0; i-- {
		out = append(out, eliminated[i])
	}
	return out
}

// Standings lists every virus in rank order once the game is over, or in id
// order before then.
func (g *Game) Standings() []Standing {
	out := make([]Standing, 0, len(g.world.Viruses()))
	add := func(v *entity.Virus) {
		s := Standing{Rank: v.Rank, Virus: v.ID, Name: v.Name, Bot: v.Bot, Infection: v.Infection, Clusters: len(v.Clusters)}
		for _, id := range v.Clusters {
			if c, ok := g.world.Cluster(id); ok {
				s.Cells += c.NumCellsTotal
			}
		}
		out = append(out, s)
	}
	if g.over {
		for _, id := range g.ranking {
			if v, ok := g.world.Virus(id); ok {
				add(v)
			}
		}
		return out
	}
	for _, v := range g.world.Viruses() {
		add(v)
	}
	return out
}
