// Package sim is the host-authoritative simulation: it applies staged
// commands, moves and resolves clusters, runs the AI, fires hazards, checks
// win conditions and pushes every change through an Outbox.
package sim

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/ai"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/config"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/entity"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/level"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/motion"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging/simulation"
)

var palette = []color.RGBA{
	{R: 0xe6, G: 0x39, B: 0x46, A: 0xff},
	{R: 0x2a, G: 0x9d, B: 0x8f, A: 0xff},
	{R: 0xf4, G: 0xa2, B: 0x61, A: 0xff},
	{R: 0x45, G: 0x7b, B: 0x9d, A: 0xff},
	{R: 0x9b, G: 0x5d, B: 0xe5, A: 0xff},
	{R: 0xe9, G: 0xc4, B: 0x6a, A: 0xff},
	{R: 0x06, G: 0xd6, B: 0xa0, A: 0xff},
	{R: 0xef, G: 0x47, B: 0x6f, A: 0xff},
}

// Hooks are called on the loop goroutine.
type Hooks struct {
	OnGameOver func(reason uint8, standings []Standing)
}

// Status is a copy of the session state that other goroutines may read.
type Status struct {
	Session     uuid.UUID
	Gameplay    string
	Setting     float64
	Multiplayer bool
	Tick        uint64
	Elapsed     time.Duration
	Started     bool
	Over        bool
	Players     int
	MaxPlayers  int
	Viruses     int
	Clusters    int
	Ranking     []uint8
}

// Game owns the authoritative world. Everything except Status is confined
// to the loop goroutine.
type Game struct {
	cfg      *config.Config
	deps     Deps
	out      Outbox
	hooks    Hooks
	ctx      context.Context
	session  uuid.UUID
	model    *composition.Model
	world    *entity.World
	bodies   *motion.Store
	level    *level.Level
	director *ai.Director

	tick    uint64
	elapsed time.Duration
	started bool
	over    bool
	reason  uint8

	players    map[uuid.UUID]uint8
	ready      map[uuid.UUID]bool
	eliminated []uint8
	ranking    []uint8

	immune      hazardClock
	medication  hazardClock
	immuneBatch int

	nextUCellSnapshot   time.Duration
	nextClusterSnapshot time.Duration

	statusMu sync.RWMutex
	status   Status
}

// NewGame builds a session from cfg: the level, its uninfected cells, the
// bot viruses and, for solo play, the local player's virus.
func NewGame(cfg *config.Config, deps Deps, out Outbox, hooks Hooks) *Game {
	if out == nil {
		out = NopOutbox{}
	}
	model := composition.NewModel(cfg.Derived.Table)
	g := &Game{
		cfg:      cfg,
		deps:     deps.withDefaults(),
		out:      out,
		hooks:    hooks,
		ctx:      context.Background(),
		session:  uuid.New(),
		model:    model,
		world:    entity.NewWorld(),
		bodies:   motion.NewStore(cfg.Level.Radius),
		level:    level.Generate(cfg.Level, cfg.Session.Bots+max(cfg.Session.MaxPlayers, 1)),
		director: ai.NewDirector(cfg.AI, model, nil),
		players:  make(map[uuid.UUID]uint8),
		ready:    make(map[uuid.UUID]bool),

		immune:              hazardClock{timeout: cfg.Hazards.ImmuneTimeout, warning: cfg.Hazards.ImmuneWarning},
		medication:          hazardClock{timeout: cfg.Hazards.MedicationTimeout, warning: cfg.Hazards.MedicationWarning},
		immuneBatch:         max(cfg.Hazards.ImmuneInitialBatch, 1),
		nextClusterSnapshot: cfg.Net.SnapshotPhaseOffset,
	}
	g.deps.Publisher = logging.WithFields(g.deps.Publisher, map[string]any{"session": g.session.String()})

	for _, p := range g.level.UCells() {
		u := g.world.SpawnUCell(p.Type)
		g.bodies.SpawnSpinning(u.RegistryID(), p.Pos, p.Angle, p.Spin)
	}
	for i := 0; i < cfg.Session.Bots; i++ {
		g.addVirus(fmt.Sprintf("Bot %d", i+1), true, uuid.Nil)
	}
	if !cfg.Session.Multiplayer {
		g.addVirus(cfg.Session.PlayerName, false, uuid.Nil)
	}
	g.publishStatus()
	return g
}

// SetIQ replaces the difficulty hook used for bot viruses.
func (g *Game) SetIQ(iq ai.IQ) {
	g.director = ai.NewDirector(g.cfg.AI, g.model, iq)
}

func (g *Game) Session() uuid.UUID        { return g.session }
func (g *Game) Tick() uint64              { return g.tick }
func (g *Game) Elapsed() time.Duration    { return g.elapsed }
func (g *Game) Started() bool             { return g.started }
func (g *Game) Over() bool                { return g.over }
func (g *Game) World() *entity.World      { return g.world }
func (g *Game) Bodies() *motion.Store     { return g.bodies }
func (g *Game) Model() *composition.Model { return g.model }
func (g *Game) Director() *ai.Director    { return g.director }
func (g *Game) Config() *config.Config    { return g.cfg }
func (g *Game) Ranking() []uint8          { return append([]uint8(nil), g.ranking...) }
func (g *Game) PlayerVirus(p uuid.UUID) (uint8, bool) {
	id, ok := g.players[p]
	return id, ok
}

// Status returns the latest published session state. Safe for concurrent use.
func (g *Game) Status() Status {
	g.statusMu.RLock()
	defer g.statusMu.RUnlock()
	s := g.status
	s.Ranking = append([]uint8(nil), s.Ranking...)
	return s
}

// Step advances the game by dt seconds after applying cmds in order.
func (g *Game) Step(dt float64, cmds []Command) {
	g.tick++
	defer g.publishStatus()
	if g.over {
		return
	}
	for _, cmd := range cmds {
		if !g.started && !cmd.Type.lobby() {
			continue
		}
		g.apply(cmd)
	}
	if !g.started {
		if !g.readyToStart() {
			return
		}
		g.start()
	}

	step := time.Duration(dt * float64(time.Second))
	g.elapsed += step

	g.feed(dt)
	g.placeLateViruses()
	g.steer()
	g.bodies.Step(float32(dt))
	g.resolveContacts()
	g.director.Tick(g.world, g.bodies, botIssuer{g: g})
	g.broadcastSnapshots()

	g.cleanup()
	g.updateInfection()
	g.checkEliminations()
	g.checkGameOver()
	if !g.over {
		g.updateHazards(step)
	}
}

func (g *Game) readyToStart() bool {
	if !g.cfg.Session.Multiplayer {
		return true
	}
	if len(g.players) == 0 {
		return false
	}
	for p := range g.players {
		if !g.ready[p] {
			return false
		}
	}
	return true
}

func (g *Game) start() {
	g.started = true
	g.out.Broadcast(g.roster())
	g.out.Broadcast(g.gameStarted())
	for _, u := range g.world.UCells() {
		g.out.Broadcast(g.ucellSpawn(u))
	}
	bots := 0
	for i, v := range g.world.Viruses() {
		if v.Bot {
			bots++
			g.place(v, i)
		}
	}
	simulation.GameStarted(g.ctx, g.deps.Publisher, g.tick, simulation.GameStartedPayload{
		Viruses:     len(g.world.Viruses()),
		Bots:        bots,
		Multiplayer: g.cfg.Session.Multiplayer,
	})
	g.deps.Logger.Printf("game started session=%s viruses=%d bots=%d", g.session, len(g.world.Viruses()), bots)
}

// placeLateViruses auto-places humans who have not chosen a cell within
// the spawn grace period.
func (g *Game) placeLateViruses() {
	if g.elapsed < g.cfg.Sim.SpawnGrace {
		return
	}
	for i, v := range g.world.Viruses() {
		if v.Alive && !v.Spawned {
			g.place(v, i)
		}
	}
}

// place infects the free uninfected cell nearest to the virus's entry point.
func (g *Game) place(v *entity.Virus, slot int) {
	entry := g.level.VirusSpawn(slot)
	best := -1
	var bestDist float32
	cellsLive := g.world.UCells()
	for i, u := range cellsLive {
		if !u.Active {
			continue
		}
		pos, ok := g.bodies.Position(u.RegistryID())
		if !ok {
			continue
		}
		d := pos.Sub(entry).Len()
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		g.deps.Logger.Printf("no free cell to place virus=%d", v.ID)
		return
	}
	g.spawnFromCell(v, cellsLive[best].ID)
}

func (g *Game) addVirus(name string, bot bool, player uuid.UUID) *entity.Virus {
	id := g.world.Registry().Allocate(registry.CategoryVirus)
	v := &entity.Virus{
		ID:       id,
		Name:     name,
		Color:    palette[int(id)%len(palette)],
		Bot:      bot,
		PlayerID: player,
		Alive:    true,
	}
	g.world.AddVirus(v)
	if player != uuid.Nil {
		g.players[player] = id
	}
	return v
}

func (g *Game) feed(dt float64) {
	for _, c := range g.world.Clusters() {
		if c.Active && c.Owned() {
			g.model.Feed(&c.Cluster, dt)
		}
	}
}

func (g *Game) cleanup() {
	for _, id := range g.world.Sweep() {
		g.bodies.Remove(id)
		if id.Category() != registry.CategoryCluster {
			continue
		}
		g.director.Forget(id.Local())
		for _, c := range g.world.Clusters() {
			if c.Attacker == id {
				g.unwarn(c)
			}
		}
	}
	g.deps.Metrics.Store("sim_clusters_active", uint64(g.world.Registry().Count(registry.CategoryCluster)))
	g.deps.Metrics.Store("sim_ucells_active", uint64(g.world.Registry().Count(registry.CategoryUninfectedCell)))
}

func (g *Game) publishStatus() {
	humans := 0
	for _, v := range g.world.Viruses() {
		if !v.Bot {
			humans++
		}
	}
	s := Status{
		Session:     g.session,
		Gameplay:    g.cfg.Session.Gameplay,
		Setting:     g.cfg.Session.Setting,
		Multiplayer: g.cfg.Session.Multiplayer,
		Tick:        g.tick,
		Elapsed:     g.elapsed,
		Started:     g.started,
		Over:        g.over,
		Players:     humans,
		MaxPlayers:  g.cfg.Session.MaxPlayers,
		Viruses:     len(g.world.Viruses()),
		Clusters:    g.world.Registry().Count(registry.CategoryCluster),
		Ranking:     append([]uint8(nil), g.ranking...),
	}
	g.statusMu.Lock()
	g.status = s
	g.statusMu.Unlock()
}
