package sim

import (
	"sync"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	// LingerAfterOver stops Run this long after the match ends so late
	// packets still reach clients. Zero runs until stopped.
	LingerAfterOver time.Duration
}

// LoopHooks lets the owner observe the loop without coupling it to the
// transport or results writers.
type LoopHooks struct {
	AfterStep     func(LoopStepResult)
	OnCommandDrop func(reason string, cmd Command)
}

// LoopTickContext describes one advance.
type LoopTickContext struct {
	Now   time.Time
	Delta float64
}

// LoopStepResult summarizes a completed tick.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        float64
	Commands     int
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
	Over         bool
}

// Loop stages commands from any goroutine and advances the game at a fixed
// rate on one goroutine.
type Loop struct {
	game    *Game
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	deps    Deps
	logger  telemetry.Logger
	metrics telemetry.Metrics

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

func NewLoop(game *Game, cfg LoopConfig, hooks LoopHooks) *Loop {
	if game == nil {
		return nil
	}
	deps := game.deps
	return &Loop{
		game:          game,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		deps:          deps,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Game returns the driven game. Only the loop goroutine may mutate it.
func (l *Loop) Game() *Game {
	if l == nil {
		return nil
	}
	return l.game
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" && !l.buffer.Push(cmd) {
		reason = CommandRejectQueueFull
		dropCount = l.incrementDropLocked(cmd.ActorID)
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance runs one game step over every staged command.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	l.game.Step(ctx.Delta, commands)
	return LoopStepResult{
		Tick:     l.game.Tick(),
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Commands: len(commands),
		Over:     l.game.Over(),
	}
}

// Run drives the fixed-timestep loop until the stop channel closes or the
// finished match has lingered for LingerAfterOver.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	pacer := newPacer(l.config, l.deps.Clock.Now())
	ticker := time.NewTicker(pacer.budget)
	defer ticker.Stop()

	var overFor time.Duration
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			result := l.timedStep(pacer)
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
			if !result.Over || l.config.LingerAfterOver <= 0 {
				continue
			}
			overFor += time.Duration(result.Delta * float64(time.Second))
			if overFor >= l.config.LingerAfterOver {
				l.logger.Printf("match over, loop stopped after lingering %s", overFor.Round(time.Millisecond))
				return
			}
		}
	}
}

// pacer turns wall-clock ticks into bounded simulation deltas.
type pacer struct {
	budget time.Duration
	maxDt  float64
	last   time.Time
}

func newPacer(cfg LoopConfig, now time.Time) *pacer {
	tickRate := cfg.TickRate
	if tickRate <= 0 {
		tickRate = 30
	}
	budget := time.Second / time.Duration(tickRate)
	maxDt := budget.Seconds() * float64(max(cfg.CatchupMaxTicks, 1))
	return &pacer{budget: budget, maxDt: maxDt, last: now}
}

// delta returns the seconds since the previous tick, clamped to maxDt.
func (p *pacer) delta(now time.Time) (dt float64, clamped bool) {
	dt = now.Sub(p.last).Seconds()
	p.last = now
	switch {
	case dt <= 0:
		return p.budget.Seconds(), false
	case dt > p.maxDt:
		return p.maxDt, true
	}
	return dt, false
}

func (l *Loop) timedStep(p *pacer) LoopStepResult {
	clock := l.deps.Clock
	now := clock.Now()
	dt, clamped := p.delta(now)

	result := l.Advance(LoopTickContext{Now: now, Delta: dt})
	result.Duration = clock.Now().Sub(now)
	result.Budget = p.budget
	result.ClampedDelta = clamped
	result.MaxDelta = p.maxDt
	l.metrics.Store("sim_tick", result.Tick)
	return result
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		clear(l.perActorCount)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	l.metrics.Add("sim_commands_dropped_total", 1)
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
			l.config.PerActorLimit,
		)
	}
}

// Status returns the game's published status. Safe for concurrent use.
func (l *Loop) Status() Status {
	if l == nil {
		return Status{}
	}
	return l.game.Status()
}
