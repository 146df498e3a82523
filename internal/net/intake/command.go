// Package intake turns decoded client packets into staged simulation
// commands.
package intake

import (
	"time"

	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
)

const (
	// CommandRejectInvalidPacket marks a packet that is not a client command.
	CommandRejectInvalidPacket = "invalid_packet"
	// CommandRejectUnknownActor marks a sender without a joined player.
	CommandRejectUnknownActor = "unknown_actor"
)

// Stager accepts commands for the next simulation step.
type Stager interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type CommandContext struct {
	Engine    Stager
	HasPlayer func(uuid.UUID) bool
	Tick      func() uint64
	Now       func() time.Time
}

// StageClientCommand validates p and stages it on behalf of player. The
// returned reason is empty when the command was accepted.
func StageClientCommand(ctx CommandContext, player uuid.UUID, p proto.Packet) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := ClientCommand(p)
	if !ok {
		return zero, false, CommandRejectInvalidPacket
	}
	if ctx.HasPlayer != nil && !ctx.HasPlayer(player) {
		return zero, false, CommandRejectUnknownActor
	}

	command.Player = player
	command.ActorID = player.String()
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}
	return command, true, ""
}

// ClientCommand maps a client packet onto its command. Host packets and nil
// report false.
func ClientCommand(p proto.Packet) (sim.Command, bool) {
	switch msg := p.(type) {
	case *proto.NewClusterFromCell:
		return sim.Command{Type: sim.CommandSpawn, Spawn: &sim.SpawnCommand{UCell: msg.UCell}}, true
	case *proto.Divide:
		return sim.Command{Type: sim.CommandDivide, Divide: &sim.DivideCommand{
			Cluster: msg.Cluster,
			Amounts: msg.Amounts.Composition(),
		}}, true
	case *proto.Hybridize:
		return sim.Command{Type: sim.CommandHybridize, Hybridize: &sim.HybridizeCommand{
			Cluster: msg.Cluster,
			A:       msg.A,
			B:       msg.B,
			Count:   int(msg.Count),
		}}, true
	case *proto.Split:
		return sim.Command{Type: sim.CommandSplit, Split: &sim.SplitCommand{
			Cluster: msg.Cluster,
			Parts:   msg.Parts.Composition(),
		}}, true
	case *proto.Chase:
		return sim.Command{Type: sim.CommandChase, Chase: &sim.ChaseCommand{
			Cluster: msg.Cluster,
			Target:  msg.Target,
		}}, true
	case *proto.Evade:
		return sim.Command{Type: sim.CommandEvade, Evade: &sim.EvadeCommand{
			Cluster: msg.Cluster,
			Threat:  registry.GlobalID(registry.CategoryCluster, msg.Threat),
		}}, true
	case *proto.CancelAction:
		return sim.Command{Type: sim.CommandCancel, Cancel: &sim.CancelCommand{Cluster: msg.Cluster}}, true
	case *proto.Ready:
		return sim.Command{Type: sim.CommandReady, Ready: &sim.ReadyCommand{Ready: msg.Ready}}, true
	default:
		return sim.Command{}, false
	}
}
