package sim

import (
	"time"

	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/cells"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/composition"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/registry"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	// CommandJoin adds a network player to the session roster.
	CommandJoin CommandType = "Join"
	// CommandLeave releases a player's virus after a disconnect.
	CommandLeave CommandType = "Leave"
	// CommandSync resends the replicated world to one player.
	CommandSync CommandType = "Sync"
	// CommandReady toggles a player's lobby readiness.
	CommandReady CommandType = "Ready"
	// CommandSpawn places a virus's first cluster on an uninfected cell.
	CommandSpawn CommandType = "Spawn"
	// CommandDivide spends nutrients on new cells.
	CommandDivide CommandType = "Divide"
	// CommandHybridize fuses pairs of cells into a hybrid tier.
	CommandHybridize CommandType = "Hybridize"
	// CommandSplit carves a new cluster out of an existing one.
	CommandSplit CommandType = "Split"
	// CommandChase sends a cluster after a cell or another cluster.
	CommandChase CommandType = "Chase"
	// CommandEvade runs a cluster away from a threat.
	CommandEvade CommandType = "Evade"
	// CommandCancel returns a cluster to idle.
	CommandCancel CommandType = "Cancel"
)

// JoinCommand carries the display name of a joining player.
type JoinCommand struct {
	Name string
}

// ReadyCommand carries the lobby readiness flag.
type ReadyCommand struct {
	Ready bool
}

// SpawnCommand names the uninfected cell a virus enters the body through.
type SpawnCommand struct {
	UCell uint8
}

// DivideCommand requests new cells per sub-type.
type DivideCommand struct {
	Cluster uint8
	Amounts composition.Counts
}

// HybridizeCommand fuses Count pairs of A and B.
type HybridizeCommand struct {
	Cluster uint8
	A, B    cells.Type
	Count   int
}

// SplitCommand moves Parts into a new cluster.
type SplitCommand struct {
	Cluster uint8
	Parts   composition.Counts
}

// ChaseCommand targets an uninfected cell or a cluster by global id.
type ChaseCommand struct {
	Cluster uint8
	Target  registry.ID
}

// EvadeCommand flees from a threatening cluster.
type EvadeCommand struct {
	Cluster uint8
	Threat  registry.ID
}

// CancelCommand clears a cluster's action.
type CancelCommand struct {
	Cluster uint8
}

// Command is the normalized representation of an action staged for the
// simulation. ActorID keys per-actor throttling; Player identifies the
// network player that sent it.
type Command struct {
	OriginTick uint64
	ActorID    string
	Player     uuid.UUID
	Type       CommandType
	IssuedAt   time.Time

	Join      *JoinCommand
	Ready     *ReadyCommand
	Spawn     *SpawnCommand
	Divide    *DivideCommand
	Hybridize *HybridizeCommand
	Split     *SplitCommand
	Chase     *ChaseCommand
	Evade     *EvadeCommand
	Cancel    *CancelCommand
}

// lobby reports whether the command is processed before the game starts.
func (t CommandType) lobby() bool {
	switch t {
	case CommandJoin, CommandLeave, CommandSync, CommandReady:
		return true
	default:
		return false
	}
}
