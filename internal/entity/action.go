package entity

import "fmt"

// ActionState is what a cluster is currently doing. The numeric values are
// carried in cluster update packets.
type ActionState uint8

const (
	Idle ActionState = iota
	ChasingUCellToInfect
	ChasingEnemyToBattle
	ChasingClusterToCombine
	EvadingEnemy
	WaitingForOrder
	WaitingWithMyClusterSelected
	WaitingWithEnemyClusterSelected
	WaitingWithUCellSelected

	numActionStates = int(WaitingWithUCellSelected) + 1
)

var actionNames = [numActionStates]string{
	Idle:                            "idle",
	ChasingUCellToInfect:            "chasing_ucell",
	ChasingEnemyToBattle:            "chasing_enemy",
	ChasingClusterToCombine:         "chasing_combine",
	EvadingEnemy:                    "evading",
	WaitingForOrder:                 "waiting",
	WaitingWithMyClusterSelected:    "waiting_my_cluster",
	WaitingWithEnemyClusterSelected: "waiting_enemy_cluster",
	WaitingWithUCellSelected:        "waiting_ucell",
}

func (s ActionState) String() string {
	if s.Valid() {
		return actionNames[s]
	}
	return fmt.Sprintf("action(%d)", uint8(s))
}

func (s ActionState) Valid() bool { return int(s) < numActionStates }

// Chasing reports whether the state pursues a target.
func (s ActionState) Chasing() bool {
	return s == ChasingUCellToInfect || s == ChasingEnemyToBattle || s == ChasingClusterToCombine
}

// Busy reports whether the cluster is committed to an action and therefore
// refuses new chase, combine, battle or split requests.
func (s ActionState) Busy() bool {
	return s.Chasing() || s == EvadingEnemy
}
