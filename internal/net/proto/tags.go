package proto

import "fmt"

// Tag is the first byte of every packet.
type Tag uint8

// Host to client.
const (
	TagUCellSnapshot Tag = iota + 1
	TagClusterSnapshot
	TagVirusRoster
	TagGameStarted
	TagNewCluster
	TagClusterUpdate
	TagClusterDivide
	TagClusterHybridize
	TagClusterSplit
	TagBattleOutcome
	TagMedicationDeployed
	TagImmuneCountdown
	TagMedicationCountdown
	TagBattleWarning
	TagBattleUnwarning
	TagGameOver
	TagUCellSpawn
)

// Client to host.
const (
	TagNewClusterFromCell Tag = iota + 0x40
	TagDivide
	TagHybridize
	TagSplit
	TagChase
	TagEvade
	TagCancelAction
	TagReady
)

var tagNames = map[Tag]string{
	TagUCellSnapshot:       "ucell_snapshot",
	TagClusterSnapshot:     "cluster_snapshot",
	TagVirusRoster:         "virus_roster",
	TagGameStarted:         "game_started",
	TagNewCluster:          "new_cluster",
	TagClusterUpdate:       "cluster_update",
	TagClusterDivide:       "cluster_divide",
	TagClusterHybridize:    "cluster_hybridize",
	TagClusterSplit:        "cluster_split",
	TagBattleOutcome:       "battle_outcome",
	TagMedicationDeployed:  "medication_deployed",
	TagImmuneCountdown:     "immune_countdown",
	TagMedicationCountdown: "medication_countdown",
	TagBattleWarning:       "battle_warning",
	TagBattleUnwarning:     "battle_unwarning",
	TagGameOver:            "game_over",
	TagUCellSpawn:          "ucell_spawn",
	TagNewClusterFromCell:  "new_cluster_from_cell",
	TagDivide:              "divide",
	TagHybridize:           "hybridize",
	TagSplit:               "split",
	TagChase:               "chase",
	TagEvade:               "evade",
	TagCancelAction:        "cancel_action",
	TagReady:               "ready",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// FromClient reports whether t is a client command.
func (t Tag) FromClient() bool {
	return t >= TagNewClusterFromCell && t <= TagReady
}

func newPacket(t Tag) Packet {
	switch t {
	case TagUCellSnapshot:
		return &UCellSnapshot{}
	case TagClusterSnapshot:
		return &ClusterSnapshot{}
	case TagVirusRoster:
		return &VirusRoster{}
	case TagGameStarted:
		return &GameStarted{}
	case TagNewCluster:
		return &NewCluster{}
	case TagClusterUpdate:
		return &ClusterUpdate{}
	case TagClusterDivide:
		return &ClusterDivide{}
	case TagClusterHybridize:
		return &ClusterHybridize{}
	case TagClusterSplit:
		return &ClusterSplit{}
	case TagBattleOutcome:
		return &BattleOutcome{}
	case TagMedicationDeployed:
		return &MedicationDeployed{}
	case TagImmuneCountdown:
		return &ImmuneCountdown{}
	case TagMedicationCountdown:
		return &MedicationCountdown{}
	case TagBattleWarning:
		return &BattleWarning{}
	case TagBattleUnwarning:
		return &BattleUnwarning{}
	case TagGameOver:
		return &GameOver{}
	case TagUCellSpawn:
		return &UCellSpawn{}
	case TagNewClusterFromCell:
		return &NewClusterFromCell{}
	case TagDivide:
		return &Divide{}
	case TagHybridize:
		return &Hybridize{}
	case TagSplit:
		return &Split{}
	case TagChase:
		return &Chase{}
	case TagEvade:
		return &Evade{}
	case TagCancelAction:
		return &CancelAction{}
	case TagReady:
		return &Ready{}
	default:
		return nil
	}
}
