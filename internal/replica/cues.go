package replica

// Cue names a sound the client plays in response to a host event.
type Cue uint8

const (
	CueImmuneCountdown Cue = iota + 1
	CueMedicationCountdown
	CueMedicationDeployed
	CueBattleWon
	CueBattleLost
	CueUnderAttack
	CueVictory
	CueDefeat
)

var cueNames = map[Cue]string{
	CueImmuneCountdown:     "immune_countdown",
	CueMedicationCountdown: "medication_countdown",
	CueMedicationDeployed:  "medication_deployed",
	CueBattleWon:           "battle_won",
	CueBattleLost:          "battle_lost",
	CueUnderAttack:         "under_attack",
	CueVictory:             "victory",
	CueDefeat:              "defeat",
}

func (c Cue) String() string {
	if name, ok := cueNames[c]; ok {
		return name
	}
	return "cue"
}

// Cues plays sounds. Implementations must not block.
type Cues interface {
	Play(Cue)
}

// CueFunc adapts a function into Cues.
type CueFunc func(Cue)

func (f CueFunc) Play(c Cue) {
	if f != nil {
		f(c)
	}
}

type NopCues struct{}

func (NopCues) Play(Cue) {}
