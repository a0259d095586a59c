package protocol

// Combatant classes. The set is fixed; the class only selects a palette
// and flavor on the viewer side.
const (
	ClassWarrior   = "warrior"
	ClassGuardian  = "guardian"
	ClassAssassin  = "assassin"
	ClassOracle    = "oracle"
	ClassBerserker = "berserker"
)

// Prediction outcomes carried on an agent for the epoch.
const (
	PredictionNone    = "none"
	PredictionCorrect = "correct"
	PredictionWrong   = "wrong"
)

// AgentSnapshot is one combatant's state as delivered in epoch_end.
// The transient flags (Attacking, Attacked, Defending, PredictionResult,
// IsWinner) are authoritative per epoch and must not be synthesized
// locally.
type AgentSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`

	HP    int  `json:"hp"`
	MaxHP int  `json:"maxHp"`
	Alive bool `json:"alive"`
	Kills int  `json:"kills"`

	Attacking        bool   `json:"attacking,omitempty"`
	Attacked         bool   `json:"attacked,omitempty"`
	Defending        bool   `json:"defending,omitempty"`
	PredictionResult string `json:"predictionResult,omitempty"`
	IsWinner         bool   `json:"isWinner,omitempty"`
}

// Normalized clamps HP into [0, MaxHP] and re-derives Alive from HP, so
// the invariants hp >= 0 and alive == (hp > 0) hold no matter what the
// wire said.
func (s AgentSnapshot) Normalized() AgentSnapshot {
	if s.HP < 0 {
		s.HP = 0
	}
	if s.MaxHP > 0 && s.HP > s.MaxHP {
		s.HP = s.MaxHP
	}
	s.Alive = s.HP > 0
	if s.PredictionResult == "" {
		s.PredictionResult = PredictionNone
	}
	return s
}
