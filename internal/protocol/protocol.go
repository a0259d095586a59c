package protocol

import "encoding/json"

// Event kinds pushed by the battle stream.
const (
	KindEpochStart       = "epoch_start"
	KindEpochEnd         = "epoch_end"
	KindAgentAction      = "agent_action"
	KindPredictionResult = "prediction_result"
	KindCombatResult     = "combat_result"
	KindAgentDeath       = "agent_death"
	KindOddsUpdate       = "odds_update"
	KindBattleEnd        = "battle_end"
)

var knownKinds = map[string]struct{}{
	KindEpochStart:       {},
	KindEpochEnd:         {},
	KindAgentAction:      {},
	KindPredictionResult: {},
	KindCombatResult:     {},
	KindAgentDeath:       {},
	KindOddsUpdate:       {},
	KindBattleEnd:        {},
}

func IsKnownKind(kind string) bool {
	_, ok := knownKinds[kind]
	return ok
}

// baseEvent lets us route raw JSON frames by kind.
type baseEvent struct {
	Kind string `json:"kind"`
}

// Event is the closed set of stream events. Frames with an unrecognized
// kind decode to Unknown rather than an error, so consumers stay total.
type Event interface {
	EventKind() string
}

// Decode routes a raw frame by its kind tag and unmarshals the concrete
// event. The only error case is malformed JSON; an unknown kind is data,
// not a failure.
func Decode(b []byte) (Event, error) {
	var base baseEvent
	if err := json.Unmarshal(b, &base); err != nil {
		return nil, err
	}
	switch base.Kind {
	case KindEpochStart:
		var ev EpochStart
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindEpochEnd:
		var ev EpochEnd
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindBattleEnd:
		var ev BattleEnd
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindAgentAction, KindPredictionResult, KindCombatResult, KindAgentDeath, KindOddsUpdate:
		var ev Notice
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, err
		}
		ev.Kind = base.Kind
		return ev, nil
	default:
		return Unknown{Kind: base.Kind, Raw: append(json.RawMessage(nil), b...)}, nil
	}
}
