package protocol

import "encoding/json"

// MarketData is the per-epoch market snapshot, replaced wholesale on
// every epoch_start.
type MarketData struct {
	Prices    map[string]float64 `json:"prices"`
	Timestamp int64              `json:"timestamp"`
}

// EPOCH_START (server -> viewer): a new simulation tick has begun.
type EpochStart struct {
	EpochNumber int        `json:"epochNumber"`
	Market      MarketData `json:"marketData"`
}

func (EpochStart) EventKind() string { return KindEpochStart }

// EPOCH_END (server -> viewer): the authoritative reconciliation point.
// Agents carries the complete combatant roster; per-epoch transient flags
// are valid only as delivered here.
type EpochEnd struct {
	EpochNumber int             `json:"epochNumber,omitempty"`
	Agents      []AgentSnapshot `json:"agentStates"`
}

func (EpochEnd) EventKind() string { return KindEpochEnd }

// BATTLE_END (server -> viewer): terminal outcome.
type BattleEnd struct {
	WinnerID    string `json:"winnerId"`
	WinnerName  string `json:"winnerName"`
	TotalEpochs int    `json:"totalEpochs"`
}

func (BattleEnd) EventKind() string { return KindBattleEnd }

// Notice covers the five commentary kinds (agent_action, prediction_result,
// combat_result, agent_death, odds_update). They feed the event history and
// never mutate derived state directly.
type Notice struct {
	Kind    string `json:"kind"`
	AgentID string `json:"agentId,omitempty"`
	Message string `json:"message"`
	Epoch   int    `json:"epoch"`
}

func (n Notice) EventKind() string { return n.Kind }

// Unknown preserves frames with a kind this build does not recognize.
// They are kept for the history buffer and otherwise ignored.
type Unknown struct {
	Kind string
	Raw  json.RawMessage
}

func (u Unknown) EventKind() string { return u.Kind }
