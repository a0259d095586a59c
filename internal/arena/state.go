// Package arena folds the ordered battle event stream into the current
// derived view plus a bounded event history.
package arena

import (
	"hexarena.live/internal/hexgrid"
	"hexarena.live/internal/protocol"
)

// Winner is set once by battle_end and never overwritten.
type Winner struct {
	ID          string
	Name        string
	TotalEpochs int
}

// State is the derived view of one battle. It is a value: Apply returns a
// fresh State and never mutates its input, so a renderer holding the
// previous snapshot never sees a partial update.
type State struct {
	LatestEpoch int
	Agents      []protocol.AgentSnapshot // ordered as delivered in epoch_end
	Market      protocol.MarketData
	Winner      *Winner
	Connected   bool
}

// AgentByID returns the snapshot for id, if present.
func (s State) AgentByID(id string) (protocol.AgentSnapshot, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return protocol.AgentSnapshot{}, false
}

// AgentIDs returns ids in delivery order.
func (s State) AgentIDs() []string {
	ids := make([]string, len(s.Agents))
	for i, a := range s.Agents {
		ids[i] = a.ID
	}
	return ids
}

// Apply is the pure transition function. Unknown and commentary kinds
// leave the state untouched; the caller appends them to history. Once a
// winner is set, authoritative events no longer mutate the view (late
// frames still land in history).
func Apply(s State, ev protocol.Event) State {
	if s.Winner != nil {
		return s
	}
	switch ev := ev.(type) {
	case protocol.EpochStart:
		s.LatestEpoch = ev.EpochNumber
		s.Market = ev.Market
	case protocol.EpochEnd:
		// Wholesale replacement: the sole reconciliation point for agent
		// snapshots and their per-epoch transient flags.
		agents := make([]protocol.AgentSnapshot, len(ev.Agents))
		for i, a := range ev.Agents {
			agents[i] = a.Normalized()
		}
		s.Agents = agents
		if ev.EpochNumber > s.LatestEpoch {
			s.LatestEpoch = ev.EpochNumber
		}
	case protocol.BattleEnd:
		s.Winner = &Winner{ID: ev.WinnerID, Name: ev.WinnerName, TotalEpochs: ev.TotalEpochs}
		agents := make([]protocol.AgentSnapshot, len(s.Agents))
		copy(agents, s.Agents)
		for i := range agents {
			agents[i].IsWinner = agents[i].ID == ev.WinnerID
		}
		s.Agents = agents
	default:
		// Commentary, unknown: history only.
	}
	return s
}

// Occupancy maps each placed tile to its occupant for a renderer. Tiles
// without an agent are simply absent.
func Occupancy(s State, placement map[string]hexgrid.Coord) map[hexgrid.Coord]protocol.AgentSnapshot {
	out := make(map[hexgrid.Coord]protocol.AgentSnapshot, len(s.Agents))
	for _, a := range s.Agents {
		if c, ok := placement[a.ID]; ok {
			out[c] = a
		}
	}
	return out
}
