package arena

import (
	"fmt"
	"reflect"
	"testing"

	"hexarena.live/internal/hexgrid"
	"hexarena.live/internal/protocol"
)

func snap(id string, hp int) protocol.AgentSnapshot {
	return protocol.AgentSnapshot{ID: id, Name: id, Class: protocol.ClassWarrior, HP: hp, MaxHP: 100}
}

func TestApply_EpochStartReplacesMarketWholesale(t *testing.T) {
	s := State{
		LatestEpoch: 6,
		Market: protocol.MarketData{
			Prices:    map[string]float64{"BTC": 1, "ETH": 2},
			Timestamp: 100,
		},
	}
	s2 := Apply(s, protocol.EpochStart{
		EpochNumber: 7,
		Market: protocol.MarketData{
			Prices:    map[string]float64{"SOL": 3},
			Timestamp: 200,
		},
	})
	if s2.LatestEpoch != 7 {
		t.Fatalf("latestEpoch: got %d want 7", s2.LatestEpoch)
	}
	if len(s2.Market.Prices) != 1 || s2.Market.Prices["SOL"] != 3 {
		t.Fatalf("market must be replaced, not merged: %+v", s2.Market)
	}
	// Input state is untouched.
	if s.LatestEpoch != 6 || len(s.Market.Prices) != 2 {
		t.Fatalf("apply mutated its input: %+v", s)
	}
}

func TestApply_EpochEndReplacesAgentsWholesale(t *testing.T) {
	s := Apply(State{}, protocol.EpochEnd{Agents: []protocol.AgentSnapshot{
		snap("a1", 50), snap("a2", 60),
	}})
	s2 := Apply(s, protocol.EpochEnd{Agents: []protocol.AgentSnapshot{
		snap("a3", 70),
	}})
	if len(s2.Agents) != 1 || s2.Agents[0].ID != "a3" {
		t.Fatalf("agent mapping must be replaced wholesale: %+v", s2.Agents)
	}
	if _, ok := s2.AgentByID("a1"); ok {
		t.Fatalf("a1 absent from payload must not survive")
	}
}

func TestApply_EpochEndNormalizesSnapshots(t *testing.T) {
	s := Apply(State{}, protocol.EpochEnd{Agents: []protocol.AgentSnapshot{
		{ID: "a1", HP: -3, MaxHP: 100, Alive: true},
	}})
	a, _ := s.AgentByID("a1")
	if a.HP != 0 || a.Alive {
		t.Fatalf("snapshot not normalized: %+v", a)
	}
}

func TestApply_BattleEndSetsWinnerAndFlag(t *testing.T) {
	s := Apply(State{}, protocol.EpochEnd{Agents: []protocol.AgentSnapshot{
		snap("a1", 80), snap("a2", 0),
	}})
	s = Apply(s, protocol.BattleEnd{WinnerID: "a1", WinnerName: "Rook", TotalEpochs: 14})
	if s.Winner == nil || s.Winner.ID != "a1" || s.Winner.TotalEpochs != 14 {
		t.Fatalf("winner not set: %+v", s.Winner)
	}
	a, _ := s.AgentByID("a1")
	if !a.IsWinner {
		t.Fatalf("winning agent should carry isWinner")
	}
	b, _ := s.AgentByID("a2")
	if b.IsWinner {
		t.Fatalf("losing agent must not carry isWinner")
	}
}

func TestApply_EventsAfterWinnerAreIgnoredForState(t *testing.T) {
	s := Apply(State{}, protocol.BattleEnd{WinnerID: "a1", WinnerName: "Rook", TotalEpochs: 14})
	s2 := Apply(s, protocol.BattleEnd{WinnerID: "a2", WinnerName: "Sable", TotalEpochs: 15})
	if s2.Winner.ID != "a1" {
		t.Fatalf("winner must not be overridden: %+v", s2.Winner)
	}
	s3 := Apply(s2, protocol.EpochEnd{Agents: []protocol.AgentSnapshot{snap("a9", 10)}})
	if len(s3.Agents) != 0 {
		t.Fatalf("late epoch_end after winner should not mutate state")
	}
}

func TestApply_CommentaryAndUnknownAreNoOps(t *testing.T) {
	s := Apply(State{LatestEpoch: 3}, protocol.Notice{Kind: protocol.KindOddsUpdate, Message: "x", Epoch: 3})
	if s.LatestEpoch != 3 || s.Agents != nil {
		t.Fatalf("notice mutated state: %+v", s)
	}
	s = Apply(s, protocol.Unknown{Kind: "sponsor_drop"})
	if s.LatestEpoch != 3 {
		t.Fatalf("unknown kind mutated state: %+v", s)
	}
}

func TestReducer_Deterministic(t *testing.T) {
	events := []protocol.Event{
		protocol.EpochStart{EpochNumber: 1, Market: protocol.MarketData{Prices: map[string]float64{"BTC": 10}, Timestamp: 1}},
		protocol.EpochEnd{Agents: []protocol.AgentSnapshot{snap("a1", 90), snap("a2", 70)}},
		protocol.Notice{Kind: protocol.KindCombatResult, AgentID: "a1", Message: "hit", Epoch: 1},
		protocol.EpochStart{EpochNumber: 2, Market: protocol.MarketData{Prices: map[string]float64{"BTC": 11}, Timestamp: 2}},
		protocol.EpochEnd{Agents: []protocol.AgentSnapshot{snap("a1", 90), snap("a2", 0)}},
		protocol.BattleEnd{WinnerID: "a1", WinnerName: "a1", TotalEpochs: 2},
	}
	run := func() State {
		r := NewReducer()
		var s State
		for _, ev := range events {
			s = r.Reduce(ev)
		}
		return s
	}
	s1, s2 := run(), run()
	if !reflect.DeepEqual(s1, s2) {
		t.Fatalf("reducer not deterministic:\n%+v\n%+v", s1, s2)
	}
}

func TestHistory_BoundDropsOldest(t *testing.T) {
	r := NewReducer()
	for i := 1; i <= MaxEvents+1; i++ {
		r.Reduce(protocol.Notice{Kind: protocol.KindAgentAction, Message: fmt.Sprintf("e%d", i), Epoch: i})
	}
	entries := r.History().Entries()
	if len(entries) != MaxEvents {
		t.Fatalf("history: got %d entries want %d", len(entries), MaxEvents)
	}
	first := entries[0].Event.(protocol.Notice)
	if first.Message != "e2" {
		t.Fatalf("oldest retained should be e2, got %s", first.Message)
	}
	last := entries[len(entries)-1].Event.(protocol.Notice)
	if last.Message != fmt.Sprintf("e%d", MaxEvents+1) {
		t.Fatalf("newest should be e%d, got %s", MaxEvents+1, last.Message)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Seq != entries[i-1].Seq+1 {
			t.Fatalf("history out of arrival order at %d", i)
		}
	}
}

func TestHistory_AppendsEveryKind(t *testing.T) {
	r := NewReducer()
	r.Reduce(protocol.Unknown{Kind: "mystery"})
	r.Reduce(protocol.BattleEnd{WinnerID: "a1"})
	r.Reduce(protocol.Unknown{Kind: "mystery2"}) // post-winner frames still recorded
	if r.History().Len() != 3 {
		t.Fatalf("all kinds append to history, got %d", r.History().Len())
	}
}

func TestOccupancy(t *testing.T) {
	s := Apply(State{}, protocol.EpochEnd{Agents: []protocol.AgentSnapshot{
		snap("a1", 10), snap("a2", 20), snap("a3", 30),
	}})
	placement := map[string]hexgrid.Coord{
		"a1": {Q: 0, R: 0},
		"a3": {Q: 1, R: 0},
	}
	occ := Occupancy(s, placement)
	if len(occ) != 2 {
		t.Fatalf("occupancy: got %d tiles want 2", len(occ))
	}
	if occ[hexgrid.Coord{Q: 0, R: 0}].ID != "a1" || occ[hexgrid.Coord{Q: 1, R: 0}].ID != "a3" {
		t.Fatalf("occupancy wrong: %+v", occ)
	}
}

func TestReducer_SetConnected(t *testing.T) {
	r := NewReducer()
	if s := r.SetConnected(true); !s.Connected {
		t.Fatalf("connected flag not set")
	}
	if s := r.SetConnected(false); s.Connected {
		t.Fatalf("connected flag not cleared")
	}
}
