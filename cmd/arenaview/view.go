package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"hexarena.live/internal/arena"
	"hexarena.live/internal/battledb"
	"hexarena.live/internal/effects"
	"hexarena.live/internal/hexgrid"
	"hexarena.live/internal/protocol"
	"hexarena.live/internal/stream"
)

var classStyles = map[string]tcell.Style{
	protocol.ClassWarrior:   tcell.StyleDefault.Foreground(tcell.ColorRed),
	protocol.ClassGuardian:  tcell.StyleDefault.Foreground(tcell.ColorBlue),
	protocol.ClassAssassin:  tcell.StyleDefault.Foreground(tcell.ColorPurple),
	protocol.ClassOracle:    tcell.StyleDefault.Foreground(tcell.ColorAqua),
	protocol.ClassBerserker: tcell.StyleDefault.Foreground(tcell.ColorOrange),
}

var effectMarks = map[string]rune{
	effects.TypeAttack:         '*',
	effects.TypeDefend:         '#',
	effects.TypeDeath:          'x',
	effects.TypeSponsor:        '$',
	effects.TypePredictionWin:  '+',
	effects.TypePredictionLoss: '-',
}

type viewParams struct {
	battleID  string
	radius    int
	hexSize   float64
	padding   float64
	external  map[string]hexgrid.Coord
	lifetimes map[string]time.Duration
}

// view runs entirely on the UI goroutine.
type view struct {
	p viewParams

	reducer   *arena.Reducer
	detector  *effects.Detector
	placement map[string]hexgrid.Coord
	bounds    hexgrid.Rect
	recorded  bool
}

func newView(p viewParams) *view {
	v := &view{
		p:         p,
		reducer:   arena.NewReducer(),
		placement: map[string]hexgrid.Coord{},
		bounds:    hexgrid.Bounds(p.radius, p.hexSize, p.padding),
	}
	var opts []effects.Option
	if len(p.lifetimes) > 0 {
		opts = append(opts, effects.WithLifetimes(p.lifetimes))
	}
	v.detector = effects.NewDetector(func(id string) (hexgrid.Coord, bool) {
		c, ok := v.placement[id]
		return c, ok
	}, opts...)
	return v
}

func (v *view) close() {
	v.detector.Close()
}

func (v *view) setConnected(connected bool) {
	v.reducer.SetConnected(connected)
}

func (v *view) handleEvent(ev protocol.Event, archive *battledb.Archive) {
	state := v.reducer.Reduce(ev)

	if _, ok := ev.(protocol.EpochEnd); ok {
		v.updatePlacement(state)
	}
	v.detector.Observe(state.Agents)

	if _, ok := ev.(protocol.BattleEnd); ok && archive != nil && !v.recorded {
		v.recorded = true
		w := state.Winner
		archive.RecordBattle(battledb.BattleRecord{
			BattleID:    v.p.battleID,
			WinnerID:    w.ID,
			WinnerName:  w.Name,
			TotalEpochs: w.TotalEpochs,
			EventsSeen:  v.reducer.History().Len(),
		})
	}
}

// updatePlacement prefers the externally supplied mapping and falls back
// to deterministic default placement.
func (v *view) updatePlacement(state arena.State) {
	if len(v.p.external) > 0 {
		v.placement = v.p.external
		return
	}
	v.placement = hexgrid.Placement(state.AgentIDs(), func(id string) bool {
		a, ok := state.AgentByID(id)
		return ok && a.Alive
	}, v.p.radius)
}

// cell maps a hex pixel center into the terminal grid, scaled into the
// arena pane. Terminal cells are roughly twice as tall as wide, so x is
// stretched by 2.
func (v *view) cell(c hexgrid.Coord, paneW, paneH int) (int, int) {
	px, py := hexgrid.Pixel(c, v.p.hexSize)
	fx := (px - v.bounds.MinX) / v.bounds.Width()
	fy := (py - v.bounds.MinY) / v.bounds.Height()
	x := 1 + int(fx*float64(paneW-3))
	y := 1 + int(fy*float64(paneH-3))
	return x, y
}

func (v *view) draw(screen tcell.Screen, status stream.Status) {
	screen.Clear()
	w, h := screen.Size()
	state := v.reducer.State()

	paneW := w * 2 / 3
	paneH := h - 2

	drawText(screen, 0, 0, tcell.StyleDefault.Bold(true),
		fmt.Sprintf("battle %s  epoch %d  [%s]", v.p.battleID, state.LatestEpoch, status))
	if state.Winner != nil {
		drawText(screen, 0, 1, tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true),
			fmt.Sprintf("WINNER: %s after %d epochs", state.Winner.Name, state.Winner.TotalEpochs))
	} else {
		drawText(screen, 0, 1, tcell.StyleDefault, marketLine(state.Market))
	}

	occ := arena.Occupancy(state, v.placement)
	for _, tile := range hexgrid.Tiles(v.p.radius) {
		x, y := v.cell(tile, paneW, paneH)
		y += 2
		if a, ok := occ[tile]; ok {
			st, found := classStyles[a.Class]
			if !found {
				st = tcell.StyleDefault
			}
			if !a.Alive {
				st = tcell.StyleDefault.Foreground(tcell.ColorGray)
			}
			r := '?'
			if len(a.Name) > 0 {
				r = rune(strings.ToUpper(a.Name)[0])
			}
			screen.SetContent(x, y, r, nil, st)
		} else {
			screen.SetContent(x, y, '.', nil, tcell.StyleDefault.Foreground(tcell.ColorDarkGray))
		}
	}

	for _, fx := range v.detector.Active() {
		mark, ok := effectMarks[fx.Type]
		if !ok {
			continue
		}
		x, y := v.cell(fx.Origin, paneW, paneH)
		screen.SetContent(x+1, y+2, mark, nil, tcell.StyleDefault.Foreground(tcell.ColorYellow))
		if fx.Target != nil {
			tx, ty := v.cell(*fx.Target, paneW, paneH)
			screen.SetContent(tx-1, ty+2, '<', nil, tcell.StyleDefault.Foreground(tcell.ColorRed))
		}
	}

	v.drawRoster(screen, state, paneW+2, 2, w-paneW-2)
	screen.Show()
}

func (v *view) drawRoster(screen tcell.Screen, state arena.State, x, y, maxW int) {
	for i, a := range state.Agents {
		st, ok := classStyles[a.Class]
		if !ok {
			st = tcell.StyleDefault
		}
		if !a.Alive {
			st = tcell.StyleDefault.Foreground(tcell.ColorGray)
		}
		line := fmt.Sprintf("%-10s %3d/%3d k%d", clip(a.Name, 10), a.HP, a.MaxHP, a.Kills)
		if a.IsWinner {
			line += " ★"
		}
		drawText(screen, x, y+i, st, clip(line, maxW))
	}
}

func marketLine(m protocol.MarketData) string {
	if len(m.Prices) == 0 {
		return "waiting for market data..."
	}
	assets := make([]string, 0, len(m.Prices))
	for asset := range m.Prices {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	parts := make([]string, 0, len(assets))
	for _, asset := range assets {
		parts = append(parts, fmt.Sprintf("%s %.2f", asset, m.Prices[asset]))
	}
	return clip(strings.Join(parts, "  "), 120)
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, s string) {
	col := x
	for _, r := range s {
		screen.SetContent(col, y, r, nil, style)
		col++
	}
}

func clip(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
