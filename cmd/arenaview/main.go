package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"hexarena.live/internal/battledb"
	"hexarena.live/internal/config"
	"hexarena.live/internal/hexgrid"
	"hexarena.live/internal/journal"
	"hexarena.live/internal/protocol"
	"hexarena.live/internal/stream"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to client.yaml (empty for defaults)")
		battleID   = flag.String("battle", "", "battle id to watch")
		urlT       = flag.String("url", "", "override stream url template (%s = battle id)")
		radius     = flag.Int("radius", 0, "override arena radius (1 or 2)")
		positions  = flag.String("positions", "", "optional json file mapping agent id -> {q,r}")
	)
	flag.Parse()

	// The screen owns stdout; diagnostics go to stderr.
	logger := log.New(os.Stderr, "[arenaview] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *urlT != "" {
		cfg.Stream.URLTemplate = *urlT
	}
	if *radius != 0 {
		cfg.Arena.Radius = *radius
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}
	if *battleID == "" {
		logger.Fatalf("missing -battle")
	}

	external := loadPositions(logger, *positions, cfg.Arena.Radius)

	var jw *journal.Writer
	if cfg.Journal.Enabled {
		jw = journal.NewWriter(cfg.Journal.Dir, *battleID)
		defer jw.Close()
	}
	var archive *battledb.Archive
	if cfg.Archive.Enabled {
		archive, err = battledb.Open(cfg.Archive.Path)
		if err != nil {
			logger.Fatalf("open archive: %v", err)
		}
		defer archive.Close()
	}

	m := stream.NewManager(stream.Config{
		URL: func(id string) string {
			return fmt.Sprintf(cfg.Stream.URLTemplate, id)
		},
		HandshakeTimeout: time.Duration(cfg.Stream.HandshakeTimeoutMS) * time.Millisecond,
		ReadTimeout:      time.Duration(cfg.Stream.ReadTimeoutMS) * time.Millisecond,
		BackoffBase:      time.Duration(cfg.Stream.BackoffBaseMS) * time.Millisecond,
		BackoffCap:       time.Duration(cfg.Stream.BackoffCapMS) * time.Millisecond,
		Logger:           logger,
	})
	defer m.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		logger.Fatalf("screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		logger.Fatalf("screen init: %v", err)
	}
	defer screen.Fini()

	v := newView(viewParams{
		battleID:  *battleID,
		radius:    cfg.Arena.Radius,
		hexSize:   cfg.Arena.HexSize,
		padding:   cfg.Arena.Padding,
		external:  external,
		lifetimes: cfg.EffectLifetimes(),
	})
	defer v.close()

	// Stream callbacks hop onto the UI loop through channels, so the
	// reducer and detector only ever run on this goroutine. quit unblocks
	// the delivery goroutine once the loop below has returned.
	events := make(chan protocol.Event, 256)
	connectivity := make(chan bool, 8)
	quit := make(chan struct{})
	defer close(quit)
	m.Subscribe(func(ev protocol.Event) {
		select {
		case events <- ev:
		case <-quit:
		}
	}, func(connected bool) {
		select {
		case connectivity <- connected:
		case <-quit:
		}
	})
	if jw != nil {
		m.SubscribeFrames(func(kind string, frame []byte) {
			if err := jw.Append(kind, frame); err != nil {
				logger.Printf("journal: %v", err)
			}
		})
	}

	uiEvents := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			uiEvents <- ev
		}
	}()

	m.Connect(*battleID)

	redraw := time.NewTicker(100 * time.Millisecond)
	defer redraw.Stop()

	v.draw(screen, m.Status())
	for {
		select {
		case ev := <-events:
			v.handleEvent(ev, archive)
		case connected := <-connectivity:
			v.setConnected(connected)
		case <-redraw.C:
			// Effects expire on their own clock; keep the frame fresh.
		case uiEv := <-uiEvents:
			switch uiEv := uiEv.(type) {
			case *tcell.EventKey:
				if uiEv.Key() == tcell.KeyEscape || uiEv.Key() == tcell.KeyCtrlC || uiEv.Rune() == 'q' {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
		v.draw(screen, m.Status())
	}
}

// loadPositions reads an optional external agent->hex mapping. Anything
// invalid falls back silently to deterministic default placement.
func loadPositions(logger *log.Logger, path string, radius int) map[string]hexgrid.Coord {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Printf("positions: %v (using default placement)", err)
		return nil
	}
	var raw map[string]hexgrid.Coord
	if err := json.Unmarshal(b, &raw); err != nil {
		logger.Printf("positions: %v (using default placement)", err)
		return nil
	}
	for id, c := range raw {
		if !hexgrid.InArena(c, radius) {
			logger.Printf("positions: %s at %v outside radius %d (using default placement)", id, c, radius)
			return nil
		}
	}
	return raw
}
