package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"hexarena.live/internal/config"
	"hexarena.live/internal/journal"
	"hexarena.live/internal/protocol"
	"hexarena.live/internal/stream"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to client.yaml (empty for defaults)")
		battleID   = flag.String("battle", "", "battle id to follow")
		urlT       = flag.String("url", "", "override stream url template (%s = battle id)")
		journalOn  = flag.Bool("journal", false, "journal raw frames to disk")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[battletail] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *urlT != "" {
		cfg.Stream.URLTemplate = *urlT
	}
	if *battleID == "" {
		logger.Fatalf("missing -battle")
	}

	var jw *journal.Writer
	if *journalOn {
		jw = journal.NewWriter(cfg.Journal.Dir, *battleID)
		defer jw.Close()
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

	m.Subscribe(func(ev protocol.Event) {
		switch ev := ev.(type) {
		case protocol.EpochStart:
			logger.Printf("epoch_start epoch=%d assets=%d", ev.EpochNumber, len(ev.Market.Prices))
		case protocol.EpochEnd:
			alive := 0
			for _, a := range ev.Agents {
				if a.Normalized().Alive {
					alive++
				}
			}
			logger.Printf("epoch_end agents=%d alive=%d", len(ev.Agents), alive)
		case protocol.BattleEnd:
			logger.Printf("battle_end winner=%s (%s) epochs=%d", ev.WinnerID, ev.WinnerName, ev.TotalEpochs)
		case protocol.Notice:
			logger.Printf("%s agent=%s epoch=%d %s", ev.Kind, ev.AgentID, ev.Epoch, ev.Message)
		case protocol.Unknown:
			logger.Printf("unknown kind=%q (%d bytes)", ev.Kind, len(ev.Raw))
		}
	}, func(connected bool) {
		logger.Printf("connectivity: %v", connected)
	})

	if jw != nil {
		m.SubscribeFrames(func(kind string, frame []byte) {
			if err := jw.Append(kind, frame); err != nil {
				logger.Printf("journal: %v", err)
			}
		})
	}

	m.Connect(*battleID)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	logger.Printf("bye")
}
