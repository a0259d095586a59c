package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"hexarena.live/internal/arena"
	"hexarena.live/internal/journal"
	"hexarena.live/internal/protocol"
)

// replay re-folds a journaled battle through the reducer and prints the
// final derived state, as a consistency check on recorded feeds.
func main() {
	var (
		dir      = flag.String("journal", "./data/journal", "journal directory")
		battleID = flag.String("battle", "", "battle id to replay")
	)
	flag.Parse()

	if *battleID == "" {
		fmt.Fprintln(os.Stderr, "missing -battle")
		os.Exit(2)
	}

	files, err := journal.ListFiles(*dir, *battleID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files for", *battleID, "in", *dir)
		os.Exit(1)
	}

	r := arena.NewReducer()
	kinds := map[string]int{}
	var frames, badFrames int

	for _, path := range files {
		recs, err := journal.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read journal:", err)
			os.Exit(1)
		}
		for _, rec := range recs {
			frames++
			kinds[rec.Kind]++
			ev, err := protocol.Decode(rec.Frame)
			if err != nil {
				badFrames++
				continue
			}
			r.Reduce(ev)
		}
	}

	state := r.State()
	fmt.Printf("battle %s: %d frames across %d files (%d undecodable)\n",
		*battleID, frames, len(files), badFrames)
	fmt.Printf("final epoch %d, %d agents, %d events retained in history\n",
		state.LatestEpoch, len(state.Agents), r.History().Len())
	names := make([]string, 0, len(kinds))
	for kind := range kinds {
		names = append(names, kind)
	}
	sort.Strings(names)
	for _, kind := range names {
		fmt.Printf("  %-20s %d\n", kind, kinds[kind])
	}
	if state.Winner != nil {
		fmt.Printf("winner: %s (%s) after %d epochs\n",
			state.Winner.Name, state.Winner.ID, state.Winner.TotalEpochs)
	} else {
		fmt.Println("battle unfinished: no winner recorded")
	}
}
