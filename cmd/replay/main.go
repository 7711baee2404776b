// Command replay lists the replays stored by the server and re-plays them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hersh/tetriscore/internal/config"
	"github.com/hersh/tetriscore/internal/game"
	"github.com/hersh/tetriscore/internal/replay"
	"github.com/hersh/tetriscore/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dbPath := flag.String("db", cfg.DBPath, "Replay database")
	limit := flag.Int("list", 10, "Number of best replays to list")
	show := flag.Int64("show", 0, "Replay id to re-play and print")
	flag.Parse()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *show > 0 {
		err = showReplay(ctx, store, *show)
	} else {
		err = listReplays(ctx, store, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func listReplays(ctx context.Context, store *sqlite.Store, limit int) error {
	records, err := store.ListReplays(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no replays stored")
		return nil
	}
	fmt.Printf("%-5s %-16s %-8s %8s %6s %6s %10s  %s\n", "ID", "PLAYER", "RULES", "SCORE", "LINES", "PIECES", "TIME", "RESULT")
	for _, rec := range records {
		s := rec.Summary
		fmt.Printf("%-5d %-16s %-8s %8d %6d %6d %10s  %s\n",
			rec.ID, rec.Player, s.Engine, s.Score, s.Lines, s.Pieces, s.Duration.Round(time.Millisecond), s.TopOut)
	}
	return nil
}

func showReplay(ctx context.Context, store *sqlite.Store, id int64) error {
	rec, l, err := store.GetReplay(ctx, id)
	if err != nil {
		return err
	}
	g, err := replay.PlayPreset(l)
	if err != nil {
		return err
	}
	got := replay.Summarize(g)

	fmt.Printf("replay %d by %s on %s\n", rec.ID, rec.Player, rec.CreatedAt.Format(time.RFC3339))
	fmt.Printf("rules %s, seed %d, %d entries, %d calls\n", got.Engine, got.Seed, len(l.Entries), l.Calls())
	fmt.Printf("score %d, lines %d, level %d, pieces %d, %s\n", got.Score, got.Lines, got.Level, got.Pieces, got.TopOut)
	if got != rec.Summary {
		fmt.Printf("warning: stored summary %+v does not match the re-play\n", rec.Summary)
	}

	board := g.Board()
	fmt.Println(board)
	var active *game.Piece
	if p, ok := g.Piece(); ok {
		active = &p
	}
	fmt.Printf("board code: %s\n", game.EncodeString(board, active))
	return nil
}
