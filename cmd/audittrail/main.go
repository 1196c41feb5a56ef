package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/MantisClone/df-py/internal/storage"
)

// Reads a settlement audit log back out of SQLite and prints it in
// log order, one line per event. Useful for inspecting what a demo or
// deployment actually settled.

func main() {
	dbPath := flag.String("db", "_workspace/data/audit.db", "path to the audit database")
	fromSeq := flag.Uint64("from", 0, "first sequence number to print")
	flag.Parse()

	if err := run(*dbPath, *fromSeq); err != nil {
		slog.Error("audit trail read failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(dbPath string, fromSeq uint64) error {
	store, err := storage.NewAuditStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	events, err := store.LoadEvents(ctx, fromSeq)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	for _, ev := range events {
		fmt.Printf("%6d  %-24s  call=%s  %s\n", ev.Seq, ev.Type, shortID(ev.CallID), compact(ev.Payload))
	}

	last, err := store.LastSeq(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d events, last seq %d\n", len(events), last)
	return nil
}

// compact re-encodes the stored payload without the base fields, which
// the line prefix already shows.
func compact(payload []byte) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return string(payload)
	}
	delete(m, "seq")
	delete(m, "ts")
	delete(m, "call_id")
	out, err := json.Marshal(m)
	if err != nil {
		return string(payload)
	}
	return string(out)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
