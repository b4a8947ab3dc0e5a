// seed_workers.go loads a JSON roster file into the workers table and
// announces the change so running services drop their cached roster.
//
// Usage:
//
//	go run scripts/seed_workers.go -file workers.json -db postgres://localhost/crewmatch -nats nats://localhost:4222
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/MikeSquared-Agency/CrewMatch/internal/hermes"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

func main() {
	file := flag.String("file", "workers.json", "path to a JSON array of workers")
	dbURL := flag.String("db", os.Getenv("CREWMATCH_DATABASE_URL"), "Postgres URL")
	natsURL := flag.String("nats", os.Getenv("CREWMATCH_HERMES_URL"), "NATS URL (optional)")
	migrate := flag.Bool("migrate", false, "apply the schema first")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	flag.Parse()

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read roster: %v", err)
	}
	var workers []store.Worker
	if err := json.Unmarshal(raw, &workers); err != nil {
		log.Fatalf("parse roster: %v", err)
	}

	seen := make(map[string]bool, len(workers))
	for i, w := range workers {
		if w.ID == "" {
			log.Fatalf("worker %d: user_id is required", i)
		}
		if seen[w.ID] {
			log.Fatalf("worker %d: duplicate user_id %q", i, w.ID)
		}
		seen[w.ID] = true
	}
	log.Printf("parsed %d workers from %s", len(workers), *file)
	if *dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.NewPostgresStore(ctx, *dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if *migrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	if err := db.UpsertWorkers(ctx, workers); err != nil {
		log.Fatalf("upsert workers: %v", err)
	}
	log.Printf("upserted %d workers", len(workers))

	if *natsURL == "" {
		return
	}
	hc, err := hermes.NewNATSClient(ctx, *natsURL, slog.Default())
	if err != nil {
		log.Printf("skipping roster announcement: %v", err)
		return
	}
	defer hc.Close()

	ev := hermes.RosterUpdatedEvent{Timestamp: time.Now().UTC()}
	for _, w := range workers {
		ev.WorkerIDs = append(ev.WorkerIDs, w.ID)
	}
	if err := hc.Publish(ctx, hermes.SubjectRosterUpdated, ev); err != nil {
		log.Printf("publish roster update: %v", err)
	}
}
