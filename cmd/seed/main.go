// Seed loads data/users.csv and data/connections.csv into the graph store.
// Both loads are idempotent: re-running against an already-seeded database
// changes nothing.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/buddybloom/buddybloom/config"
	"github.com/buddybloom/buddybloom/internal/domain/entity"
	"github.com/buddybloom/buddybloom/internal/domain/repository"
	neo4jstore "github.com/buddybloom/buddybloom/internal/infrastructure/neo4j"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	fmt.Printf("Connecting to %s...\n", cfg.Neo4jURI)
	store, err := neo4jstore.NewStore(ctx, cfg.Neo4jURI, cfg.Neo4jUsername, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		log.Fatalf("connection failed: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()

	if err := store.EnsureConstraints(ctx); err != nil {
		log.Fatalf("failed to ensure constraints: %v", err)
	}

	fmt.Println("\n--- Loading Users ---")
	users, err := loadUsers(ctx, store, cfg.SeedUsersCSV)
	if err != nil {
		log.Fatalf("loading users: %v", err)
	}
	fmt.Printf("Successfully loaded %d users.\n", users)

	fmt.Println("\n--- Loading Connections ---")
	edges, skipped, err := loadConnections(ctx, store, cfg.SeedConnectionsCSV)
	if err != nil {
		log.Fatalf("loading connections: %v", err)
	}
	fmt.Printf("Successfully loaded %d connections (%d skipped).\n", edges, skipped)
}

func loadUsers(ctx context.Context, store repository.GraphStore, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}
	count := 0
	for i, row := range rows {
		id := row["userId"]
		if id == "" {
			id = uuid.NewString()
		}
		u := &entity.User{
			ID:           id,
			Username:     row["username"],
			Name:         row["name"],
			Email:        row["email"],
			Bio:          row["bio"],
			PasswordHash: row["passwordHash"],
		}
		if u.Username == "" {
			fmt.Printf("  skipping row %d: missing username\n", i+2)
			continue
		}
		if _, _, err := store.UpsertUser(ctx, u); err != nil {
			return count, fmt.Errorf("row %d (%s): %w", i+2, u.Username, err)
		}
		count++
		if count%1000 == 0 {
			fmt.Printf("  ...%d users\n", count)
		}
	}
	return count, nil
}

// loadConnections creates edges through the same atomic primitive the
// follow engine uses, so the denormalized counters come out exact without
// a recount pass.
func loadConnections(ctx context.Context, store repository.GraphStore, path string) (created, skipped int, err error) {
	rows, err := readCSV(path)
	if err != nil {
		return 0, 0, err
	}
	for i, row := range rows {
		follower := row["follower_username"]
		followee := row["followee_username"]
		if follower == "" || followee == "" || follower == followee {
			skipped++
			continue
		}
		outcome, err := store.UpsertFollow(ctx, follower, followee)
		if err != nil {
			return created, skipped, fmt.Errorf("row %d (%s -> %s): %w", i+2, follower, followee, err)
		}
		switch outcome {
		case repository.FollowCreated:
			created++
		default:
			skipped++
		}
		if (created+skipped)%1000 == 0 {
			fmt.Printf("  ...%d connections\n", created+skipped)
		}
	}
	return created, skipped, nil
}

// readCSV returns each data row as a header-keyed map.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
