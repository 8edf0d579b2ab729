package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ysatyam-3107/studentsync/go/internal/dbconfig"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

func main() {
	reset := flag.Bool("reset", false, "drop all shared state before applying the schema")
	flag.Parse()

	// 1) Load .env if present
	_ = godotenv.Load()

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ping %s@%s/%s: %v\n", cfg.User, cfg.Host, cfg.Database, err)
		os.Exit(1)
	}

	// 3) Optionally wipe, then apply
	if *reset {
		if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS shared_state`); err != nil {
			fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Dropped shared_state")
	}

	if _, err := pool.Exec(ctx, store.PostgresSchema); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}

	var rows int64
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM shared_state`).Scan(&rows); err != nil {
		fmt.Fprintf(os.Stderr, "count rows: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Migration complete: shared_state ready on %s, %d rows\n", cfg.Database, rows)
}
