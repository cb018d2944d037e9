package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"quizbank-backend/config"
	"quizbank-backend/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	drop := flag.Bool("drop", false, "drop existing tables first (development only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	// Drop tables if requested, children first
	if *drop {
		for i := len(repository.PostgresTables) - 1; i >= 0; i-- {
			name := repository.PostgresTables[i].Name
			if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+name+" CASCADE"); err != nil {
				log.Fatalf("Failed to drop table %s: %v", name, err)
			}
			log.Printf("✓ Dropped existing %s table (if any)", name)
		}
	}

	for _, table := range repository.PostgresTables {
		if _, err := pool.Exec(ctx, table.SQL); err != nil {
			log.Fatalf("Failed to create %s table: %v", table.Name, err)
		}
		log.Printf("✓ Created %s table", table.Name)
	}

	created := 0
	for _, idx := range repository.PostgresIndexes {
		if _, err := pool.Exec(ctx, idx.SQL); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.Name, err)
		} else {
			created++
			log.Printf("✓ Created index: %s", idx.Name)
		}
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Printf("   Tables: %d\n", len(repository.PostgresTables))
	fmt.Printf("   Indexes: %d of %d created\n", created, len(repository.PostgresIndexes))
}
