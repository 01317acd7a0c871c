package main

import (
	"database/sql"
	"embed"
	"log"
	"os"
	"sort"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		log.Fatalf("Failed to list migrations: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	// Every statement is idempotent, so migrations are simply re-applied in order
	for _, name := range names {
		content, err := migrations.ReadFile("migrations/" + name)
		if err != nil {
			log.Fatalf("Failed to read migration %s: %v", name, err)
		}

		log.Printf("Running migration %s...", name)
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatalf("Migration %s failed: %v", name, err)
		}
	}

	log.Println("Migrations applied successfully!")
}
