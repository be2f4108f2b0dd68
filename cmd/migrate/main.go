package main

import (
	"database/sql"
	"fmt"
	"log"

	"opinion-market/internal/config"
	"opinion-market/internal/database"

	_ "github.com/lib/pq"
)

// Standalone migration runner. Creates the target database if it does not
// exist, then applies the schema.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := ensureDatabase(cfg); err != nil {
		log.Fatalf("Failed to ensure database exists: %v", err)
	}

	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Applying schema migrations...")
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("Migrations applied successfully")
}

// ensureDatabase connects to the maintenance database and creates the
// application database if missing.
func ensureDatabase(cfg *config.Config) error {
	adminDSN := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=postgres sslmode=disable",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
	)

	db, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	var exists bool
	err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Database.DBName).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	log.Printf("Creating database %s", cfg.Database.DBName)
	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE %q", cfg.Database.DBName))
	return err
}
