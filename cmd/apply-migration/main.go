package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"

	"povertyline/internal/config"
	"povertyline/pkg/database"
)

// Applies every migrations/*.sql file in lexical order, or a single file when
// given as an argument.
func main() {
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	var files []string
	if len(os.Args) > 1 {
		files = os.Args[1:]
	} else {
		files, err = filepath.Glob("migrations/*.sql")
		if err != nil || len(files) == 0 {
			log.Fatalf("No migration files found: %v", err)
		}
		sort.Strings(files)
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", file, err)
		}

		fmt.Printf("Applying %s...\n", file)
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatalf("Failed to apply %s: %v", file, err)
		}
		fmt.Printf("Applied %s\n", file)
	}

	fmt.Println("Migration completed successfully")
}
