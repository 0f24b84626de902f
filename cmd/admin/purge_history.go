package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	olderThan := flag.Duration("older-than", 30*24*time.Hour, "Delete batch runs finished before this age")
	flag.Parse()

	_ = godotenv.Load()

	connStr := os.Getenv("DOCPRESS_DATABASE_URL")
	if connStr == "" {
		fmt.Fprintln(os.Stderr, "DOCPRESS_DATABASE_URL is not set")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	cutoff := time.Now().Add(-*olderThan)
	res, err := db.Exec(`DELETE FROM batch_runs WHERE finished_at < $1`, cutoff)
	if err != nil {
		panic(err)
	}

	n, _ := res.RowsAffected()
	fmt.Printf("Purged %d batch runs finished before %s\n", n, cutoff.Format(time.RFC3339))
}
