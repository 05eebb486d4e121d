package main

import (
	"log"
	"os"

	"santiye/internal/database"
)

// Removes sub-documents whose parent project no longer exists. Cascading
// deletes normally handle this; the sweep covers rows left behind by
// partial failures or manual edits. Postgres only.
func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	var total int64
	for _, collection := range []string{"tenders", "contracts", "progress_payments", "payment_statuses", "deductions"} {
		res := db.Exec(`DELETE FROM documents
			WHERE collection = ?
			  AND data::jsonb ->> 'projectId' NOT IN (
				SELECT id FROM documents WHERE collection = 'projects'
			  )`, collection)
		if res.Error != nil {
			log.Fatalf("cleanup %s failed: %v", collection, res.Error)
		}
		total += res.RowsAffected
	}

	log.Printf("orphan cleanup completed: removed=%d", total)
}
