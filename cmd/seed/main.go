package main

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"santiye/internal/config"
	"santiye/internal/database"
	"santiye/internal/docstore"
	"santiye/internal/domain"
	"santiye/internal/events"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	store, err := docstore.Open(db, events.NewBus(), domain.Rules())
	if err != nil {
		log.Fatal("store open failed:", err)
	}
	defer store.Close()

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM documents")

	ctx := context.Background()
	sys := docstore.System()

	// ================== USERS ==================
	log.Println("Creating admin...")

	adminEmail := "admin@santiye.com"
	if err := store.Set(ctx, sys, domain.CollectionUsersByEmail, adminEmail, docstore.Document{
		"email": adminEmail,
		"role":  domain.RoleAdmin,
	}); err != nil {
		log.Fatal(err)
	}

	adminHash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	adminDoc, err := store.Create(ctx, sys, domain.CollectionUsers, docstore.Document{
		"email":        adminEmail,
		"name":         "Yönetici",
		"role":         domain.RoleAdmin,
		"passwordHash": string(adminHash),
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Admin created: admin@santiye.com / admin123")

	// ================== ALLOWLIST ==================
	log.Println("Allowlisting sample engineer...")

	engineerEmail := "muhendis@santiye.com"
	if err := store.Set(ctx, sys, domain.CollectionUsersByEmail, engineerEmail, docstore.Document{
		"email": engineerEmail,
		"role":  domain.RoleUser,
	}); err != nil {
		log.Fatal(err)
	}

	// ================== SAMPLE PROJECT ==================
	log.Println("Creating sample project...")

	project, err := store.Create(ctx, sys, domain.CollectionProjects, docstore.Document{
		"name":    "Örnek Konut Projesi",
		"ownerId": adminDoc.ID(),
	})
	if err != nil {
		log.Fatal(err)
	}

	contractDoc, err := store.Create(ctx, sys, domain.CollectionContracts, docstore.Document{
		"projectId": project.ID(),
		"ownerId":   adminDoc.ID(),
		"name":      "Kaba inşaat sözleşmesi",
		"group":     "Yapım işleri",
		"status":    domain.ContractDraft,
		"items": []any{
			map[string]any{
				"poz":         "15.001",
				"description": "Kazı işleri",
				"unit":        "m3",
				"quantity":    1200.0,
				"unitPrice":   85.5,
			},
			map[string]any{
				"poz":         "16.002",
				"description": "Beton dökümü C30",
				"unit":        "m3",
				"quantity":    800.0,
				"unitPrice":   2150.0,
			},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	_, err = store.Create(ctx, sys, domain.CollectionTenders, docstore.Document{
		"projectId": project.ID(),
		"ownerId":   adminDoc.ID(),
		"name":      "Kaba inşaat ihalesi",
		"stage":     domain.TenderAnnounced,
		"notes":     "Temel ve kaba yapı işleri",
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Done. project=%s contract=%s", project.ID(), contractDoc.ID())
}
