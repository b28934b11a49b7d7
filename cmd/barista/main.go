package main

import (
	"log"

	"barista/internal/config"
	"barista/internal/infra/db"
	httpinfra "barista/internal/infra/http"
)

func main() {
	cfg := config.FromEnv()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	if cfg.DBReset {
		log.Printf("DB_RESET set; dropping and recreating the drinks table")
		if err := store.Reset(); err != nil {
			log.Fatalf("failed to reset store: %v", err)
		}
	} else if err := store.Migrate(); err != nil {
		log.Fatalf("failed to migrate store: %v", err)
	}

	srv := httpinfra.NewServer(cfg, store)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
