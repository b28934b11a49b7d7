package db

import (
	"fmt"
	"log"

	"barista/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; starting in no-db mode.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

// Migrate creates or updates the drinks table. Safe to run on every start.
func (s *Store) Migrate() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.AutoMigrate(&DrinkModel{})
}

// Reset drops the drinks table and recreates it empty. Destructive; callers
// must opt in explicitly (DB_RESET).
func (s *Store) Reset() error {
	if s.DB == nil {
		return nil
	}
	if err := s.DB.Migrator().DropTable(&DrinkModel{}); err != nil {
		return err
	}
	return s.DB.AutoMigrate(&DrinkModel{})
}
