package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"integrity-responder/internal/domain"
)

// Store is the relational store for tokens, the inbox, bot settings, properties and
// tool-call correlations.
type Store struct {
	db *gorm.DB
}

// New creates a Store over an open gorm handle.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("repository: db must not be nil")
	}
	return &Store{db: db}, nil
}

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("repository: dsn must not be empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: open postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the Store uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Conversation{}, // referenced by messages, create first
		&domain.Message{},
		&domain.BotSetting{},
		&domain.AuthToken{},
		&domain.Property{},
		&domain.ToolCallListing{},
	); err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

// withConn runs fn on a single pooled connection that is released when fn returns,
// whatever the outcome.
func (s *Store) withConn(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Connection(fn)
}

// withTx is withConn inside a transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
