package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"integrity-responder/internal/domain"
)

// LatestToken returns the most recently created token, or domain.ErrNotFound.
// Expiry is not checked here.
func (s *Store) LatestToken(ctx context.Context) (domain.AuthToken, error) {
	var tok domain.AuthToken
	err := s.withConn(ctx, func(tx *gorm.DB) error {
		return tx.Order("created_at DESC").Order("id DESC").Take(&tok).Error
	})
	if notFound(err) {
		return domain.AuthToken{}, fmt.Errorf("repository: LatestToken: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.AuthToken{}, fmt.Errorf("repository: LatestToken: %w", err)
	}
	return tok, nil
}

// ReplaceToken deletes every stored token and inserts tok, in one transaction.
func (s *Store) ReplaceToken(ctx context.Context, tok domain.AuthToken) error {
	if tok.Token == "" {
		return errors.New("repository: ReplaceToken: token is required")
	}
	tok.ID = 0
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.AuthToken{}).Error; err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if err := tx.Create(&tok).Error; err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("repository: ReplaceToken: %w", err)
	}
	return nil
}
