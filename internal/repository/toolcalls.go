package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"integrity-responder/internal/domain"
)

// RecordToolCallListings inserts the rows, skipping any (tool_call_id, listing_id)
// pair that already exists.
func (s *Store) RecordToolCallListings(ctx context.Context, rows []domain.ToolCallListing) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.withConn(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("repository: RecordToolCallListings: %w", err)
	}
	return nil
}
