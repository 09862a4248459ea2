package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"integrity-responder/internal/domain"
)

// GetProperty returns the mirrored property for a listing, or domain.ErrNotFound.
func (s *Store) GetProperty(ctx context.Context, listingID string) (domain.Property, error) {
	var p domain.Property
	err := s.withConn(ctx, func(tx *gorm.DB) error {
		return tx.Where("listing_id = ?", listingID).Take(&p).Error
	})
	if notFound(err) {
		return domain.Property{}, fmt.Errorf("repository: GetProperty: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("repository: GetProperty: %w", err)
	}
	return p, nil
}
