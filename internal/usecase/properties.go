package usecase

import (
	"context"
	"errors"
	"strings"

	"integrity-responder/internal/domain"
)

type PropertyStore interface {
	GetProperty(ctx context.Context, listingID string) (domain.Property, error)
}

type PropertyService struct {
	store PropertyStore
}

func NewPropertyService(store PropertyStore) (*PropertyService, error) {
	if store == nil {
		return nil, errors.New("usecase: property store must not be nil")
	}
	return &PropertyService{store: store}, nil
}

func (s *PropertyService) Get(ctx context.Context, listingID string) (domain.Property, error) {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return domain.Property{}, newMessageError(ErrorInvalidInput, "missing_listing_id", "listing_id is required", nil)
	}
	p, err := s.store.GetProperty(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Property{}, newMessageError(ErrorNotFound, "property_not_found", "Property not found", err)
		}
		return domain.Property{}, newMessageError(ErrorInternal, "property_read_error", "Failed to fetch property", err)
	}
	return p, nil
}
