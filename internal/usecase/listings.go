package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/samber/lo"

	"integrity-responder/internal/domain"
)

type ListingClient interface {
	SearchListings(ctx context.Context, token string, q domain.AvailabilityQuery) ([]domain.Listing, error)
	CreateQuote(ctx context.Context, token string, q domain.QuoteRequest) (json.RawMessage, error)
}

type AccessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// AvailabilityParams asks which listings are free for a stay. Guests is optional.
type AvailabilityParams struct {
	CheckIn  string `json:"checkInDate" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"checkOutDate" validate:"required,datetime=2006-01-02"`
	Guests   int    `json:"guestsCount" validate:"gte=0"`
}

// QuoteParams asks for a priced offer. Every field is required; Guests is a
// pointer so an explicit zero is reported as invalid rather than missing.
type QuoteParams struct {
	ListingID string `json:"listingId" validate:"required"`
	CheckIn   string `json:"checkInDate" validate:"required,datetime=2006-01-02"`
	CheckOut  string `json:"checkOutDate" validate:"required,datetime=2006-01-02"`
	Guests    *int   `json:"guestsCount" validate:"required,gte=1"`
	Email     string `json:"email" validate:"required"`
}

type ListingService struct {
	tokens AccessTokenSource
	client ListingClient
}

func NewListingService(tokens AccessTokenSource, client ListingClient) (*ListingService, error) {
	if tokens == nil {
		return nil, errors.New("usecase: token source must not be nil")
	}
	if client == nil {
		return nil, errors.New("usecase: listing client must not be nil")
	}
	return &ListingService{tokens: tokens, client: client}, nil
}

func (s *ListingService) SearchAvailability(ctx context.Context, p AvailabilityParams) ([]domain.Listing, error) {
	if err := validateParams(p); err != nil {
		return nil, err
	}
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, asError(err, ErrorInternal, "token_read_error")
	}

	listings, err := s.client.SearchListings(ctx, token, domain.AvailabilityQuery{
		CheckIn:      p.CheckIn,
		CheckOut:     p.CheckOut,
		MinOccupancy: p.Guests,
	})
	if err != nil {
		msg := lo.CoalesceOrEmpty(upstreamMessage(err), "Failed to fetch availability from Guesty")
		return nil, newMessageError(ErrorUpstream, "guesty_listings_error", msg, err)
	}
	if listings == nil {
		listings = []domain.Listing{}
	}
	return listings, nil
}

func (s *ListingService) CreateQuote(ctx context.Context, p QuoteParams) (json.RawMessage, error) {
	if err := validateParams(p); err != nil {
		return nil, err
	}
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, asError(err, ErrorInternal, "token_read_error")
	}

	quote, err := s.client.CreateQuote(ctx, token, domain.QuoteRequest{
		ListingID: p.ListingID,
		CheckIn:   p.CheckIn,
		CheckOut:  p.CheckOut,
		Guests:    lo.FromPtr(p.Guests),
		Email:     p.Email,
	})
	if err != nil {
		msg := lo.CoalesceOrEmpty(upstreamMessage(err), "Failed to create quote on Guesty")
		return nil, newMessageError(ErrorUpstream, "guesty_quote_error", msg, err)
	}
	return quote, nil
}
