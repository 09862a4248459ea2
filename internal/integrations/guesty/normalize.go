package guesty

import (
	"github.com/samber/lo"

	"integrity-responder/internal/domain"
)

const (
	defaultMinNights = 1
	defaultMaxNights = 365
)

// rawListing is the subset of the upstream listing document we read. Nested
// objects decode to zero values when absent.
type rawListing struct {
	ID      string `json:"_id"`
	Title   string `json:"title"`
	Prices  struct {
		BasePrice   float64 `json:"basePrice"`
		CleaningFee float64 `json:"cleaningFee"`
		PetFee      float64 `json:"petFee"`
	} `json:"prices"`
	Picture struct {
		Regular   string `json:"regular"`
		Thumbnail string `json:"thumbnail"`
	} `json:"picture"`
	PublicDescription struct {
		Summary      string `json:"summary"`
		Space        string `json:"space"`
		Access       string `json:"access"`
		Neighborhood string `json:"neighborhood"`
		Transit      string `json:"transit"`
		Notes        string `json:"notes"`
	} `json:"publicDescription"`
	Beds         int     `json:"beds"`
	Bathrooms    float64 `json:"bathrooms"`
	Accommodates int     `json:"accommodates"`
	Address      struct {
		Full string `json:"full"`
	} `json:"address"`
	Amenities []string `json:"amenities"`
	Terms     struct {
		MinNights int `json:"minNights"`
		MaxNights int `json:"maxNights"`
	} `json:"terms"`
	Integrations []struct {
		ExternalURL string `json:"externalUrl"`
	} `json:"integrations"`
}

func normalizeListings(raw []rawListing) []domain.Listing {
	return lo.Map(raw, func(r rawListing, _ int) domain.Listing {
		return normalizeListing(r)
	})
}

func normalizeListing(r rawListing) domain.Listing {
	amenities := r.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	externalURL := ""
	if first, ok := lo.First(r.Integrations); ok {
		externalURL = first.ExternalURL
	}
	return domain.Listing{
		ID:          r.ID,
		Title:       r.Title,
		BasePrice:   r.Prices.BasePrice,
		CleaningFee: r.Prices.CleaningFee,
		PetFee:      r.Prices.PetFee,
		Images: domain.ListingImages{
			Regular:   r.Picture.Regular,
			Thumbnail: r.Picture.Thumbnail,
		},
		Description: domain.ListingDescription{
			Summary:      r.PublicDescription.Summary,
			Space:        r.PublicDescription.Space,
			Access:       r.PublicDescription.Access,
			Neighborhood: r.PublicDescription.Neighborhood,
			Transit:      r.PublicDescription.Transit,
			Notes:        r.PublicDescription.Notes,
		},
		Beds:         r.Beds,
		Bathrooms:    r.Bathrooms,
		Accommodates: r.Accommodates,
		Address:      r.Address.Full,
		Amenities:    amenities,
		MinNights:    lo.CoalesceOrEmpty(r.Terms.MinNights, defaultMinNights),
		MaxNights:    lo.CoalesceOrEmpty(r.Terms.MaxNights, defaultMaxNights),
		ExternalURL:  externalURL,
	}
}
