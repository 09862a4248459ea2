package domain

import "time"

// Listing is the normalized shape of an upstream listing. Every field is always
// populated; absent upstream values are replaced by defaults.
type Listing struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	BasePrice    float64            `json:"basePrice"`
	CleaningFee  float64            `json:"cleaningFee"`
	PetFee       float64            `json:"petFee"`
	Images       ListingImages      `json:"images"`
	Description  ListingDescription `json:"description"`
	Beds         int                `json:"beds"`
	Bathrooms    float64            `json:"bathrooms"`
	Accommodates int                `json:"accommodates"`
	Address      string             `json:"address"`
	Amenities    []string           `json:"amenities"`
	MinNights    int                `json:"minNights"`
	MaxNights    int                `json:"maxNights"`
	ExternalURL  string             `json:"externalUrl"`
}

type ListingImages struct {
	Regular   string `json:"regular"`
	Thumbnail string `json:"thumbnail"`
}

type ListingDescription struct {
	Summary      string `json:"summary"`
	Space        string `json:"space"`
	Access       string `json:"access"`
	Neighborhood string `json:"neighborhood"`
	Transit      string `json:"transit"`
	Notes        string `json:"notes"`
}

// AvailabilityQuery filters an upstream listing search. MinOccupancy is omitted
// from the request when zero.
type AvailabilityQuery struct {
	CheckIn      string
	CheckOut     string
	MinOccupancy int
}

// QuoteRequest asks the upstream for a priced offer.
type QuoteRequest struct {
	ListingID string
	CheckIn   string
	CheckOut  string
	Guests    int
	Email     string
}

// ToolCallListing records that a listing was presented for an assistant tool call.
type ToolCallListing struct {
	ToolCallID string    `gorm:"primaryKey" json:"tool_call_id"`
	ListingID  string    `gorm:"primaryKey" json:"listing_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (ToolCallListing) TableName() string { return "tool_call_listings" }
