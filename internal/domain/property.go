package domain

import "time"

// Property is the locally mirrored description of a listing.
type Property struct {
	ListingID               string    `gorm:"primaryKey" json:"listing_id"`
	Title                   string    `json:"title"`
	Address                 string    `json:"address"`
	Neighborhood            string    `json:"neighborhood"`
	ZipCode                 string    `json:"zip_code"`
	DescriptionSpace        string    `json:"description_space"`
	DescriptionAccess       string    `json:"description_access"`
	DescriptionNeighborhood string    `json:"description_neighborhood"`
	DescriptionTransit      string    `json:"description_transit"`
	DescriptionNotes        string    `json:"description_notes"`
	DescriptionInteraction  string    `json:"description_interaction"`
	CreatedAt               time.Time `json:"created_at"`
}

func (Property) TableName() string { return "properties" }
