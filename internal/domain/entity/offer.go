package entity

import (
	"encoding/base64"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for offer dates.
const DateLayout = "2006-01-02"

// Offer represents one flight deal extracted from a notification email.
// An offer is immutable once built; it is inserted at most once and never
// updated or deleted.
type Offer struct {
	ID            string    `json:"-" bson:"_id,omitempty"`
	Source        string    `json:"source" bson:"source"`
	Origin        string    `json:"origin" bson:"origin"`
	Destination   string    `json:"destination" bson:"destination"`
	DepartureDate string    `json:"departure_date" bson:"departureDate"`
	ArrivalDate   string    `json:"arrival_date" bson:"arrivalDate"`
	Airline       string    `json:"airline" bson:"airline"`
	AirlineCode   string    `json:"airline_code,omitempty" bson:"airlineCode,omitempty"`
	Price         int       `json:"price" bson:"price"`
	Link          string    `json:"link,omitempty" bson:"link,omitempty"`
	Direct        bool      `json:"direct" bson:"direct"`
	IsSpecialDeal bool      `json:"is_special_deal" bson:"isSpecialDeal"`
	HashKey       string    `json:"hash_key" bson:"hashKey"`
	CreatedAt     time.Time `json:"created_at,omitempty" bson:"createdAt"`
}

// ComputeHashKey derives the dedup identity from the offer's semantic fields:
// origin, destination, departure date, arrival date, airline and price,
// concatenated in that order and base64-encoded. Link, direct and deal flags
// do not participate, so formatting differences between two emails carrying
// the same itinerary collapse to the same key.
func (o *Offer) ComputeHashKey() string {
	input := fmt.Sprintf("%s%s%s%s%s%d",
		o.Origin, o.Destination, o.DepartureDate, o.ArrivalDate, o.Airline, o.Price)
	return base64.StdEncoding.EncodeToString([]byte(input))
}
