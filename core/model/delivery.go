package model

import (
	"math"
	"strings"
)

// DeliveryItem is a single weighted stop to be delivered. Items are treated as
// immutable once handed to the planner.
type DeliveryItem struct {
	ID       string   `json:"id" yaml:"id"`
	WeightKg float64  `json:"weight_kg" yaml:"weight_kg"`
	Location Location `json:"location" yaml:"location"`
	// Refs carries opaque caller fields (order number, address, customer...)
	// through the planner unchanged.
	Refs map[string]string `json:"refs,omitempty" yaml:"refs,omitempty"`
}

// Validate checks the identifier, weight and coordinates of the item.
func (d DeliveryItem) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return &InvalidInputError{Field: "id", Value: d.ID, Reason: "must be non-empty"}
	}
	if math.IsNaN(d.WeightKg) || math.IsInf(d.WeightKg, 0) || d.WeightKg <= 0 {
		return &InvalidInputError{Field: "weight_kg", Value: d.WeightKg, Reason: "item " + d.ID + " must weigh more than zero"}
	}
	if !d.Location.Valid() {
		return &InvalidCoordinateError{ItemID: d.ID, Lat: d.Location.Lat, Lon: d.Location.Lon}
	}
	return nil
}

// ValidateItems validates every item and rejects duplicate identifiers.
// The first failure is returned.
func ValidateItems(items []DeliveryItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
		if _, ok := seen[it.ID]; ok {
			return &InvalidInputError{Field: "id", Value: it.ID, Reason: "duplicate item id"}
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// TotalWeight sums the weight of the given items.
func TotalWeight(items []DeliveryItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.WeightKg
	}
	return sum
}
