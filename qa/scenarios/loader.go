// Package scenarios runs end-to-end planning scenarios described in YAML.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/routeplan/core/model"
)

// StopDef is a delivery given as id, weight and coordinates.
type StopDef struct {
	ID       string  `yaml:"id"`
	WeightKg float64 `yaml:"weight_kg"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
}

func (s StopDef) ToModel() model.DeliveryItem {
	return model.DeliveryItem{ID: s.ID, WeightKg: s.WeightKg, Location: model.Location{Lat: s.Lat, Lon: s.Lon}}
}

// Expected lists the checks applied to the resulting plan. Zero-valued
// optional fields are not checked.
type Expected struct {
	Bins int `yaml:"bins"`
	// BinItems lists the item ids of each bin, in bin order, compared as sets.
	BinItems [][]string `yaml:"bin_items,omitempty"`
	// VisitOrder lists the stop ids of each route in visiting order.
	VisitOrder      [][]string `yaml:"visit_order,omitempty"`
	TotalDistanceKm *float64   `yaml:"total_distance_km,omitempty"`
	TotalMinutes    *int       `yaml:"total_minutes,omitempty"`
	Overloaded      int        `yaml:"overloaded"`
	Unassigned      int        `yaml:"unassigned"`
}

type Scenario struct {
	Name              string    `yaml:"name"`
	Description       string    `yaml:"description,omitempty"`
	Depot             StopDef   `yaml:"depot"`
	VehicleCapacityKg float64   `yaml:"vehicle_capacity_kg"`
	SafetyMargin      float64   `yaml:"safety_margin"`
	Strategy          string    `yaml:"strategy"`
	Deliveries        []StopDef `yaml:"deliveries"`
	Expected          Expected  `yaml:"expected"`
}

// Items converts the deliveries to model items.
func (s Scenario) Items() []model.DeliveryItem {
	items := make([]model.DeliveryItem, len(s.Deliveries))
	for i, d := range s.Deliveries {
		items[i] = d.ToModel()
	}
	return items
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
