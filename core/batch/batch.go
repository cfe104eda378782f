// Package batch reads the delivery batches handed to the planner.
//
// A batch file is YAML or JSON:
//
//	vehicle_capacity_kg: 100
//	strategy: BEST_FIT
//	depot: {name: hub, location: {lat: 45.76, lon: 4.84}}
//	deliveries:
//	  - id: order-1
//	    weight_kg: 12.5
//	    location: {lat: 45.77, lon: 4.85}
package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/routeplan/core/model"
)

// Batch is one planning request.
type Batch struct {
	VehicleCapacityKg float64 `json:"vehicle_capacity_kg" yaml:"vehicle_capacity_kg"`
	// Strategy is optional; the planner default applies when empty.
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Depot overrides the configured depot when set.
	Depot      *model.Depot         `json:"depot,omitempty" yaml:"depot,omitempty"`
	Deliveries []model.DeliveryItem `json:"deliveries" yaml:"deliveries"`
}

// ParsedStrategy returns the batch strategy, or "" when none is set.
func (b Batch) ParsedStrategy() (model.Strategy, error) {
	if strings.TrimSpace(b.Strategy) == "" {
		return "", nil
	}
	return model.ParseStrategy(b.Strategy)
}

// Load reads a batch file, choosing the decoder from the extension.
func Load(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var format string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		format = "yaml"
	case ".json":
		format = "json"
	default:
		return nil, fmt.Errorf("unsupported batch format: %s", ext)
	}
	b, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", path, err)
	}
	return b, nil
}

// Decode reads a batch from r in the given format ("yaml" or "json").
// Unknown fields are rejected so that typos do not silently drop data.
func Decode(r io.Reader, format string) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var b Batch
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil && err != io.EOF {
			return nil, err
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported batch format: %s", format)
	}
	if _, err := b.ParsedStrategy(); err != nil {
		return nil, err
	}
	return &b, nil
}
