// Package grading maps percentage scores onto letter grades through
// configurable band tables. Scales are pure data: grading a percentage has
// no side effects and no error cases.
package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Band binds a letter grade to the minimum percentage that earns it.
type Band struct {
	Grade      string  `json:"grade"`
	MinPercent float64 `json:"min_percent"`
}

// Scale is an ordered band table. Bands are kept sorted by MinPercent
// descending so grading is a single forward scan; the last band acts as the
// floor for every percentage below the lowest threshold.
type Scale struct {
	Name  string `json:"name"`
	Bands []Band `json:"bands"`
}

// Grade resolves the letter grade for a percentage. Total and monotonic:
// a higher percentage never maps to a lower band.
func (s Scale) Grade(percentage float64) string {
	for _, band := range s.Bands {
		if percentage >= band.MinPercent {
			return band.Grade
		}
	}
	if len(s.Bands) == 0 {
		return ""
	}
	return s.Bands[len(s.Bands)-1].Grade
}

// Validate checks that the scale has at least two bands, unique grades and
// strictly descending thresholds ending at zero.
func (s Scale) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scale name must not be empty")
	}
	if len(s.Bands) < 2 {
		return fmt.Errorf("scale %q needs at least two bands", s.Name)
	}

	seen := make(map[string]struct{}, len(s.Bands))
	for i, band := range s.Bands {
		if strings.TrimSpace(band.Grade) == "" {
			return fmt.Errorf("scale %q: band %d has an empty grade", s.Name, i)
		}
		if _, ok := seen[band.Grade]; ok {
			return fmt.Errorf("scale %q: duplicate grade %q", s.Name, band.Grade)
		}
		seen[band.Grade] = struct{}{}

		if i > 0 && band.MinPercent >= s.Bands[i-1].MinPercent {
			return fmt.Errorf("scale %q: thresholds must be strictly descending", s.Name)
		}
	}

	if s.Bands[len(s.Bands)-1].MinPercent != 0 {
		return fmt.Errorf("scale %q: lowest band must start at zero", s.Name)
	}

	return nil
}

// DefaultScale returns the standard five-band table.
func DefaultScale() Scale {
	return Scale{
		Name: "standard",
		Bands: []Band{
			{Grade: "A", MinPercent: 75},
			{Grade: "B", MinPercent: 65},
			{Grade: "C", MinPercent: 50},
			{Grade: "S", MinPercent: 35},
			{Grade: "F", MinPercent: 0},
		},
	}
}

// SevenBandScale returns the extended division table used by exam types
// configured for finer-grained reporting.
func SevenBandScale() Scale {
	return Scale{
		Name: "seven-band",
		Bands: []Band{
			{Grade: "D1", MinPercent: 90},
			{Grade: "D2", MinPercent: 80},
			{Grade: "C3", MinPercent: 70},
			{Grade: "C4", MinPercent: 60},
			{Grade: "P5", MinPercent: 50},
			{Grade: "P6", MinPercent: 40},
			{Grade: "F9", MinPercent: 0},
		},
	}
}

const scaleSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "bands"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "bands": {
      "type": "array",
      "minItems": 2,
      "items": {
        "type": "object",
        "required": ["grade", "min_percent"],
        "properties": {
          "grade": {"type": "string", "minLength": 1},
          "min_percent": {"type": "number", "minimum": 0, "maximum": 100}
        }
      }
    }
  }
}`

// LoadScale reads a custom band table from a JSON file, checks it against
// the scale schema and normalizes band order.
func LoadScale(path string) (Scale, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scale{}, fmt.Errorf("failed to read scale file: %w", err)
	}

	return ParseScale(raw)
}

// ParseScale validates and decodes raw JSON scale data.
func ParseScale(raw []byte) (Scale, error) {
	schema, err := jsonschema.CompileString("scale.schema.json", scaleSchema)
	if err != nil {
		return Scale{}, fmt.Errorf("failed to compile scale schema: %w", err)
	}

	var document interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return Scale{}, fmt.Errorf("invalid scale json: %w", err)
	}

	if err := schema.Validate(document); err != nil {
		return Scale{}, fmt.Errorf("scale file failed schema validation: %w", err)
	}

	var scale Scale
	if err := json.Unmarshal(raw, &scale); err != nil {
		return Scale{}, fmt.Errorf("invalid scale json: %w", err)
	}

	sort.SliceStable(scale.Bands, func(i, j int) bool {
		return scale.Bands[i].MinPercent > scale.Bands[j].MinPercent
	})

	if err := scale.Validate(); err != nil {
		return Scale{}, err
	}

	return scale, nil
}

// Registry resolves scales by name, falling back to the default table for
// unknown names so grading stays total.
type Registry struct {
	scales map[string]Scale
}

// NewRegistry builds a registry seeded with the built-in scales plus any
// custom overrides.
func NewRegistry(custom ...Scale) *Registry {
	registry := &Registry{scales: make(map[string]Scale)}
	registry.add(DefaultScale())
	registry.add(SevenBandScale())
	for _, scale := range custom {
		registry.add(scale)
	}
	return registry
}

func (r *Registry) add(scale Scale) {
	r.scales[scale.Name] = scale
}

// Resolve returns the scale registered under name, or the default scale
// when the name is unknown or empty.
func (r *Registry) Resolve(name string) Scale {
	if scale, ok := r.scales[name]; ok {
		return scale
	}
	return r.scales[DefaultScale().Name]
}
