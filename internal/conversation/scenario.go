package conversation

import (
	_ "embed"
	"fmt"
	"math/rand/v2"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var scenariosYAML []byte

// Scenario is one role-play setup for speaking practice.
type Scenario struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Setting string `yaml:"setting" json:"setting"`
	Partner string `yaml:"partner" json:"partner"`
	Goal    string `yaml:"goal" json:"goal"`
}

// Catalog is the set of available scenarios.
type Catalog struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadCatalog parses the embedded scenario catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(scenariosYAML)
}

// ParseCatalog parses a YAML scenario catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	if len(c.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario catalog is empty")
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for i, s := range c.Scenarios {
		if s.ID == "" || s.Partner == "" || s.Setting == "" {
			return nil, fmt.Errorf("scenario %d is missing id, partner or setting", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return &c, nil
}

// Random picks a scenario using r, or the global source when r is nil.
func (c *Catalog) Random(r *rand.Rand) Scenario {
	if r != nil {
		return c.Scenarios[r.IntN(len(c.Scenarios))]
	}
	return c.Scenarios[rand.IntN(len(c.Scenarios))]
}

// Get returns the scenario with id.
func (c *Catalog) Get(id string) (Scenario, bool) {
	for _, s := range c.Scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}
