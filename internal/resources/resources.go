// resources.go - Static directory of official hotlines, resource categories and action plans

package resources

import (
	_ "embed"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_resources.yaml
var defaultResourcesYAML []byte

// Hotline is an official reporting channel the model is allowed to cite
type Hotline struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type"` // phone, url, email
	Value string `yaml:"value" json:"value"`
	Notes string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Source is one link in a resource category
type Source struct {
	ID           string `yaml:"id" json:"id"`
	Title        string `yaml:"title" json:"title"`
	Org          string `yaml:"org" json:"org"`
	URL          string `yaml:"url" json:"url"`
	Notes        string `yaml:"notes,omitempty" json:"notes,omitempty"`
	LastVerified string `yaml:"last_verified,omitempty" json:"last_verified,omitempty"`
}

// Category groups sources for the resources screen
type Category struct {
	ID    string   `yaml:"id" json:"id"`
	Title string   `yaml:"title" json:"title"`
	Items []Source `yaml:"items" json:"items"`
}

// Contact is a single actionable channel inside a plan
type Contact struct {
	Label string `yaml:"label" json:"label"`
	Type  string `yaml:"type" json:"type"`
	Value string `yaml:"value" json:"value"`
}

// Plan is the action plan for one scenario
type Plan struct {
	Key          string    `yaml:"-" json:"key"`
	Title        string    `yaml:"title" json:"title"`
	When         string    `yaml:"when" json:"when"`
	OneLine      string    `yaml:"one_line" json:"one_line"`
	DoNow        []string  `yaml:"do_now" json:"do_now"`
	SaveEvidence []string  `yaml:"save_evidence" json:"save_evidence"`
	Contacts     []Contact `yaml:"contacts" json:"contacts"`
	Caveat       string    `yaml:"caveat" json:"caveat"`
}

// Directory is the whole static document
type Directory struct {
	LastVerified string           `yaml:"last_verified" json:"last_verified"`
	Hotlines     []Hotline        `yaml:"hotlines" json:"hotlines"`
	Categories   []Category       `yaml:"categories" json:"categories"`
	Plans        map[string]*Plan `yaml:"plans" json:"plans"`
	Caveat       string           `yaml:"caveat" json:"caveat"`
}

// Load reads the directory from path, or the embedded default when path is empty
func Load(path string) (*Directory, error) {
	data := defaultResourcesYAML
	source := "embedded default"

	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read resources file: %w", err)
		}
		data = fileData
		source = path
	}

	dir, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources from %s: %w", source, err)
	}

	log.Printf("✓ Resources loaded from %s (%d hotlines, %d categories, %d plans)",
		source, len(dir.Hotlines), len(dir.Categories), len(dir.Plans))
	return dir, nil
}

// MustLoadDefault parses the embedded directory and panics if it is broken
func MustLoadDefault() *Directory {
	dir, err := Parse(defaultResourcesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded resources are invalid: %v", err))
	}
	return dir
}

// Parse decodes and validates a YAML directory
func Parse(data []byte) (*Directory, error) {
	var dir Directory
	if err := yaml.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	if len(dir.Hotlines) == 0 {
		return nil, fmt.Errorf("directory has no hotlines")
	}
	if dir.Plans == nil || dir.Plans[ScenarioOther] == nil {
		return nil, fmt.Errorf("directory must define the %q plan", ScenarioOther)
	}

	for key, plan := range dir.Plans {
		if plan == nil {
			return nil, fmt.Errorf("plan %q is empty", key)
		}
		plan.Key = key
		if plan.Caveat == "" {
			plan.Caveat = dir.Caveat
		}
	}

	return &dir, nil
}

// PlanFor returns the plan for a normalized key, falling back to "other"
func (d *Directory) PlanFor(key string) *Plan {
	if plan, ok := d.Plans[key]; ok {
		return plan
	}
	return d.Plans[ScenarioOther]
}

// ChannelsFor returns the contacts of the plan matching a raw scenario
func (d *Directory) ChannelsFor(scenario string) []Contact {
	plan := d.PlanFor(NormalizeScenario(scenario))
	if plan == nil {
		return []Contact{}
	}
	out := make([]Contact, len(plan.Contacts))
	copy(out, plan.Contacts)
	return out
}
