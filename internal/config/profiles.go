package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/anmicius0/unit-batch-station/internal/scan"
	"gopkg.in/yaml.v3"
)

// Workflow names used as profile keys.
const (
	WorkflowStartIrradiation     = "start-irradiation"
	WorkflowCloseIrradiation     = "close-irradiation"
	WorkflowShipmentVerification = "shipment-verification"
)

// Profiles holds the scan rules of each workflow.
type Profiles struct {
	Default   scan.Rules            `yaml:"default"`
	Workflows map[string]scan.Rules `yaml:"workflows"`
}

// DefaultProfiles returns the built-in rules.
func DefaultProfiles() *Profiles {
	shipment := scan.DefaultRules()
	shipment.RequireCheckDigit = false
	return &Profiles{
		Default: scan.DefaultRules(),
		Workflows: map[string]scan.Rules{
			WorkflowStartIrradiation:     scan.DefaultRules(),
			WorkflowCloseIrradiation:     scan.DefaultRules(),
			WorkflowShipmentVerification: shipment,
		},
	}
}

// Rules returns the rules of workflow, falling back to the default profile.
func (p *Profiles) Rules(workflow string) scan.Rules {
	if rules, ok := p.Workflows[workflow]; ok {
		return rules.WithDefaults()
	}
	return p.Default.WithDefaults()
}

// Validate compiles every profile's patterns.
func (p *Profiles) Validate() error {
	if _, err := scan.NewNormalizer(p.Default); err != nil {
		return fmt.Errorf("default profile: %w", err)
	}
	for name, rules := range p.Workflows {
		if _, err := scan.NewNormalizer(rules); err != nil {
			return fmt.Errorf("profile '%s': %w", name, err)
		}
	}
	return nil
}

// ErrEmptyProfiles is returned for a profiles file with no content, which is
// usually a file caught between truncate and write.
var ErrEmptyProfiles = errors.New("profiles file is empty")

// LoadProfiles reads a YAML profiles file. A missing file yields DefaultProfiles.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultProfiles(), nil
		}
		return nil, fmt.Errorf("read profiles '%s': %w", path, err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes YAML on top of DefaultProfiles.
func ParseProfiles(data []byte) (*Profiles, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyProfiles
	}
	profiles := DefaultProfiles()
	if err := yaml.Unmarshal(data, profiles); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	if err := profiles.Validate(); err != nil {
		return nil, fmt.Errorf("validate profiles: %w", err)
	}
	return profiles, nil
}

// ProfileStore hands out the current profiles and accepts reloads.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles *Profiles
	version  int
}

// NewProfileStore creates a store holding profiles.
func NewProfileStore(profiles *Profiles) *ProfileStore {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &ProfileStore{profiles: profiles, version: 1}
}

// Rules returns the current rules of workflow.
func (s *ProfileStore) Rules(workflow string) scan.Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles.Rules(workflow)
}

// Set replaces the profiles.
func (s *ProfileStore) Set(profiles *Profiles) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = profiles
	s.version++
}

// Version increases on every Set.
func (s *ProfileStore) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
