package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
)

// DefaultReadinessMarker is used for sites that do not name one.
const DefaultReadinessMarker = "body"

// SitesFile is the on-disk layout of the site definition file.
type SitesFile struct {
	// DefaultExclude is appended after every site's own exclusion list.
	DefaultExclude []string                `yaml:"default_exclude"`
	Sites          []entity.SiteDefinition `yaml:"sites"`
}

// LoadSites reads and validates the site definition file at path.
func LoadSites(path string) ([]*discovery.Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sites file: %w", err)
	}
	return ParseSites(data)
}

// ParseSites decodes a site definition document, applies defaults and compiles
// every site. Order is preserved. Duplicate names are rejected.
func ParseSites(data []byte) ([]*discovery.Site, error) {
	var file SitesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sites file: %w", err)
	}
	if len(file.Sites) == 0 {
		return nil, errors.New("sites file defines no sites")
	}

	sites := make([]*discovery.Site, 0, len(file.Sites))
	seen := make(map[string]bool, len(file.Sites))
	for _, def := range file.Sites {
		if seen[def.Name] {
			return nil, fmt.Errorf("%w %q: duplicate name", discovery.ErrInvalidSite, def.Name)
		}
		seen[def.Name] = true

		applyDefaults(&def, file.DefaultExclude)
		site, err := discovery.NewSite(def)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func applyDefaults(def *entity.SiteDefinition, defaultExclude []string) {
	if def.ReadinessMarker == "" {
		def.ReadinessMarker = DefaultReadinessMarker
	}
	if def.Attributes.ReadinessMarker == "" {
		def.Attributes.ReadinessMarker = DefaultReadinessMarker
	}
	if def.Fetcher == "" {
		def.Fetcher = entity.FetcherRendered
	}
	if def.Strategy.Kind == "" {
		def.Strategy.Kind = entity.StrategyAnchors
	}
	def.Exclude = append(append([]string(nil), def.Exclude...), defaultExclude...)
}

// Definitions returns the definitions of sites in order.
func Definitions(sites []*discovery.Site) []entity.SiteDefinition {
	defs := make([]entity.SiteDefinition, len(sites))
	for i, s := range sites {
		defs[i] = s.Definition
	}
	return defs
}
