package entity

import "strings"

// MatchKind selects how an inclusion rule is evaluated against a URL.
type MatchKind string

const (
	MatchContains MatchKind = "contains"
	MatchRegex    MatchKind = "regex"
)

// StrategyKind selects which anchors of a listing page become candidate links.
type StrategyKind string

const (
	// StrategyAnchors takes every anchor with a non-empty href.
	StrategyAnchors StrategyKind = "anchors"
	// StrategyContainer takes anchors that live inside product containers only.
	StrategyContainer StrategyKind = "container"
)

// FetcherKind selects the page fetcher used for a site.
type FetcherKind string

const (
	FetcherRendered FetcherKind = "rendered"
	FetcherStatic   FetcherKind = "static"
)

// MatchRule is a single inclusion rule.
type MatchRule struct {
	Kind  MatchKind `yaml:"kind" json:"kind"`
	Value string    `yaml:"value" json:"value"`
}

// LinkStrategy describes how candidate anchors are selected from a listing page.
type LinkStrategy struct {
	Kind StrategyKind `yaml:"kind" json:"kind"`
	// ContainerSelector is the CSS selector of one product container.
	ContainerSelector string `yaml:"container_selector,omitempty" json:"container_selector,omitempty"`
	// LabelSelector and LabelContains optionally restrict containers to those whose
	// label text contains the given substring (case-insensitive).
	LabelSelector string `yaml:"label_selector,omitempty" json:"label_selector,omitempty"`
	LabelContains string `yaml:"label_contains,omitempty" json:"label_contains,omitempty"`
}

// AttributeSelectors lists the CSS selectors used to extract a product's attributes.
type AttributeSelectors struct {
	ReadinessMarker string            `yaml:"readiness_marker,omitempty" json:"readiness_marker,omitempty"`
	Fields          map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
	Required        []string          `yaml:"required,omitempty" json:"required,omitempty"`
}

// SiteDefinition is the immutable configuration of one external source.
type SiteDefinition struct {
	Name            string             `yaml:"name" json:"name"`
	ListingURL      string             `yaml:"listing_url" json:"listing_url"`
	ReadinessMarker string             `yaml:"readiness_marker,omitempty" json:"readiness_marker,omitempty"`
	Fetcher         FetcherKind        `yaml:"fetcher,omitempty" json:"fetcher,omitempty"`
	Strategy        LinkStrategy       `yaml:"strategy,omitempty" json:"strategy"`
	Include         []MatchRule        `yaml:"include,omitempty" json:"include,omitempty"`
	FallbackInclude []MatchRule        `yaml:"fallback_include,omitempty" json:"fallback_include,omitempty"`
	Exclude         []string           `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Attributes      AttributeSelectors `yaml:"attributes,omitempty" json:"attributes"`
}

// SplitFieldSelector splits an attribute field selector of the form
// "css selector@attr" into its CSS part and the attribute to read. Without an
// "@attr" suffix the element text is used and attr is empty.
func SplitFieldSelector(field string) (selector, attr string) {
	i := strings.LastIndex(field, "@")
	if i < 0 {
		return strings.TrimSpace(field), ""
	}
	attr = strings.TrimSpace(field[i+1:])
	if attr == "" || strings.ContainsAny(attr, " []=>~+:'\"") {
		return strings.TrimSpace(field), ""
	}
	return strings.TrimSpace(field[:i]), attr
}
