package discovery

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/pkg/utils"
)

// Verdict is the binary outcome of classifying a candidate URL.
type Verdict int

const (
	Exclude Verdict = iota
	Include
)

func (v Verdict) String() string {
	if v == Include {
		return "INCLUDE"
	}
	return "EXCLUDE"
}

// ErrInvalidSite is returned when a site definition cannot be compiled.
var ErrInvalidSite = errors.New("invalid site definition")

type matcher interface {
	match(target string) bool
}

type containsMatcher string

func (m containsMatcher) match(target string) bool {
	return strings.Contains(target, string(m))
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) match(target string) bool {
	return m.re.MatchString(target)
}

// Rules is the compiled, immutable matching rule set of one site.
// All matching is done against the URL's host, path and query.
type Rules struct {
	include  []matcher
	fallback []matcher
	exclude  []*regexp.Regexp
}

// CompileRules compiles the inclusion and exclusion lists of def.
func CompileRules(def entity.SiteDefinition) (*Rules, error) {
	include, err := compileMatchers(def.Include)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	fallback, err := compileMatchers(def.FallbackInclude)
	if err != nil {
		return nil, fmt.Errorf("fallback_include: %w", err)
	}

	exclude := make([]*regexp.Regexp, 0, len(def.Exclude))
	for _, pattern := range def.Exclude {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude %q: %w", pattern, err)
		}
		exclude = append(exclude, re)
	}

	return &Rules{include: include, fallback: fallback, exclude: exclude}, nil
}

func compileMatchers(rules []entity.MatchRule) ([]matcher, error) {
	matchers := make([]matcher, 0, len(rules))
	for _, rule := range rules {
		if rule.Value == "" {
			return nil, fmt.Errorf("empty %s rule", rule.Kind)
		}
		switch rule.Kind {
		case entity.MatchContains, "":
			matchers = append(matchers, containsMatcher(rule.Value))
		case entity.MatchRegex:
			re, err := regexp.Compile("(?i)" + rule.Value)
			if err != nil {
				return nil, fmt.Errorf("regex %q: %w", rule.Value, err)
			}
			matchers = append(matchers, regexMatcher{re: re})
		default:
			return nil, fmt.Errorf("unknown rule kind %q", rule.Kind)
		}
	}
	return matchers, nil
}

// Classify decides whether rawURL is a product URL of the site. Inclusion is
// evaluated first and is skipped when no inclusion rules exist; any exclusion
// match then rejects the URL regardless of inclusion.
func (r *Rules) Classify(rawURL string) Verdict {
	return r.classify(rawURL, r.include)
}

func (r *Rules) classify(rawURL string, include []matcher) Verdict {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Exclude
	}
	target := utils.MatchTarget(u)

	if len(include) > 0 && !anyMatch(include, target) {
		return Exclude
	}
	for _, re := range r.exclude {
		if re.MatchString(target) {
			return Exclude
		}
	}
	return Include
}

// ClassifyAll returns the candidates deemed INCLUDE. When the primary inclusion
// rules admit nothing and fallback rules are configured, the inclusion stage is
// evaluated again with the fallback rules.
func (r *Rules) ClassifyAll(candidates []CandidateLink) []CandidateLink {
	included := r.filter(candidates, r.include)
	if len(included) == 0 && len(r.fallback) > 0 && !r.primaryMatchedAny(candidates) {
		included = r.filter(candidates, r.fallback)
	}
	return included
}

func (r *Rules) filter(candidates []CandidateLink, include []matcher) []CandidateLink {
	var out []CandidateLink
	for _, c := range candidates {
		if r.classify(c.URL, include) == Include {
			out = append(out, c)
		}
	}
	return out
}

// primaryMatchedAny reports whether the primary inclusion stage admitted any
// candidate before exclusion. A page whose product links were all excluded
// must not fall back to the broader rules.
func (r *Rules) primaryMatchedAny(candidates []CandidateLink) bool {
	if len(r.include) == 0 {
		return len(candidates) > 0
	}
	for _, c := range candidates {
		u, err := url.Parse(c.URL)
		if err != nil {
			continue
		}
		if anyMatch(r.include, utils.MatchTarget(u)) {
			return true
		}
	}
	return false
}

func anyMatch(matchers []matcher, target string) bool {
	for _, m := range matchers {
		if m.match(target) {
			return true
		}
	}
	return false
}

// Site is a validated site definition together with its compiled rules.
type Site struct {
	Definition entity.SiteDefinition
	Rules      *Rules
}

// Name returns the site identifier.
func (s *Site) Name() string {
	return s.Definition.Name
}

// NewSite validates def and compiles its rules.
func NewSite(def entity.SiteDefinition) (*Site, error) {
	if err := validate(def); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSite, def.Name, err)
	}
	rules, err := CompileRules(def)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSite, def.Name, err)
	}
	return &Site{Definition: def, Rules: rules}, nil
}

func validate(def entity.SiteDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return errors.New("name is required")
	}
	u, err := url.Parse(def.ListingURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("listing_url %q must be an absolute http(s) url", def.ListingURL)
	}

	switch def.Fetcher {
	case "", entity.FetcherRendered, entity.FetcherStatic:
	default:
		return fmt.Errorf("unknown fetcher %q", def.Fetcher)
	}

	switch def.Strategy.Kind {
	case "", entity.StrategyAnchors:
	case entity.StrategyContainer:
		if def.Strategy.ContainerSelector == "" {
			return errors.New("container strategy requires container_selector")
		}
	default:
		return fmt.Errorf("unknown strategy %q", def.Strategy.Kind)
	}

	selectors := []string{def.ReadinessMarker, def.Strategy.ContainerSelector, def.Strategy.LabelSelector, def.Attributes.ReadinessMarker}
	for _, field := range def.Attributes.Fields {
		sel, _ := entity.SplitFieldSelector(field)
		if sel == "" {
			return fmt.Errorf("attribute selector %q is empty", field)
		}
		selectors = append(selectors, sel)
	}
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("selector %q: %w", sel, err)
		}
	}
	for _, name := range def.Attributes.Required {
		if _, ok := def.Attributes.Fields[name]; !ok {
			return fmt.Errorf("required attribute %q has no selector", name)
		}
	}
	return nil
}
