// Package discovery turns a rendered listing page into the set of candidate
// product URLs of a site.
package discovery

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/pkg/utils"
)

// ErrParse is returned when listing markup cannot be parsed. No links are
// returned alongside it.
var ErrParse = errors.New("unparseable markup")

// CandidateLink is a hyperlink found on a listing page, prior to classification.
type CandidateLink struct {
	// Href is the raw attribute value.
	Href string
	// URL is Href resolved against the listing URL.
	URL string
	// Key is the normalized URL used for deduplication and persistence.
	Key string
	// Site is the originating site, set by the discovery pass.
	Site string
}

// skippedSchemes never point at product pages.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// ExtractLinks returns every anchor target of html resolved against baseURL.
func ExtractLinks(html, baseURL string) ([]CandidateLink, error) {
	return SelectLinks(html, baseURL, entity.LinkStrategy{Kind: entity.StrategyAnchors})
}

// SelectLinks parses html and returns the anchors chosen by strategy, resolved
// against baseURL and deduplicated on their normalized key. The result is sorted
// by key.
func SelectLinks(html, baseURL string, strategy entity.LinkStrategy) ([]CandidateLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("%w: invalid base url %q", ErrParse, baseURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var anchors *goquery.Selection
	switch strategy.Kind {
	case entity.StrategyContainer:
		anchors = containerAnchors(doc, strategy)
	default:
		anchors = doc.Find("a[href]")
	}

	seen := make(map[string]CandidateLink)
	anchors.Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := newCandidate(base, href)
		if !ok {
			return
		}
		if _, dup := seen[link.Key]; !dup {
			seen[link.Key] = link
		}
	})

	links := make([]CandidateLink, 0, len(seen))
	for _, link := range seen {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Key < links[j].Key })
	return links, nil
}

// containerAnchors returns the anchors inside product containers whose label
// matches the strategy. A container that is itself an anchor counts too.
func containerAnchors(doc *goquery.Document, strategy entity.LinkStrategy) *goquery.Selection {
	want := strings.ToLower(strings.TrimSpace(strategy.LabelContains))
	containers := doc.Find(strategy.ContainerSelector).FilterFunction(func(i int, s *goquery.Selection) bool {
		if want == "" {
			return true
		}
		label := s
		if strategy.LabelSelector != "" {
			label = s.Find(strategy.LabelSelector).First()
		}
		return strings.Contains(strings.ToLower(strings.TrimSpace(label.Text())), want)
	})
	return containers.Find("a[href]").AddSelection(containers.Filter("a[href]"))
}

func newCandidate(base *url.URL, href string) (CandidateLink, bool) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return CandidateLink{}, false
	}
	lower := strings.ToLower(trimmed)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return CandidateLink{}, false
		}
	}

	abs, err := utils.ToAbsoluteURL(base, trimmed)
	if err != nil || (abs.Scheme != "http" && abs.Scheme != "https") {
		return CandidateLink{}, false
	}
	abs.Fragment = ""
	abs.RawFragment = ""

	return CandidateLink{
		Href: href,
		URL:  abs.String(),
		Key:  utils.NormalizeURL(abs),
	}, true
}
