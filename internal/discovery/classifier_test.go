package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/entity"
)

func mustRules(t *testing.T, def entity.SiteDefinition) *Rules {
	t.Helper()
	rules, err := CompileRules(def)
	require.NoError(t, err)
	return rules
}

func TestClassifyAllCreditCardScenario(t *testing.T) {
	rules := mustRules(t, entity.SiteDefinition{
		Include: []entity.MatchRule{{Kind: entity.MatchContains, Value: "/credit-cards/"}},
		Exclude: []string{"faq|login"},
	})
	html := `<a href="/credit-cards/cashback/">a</a><a href="/credit-cards/faq/">b</a><a href="/login">c</a>`

	links, err := ExtractLinks(html, "https://x.example/")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://x.example/credit-cards/cashback"}, keys(rules.ClassifyAll(links)))
}

func TestClassifyExclusionWins(t *testing.T) {
	rules := mustRules(t, entity.SiteDefinition{
		Include: []entity.MatchRule{
			{Kind: entity.MatchContains, Value: "/cards/"},
			{Kind: entity.MatchRegex, Value: `credit-card`},
		},
		Exclude: []string{`business-cards/`, `prepaid-cards/`, `(apply|terms)`},
	})

	tests := []struct {
		url  string
		want Verdict
	}{
		{"https://b.example/cards/credit-cards/titanium", Include},
		{"https://b.example/cards/business-cards/corporate", Exclude},
		{"https://b.example/cards/prepaid-cards/travel", Exclude},
		{"https://b.example/cards/credit-cards/titanium/APPLY", Exclude},
		{"https://b.example/cards/credit-cards/titanium?step=terms", Exclude},
		{"https://b.example/loans/personal", Exclude},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.Classify(tt.url), tt.url)
	}
}

func TestClassifyWithoutInclusionRulesPassesThrough(t *testing.T) {
	rules := mustRules(t, entity.SiteDefinition{Exclude: []string{`sitemap\.xml`, `/ar/`}})

	assert.Equal(t, Include, rules.Classify("https://b.example/en/cards/gold"))
	assert.Equal(t, Exclude, rules.Classify("https://b.example/sitemap.xml"))
	assert.Equal(t, Exclude, rules.Classify("https://b.example/ar/cards/gold"))
}

func TestClassifyMatchesHost(t *testing.T) {
	rules := mustRules(t, entity.SiteDefinition{Exclude: []string{`application\.bank\.example`}})

	assert.Equal(t, Exclude, rules.Classify("https://application.bank.example/cards/gold"))
	assert.Equal(t, Include, rules.Classify("https://www.bank.example/cards/gold"))
}

func TestClassifyListingRootExcluded(t *testing.T) {
	rules := mustRules(t, entity.SiteDefinition{Exclude: []string{`cards/?$`}})

	assert.Equal(t, Exclude, rules.Classify("https://b.example/en/cards/"))
	assert.Equal(t, Exclude, rules.Classify("https://b.example/en/cards"))
	assert.Equal(t, Include, rules.Classify("https://b.example/en/cards/gold"))
}

func TestClassifyIsDeterministic(t *testing.T) {
	rules := mustRules(t, entity.SiteDefinition{
		Include: []entity.MatchRule{{Kind: entity.MatchRegex, Value: `cards?/`}},
		Exclude: []string{`offers/`},
	})
	urls := []string{
		"https://b.example/cards/gold",
		"https://b.example/offers/cards/x",
		"https://b.example/about",
		"::invalid",
	}
	for _, u := range urls {
		first := rules.Classify(u)
		for i := 0; i < 50; i++ {
			require.Equal(t, first, rules.Classify(u), u)
		}
	}
}

func TestClassifyAllFallback(t *testing.T) {
	def := entity.SiteDefinition{
		Include:         []entity.MatchRule{{Kind: entity.MatchContains, Value: "/cards/credit-cards/"}},
		FallbackInclude: []entity.MatchRule{{Kind: entity.MatchRegex, Value: `(credit-card|cards|card-details)`}},
		Exclude:         []string{`compare/`},
	}
	rules := mustRules(t, def)

	t.Run("primary miss uses fallback", func(t *testing.T) {
		links, err := ExtractLinks(`<a href="/personal/credit-card-gold">g</a><a href="/cards/compare/">c</a><a href="/about">a</a>`, "https://b.example/")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://b.example/personal/credit-card-gold"}, keys(rules.ClassifyAll(links)))
	})

	t.Run("primary hit ignores fallback", func(t *testing.T) {
		links, err := ExtractLinks(`<a href="/cards/credit-cards/gold">g</a><a href="/personal/credit-card-x">x</a>`, "https://b.example/")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://b.example/cards/credit-cards/gold"}, keys(rules.ClassifyAll(links)))
	})

	t.Run("primary matched but excluded does not fall back", func(t *testing.T) {
		links, err := ExtractLinks(`<a href="/cards/credit-cards/compare/">c</a><a href="/personal/credit-card-x">x</a>`, "https://b.example/")
		require.NoError(t, err)
		assert.Empty(t, rules.ClassifyAll(links))
	})
}

func TestCompileRulesErrors(t *testing.T) {
	_, err := CompileRules(entity.SiteDefinition{Exclude: []string{"("}})
	assert.Error(t, err)

	_, err = CompileRules(entity.SiteDefinition{Include: []entity.MatchRule{{Kind: "glob", Value: "*"}}})
	assert.Error(t, err)

	_, err = CompileRules(entity.SiteDefinition{Include: []entity.MatchRule{{Kind: entity.MatchContains}}})
	assert.Error(t, err)
}

func TestNewSiteValidation(t *testing.T) {
	valid := entity.SiteDefinition{Name: "BankX", ListingURL: "https://x.example/cards/"}

	site, err := NewSite(valid)
	require.NoError(t, err)
	assert.Equal(t, "BankX", site.Name())

	tests := []struct {
		name   string
		mutate func(d *entity.SiteDefinition)
	}{
		{"missing name", func(d *entity.SiteDefinition) { d.Name = " " }},
		{"relative listing", func(d *entity.SiteDefinition) { d.ListingURL = "/cards" }},
		{"unknown fetcher", func(d *entity.SiteDefinition) { d.Fetcher = "curl" }},
		{"unknown strategy", func(d *entity.SiteDefinition) { d.Strategy.Kind = "xpath" }},
		{"container without selector", func(d *entity.SiteDefinition) { d.Strategy.Kind = entity.StrategyContainer }},
		{"bad readiness selector", func(d *entity.SiteDefinition) { d.ReadinessMarker = "div[" }},
		{"bad regex", func(d *entity.SiteDefinition) { d.Exclude = []string{"(["} }},
		{"required attribute without selector", func(d *entity.SiteDefinition) {
			d.Attributes = entity.AttributeSelectors{Required: []string{"card_name"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid
			tt.mutate(&def)
			_, err := NewSite(def)
			assert.ErrorIs(t, err, ErrInvalidSite)
		})
	}
}
