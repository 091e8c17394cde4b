package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 15*time.Second, cfg.PolitenessInterval)
	assert.Equal(t, 24*time.Hour, cfg.ExtractionTTL)
	assert.True(t, cfg.Headless)
	assert.Empty(t, cfg.ProxyList())
}

func TestLoadEnvFileAndOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"STORE=memory\nMAX_CONCURRENCY=4\nFETCH_TIMEOUT=45s\nPROXIES=http://p1:1, http://p2:2\nUSER_AGENTS=Agent A, v1|Agent B\n",
	), 0o600))
	t.Setenv("MAX_CONCURRENCY", "6")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 6, cfg.MaxConcurrency)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"http://p1:1", "http://p2:2"}, cfg.ProxyList())
	assert.Equal(t, []string{"Agent A, v1", "Agent B"}, cfg.UserAgentList())
}

func TestLoadRejectsPostgresWithoutURL(t *testing.T) {
	t.Setenv("STORE", StorePostgres)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

const sitesYAML = `
default_exclude:
  - 'faq|login'
  - 'cards/?$'
sites:
  - name: BankA
    listing_url: https://a.example/en/cards/
    include:
      - kind: contains
        value: /cards/credit-cards/
    fallback_include:
      - kind: regex
        value: '(credit-card|cards|card-details)'
    exclude:
      - 'ar/'
  - name: BankB
    listing_url: https://b.example/cards
    fetcher: static
    readiness_marker: div.product
    strategy:
      kind: container
      container_selector: div[class*='card-item_card-item__']
      label_selector: p[class*='card-item_card-type__']
      label_contains: credit card
    attributes:
      fields:
        card_name: h1
        annual_fee: .fee
      required: [card_name]
`

func TestParseSitesAppliesDefaults(t *testing.T) {
	sites, err := ParseSites([]byte(sitesYAML))
	require.NoError(t, err)
	require.Len(t, sites, 2)

	a := sites[0].Definition
	assert.Equal(t, "BankA", a.Name)
	assert.Equal(t, DefaultReadinessMarker, a.ReadinessMarker)
	assert.Equal(t, entity.FetcherRendered, a.Fetcher)
	assert.Equal(t, entity.StrategyAnchors, a.Strategy.Kind)
	assert.Equal(t, []string{"ar/", "faq|login", "cards/?$"}, a.Exclude)
	assert.Equal(t, discovery.Exclude, sites[0].Rules.Classify("https://a.example/en/cards/credit-cards/faq"))
	assert.Equal(t, discovery.Include, sites[0].Rules.Classify("https://a.example/en/cards/credit-cards/gold"))

	b := sites[1].Definition
	assert.Equal(t, entity.FetcherStatic, b.Fetcher)
	assert.Equal(t, "div.product", b.ReadinessMarker)
	assert.Equal(t, entity.StrategyContainer, b.Strategy.Kind)
	assert.Equal(t, []string{"card_name"}, b.Attributes.Required)
}

func TestParseSitesErrors(t *testing.T) {
	tests := map[string]string{
		"empty":          `sites: []`,
		"bad yaml":       `sites: [`,
		"duplicate name": "sites:\n  - {name: A, listing_url: 'https://a.example'}\n  - {name: A, listing_url: 'https://a.example'}\n",
		"bad regex":      "sites:\n  - {name: A, listing_url: 'https://a.example', exclude: ['(']}\n",
		"relative url":   "sites:\n  - {name: A, listing_url: '/cards'}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSites([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestShippedSitesFileIsValid(t *testing.T) {
	sites, err := LoadSites(filepath.Join("..", "..", "configs", "sites.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, sites)
}
