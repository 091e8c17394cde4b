package extraction

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/entity"
)

const cardPage = `<html><head>
<meta property="og:title" content="Cashback Credit Card">
</head><body>
<h1 class="hero__title">
	Cashback   Credit Card
</h1>
<ul class="facts">
	<li class="fee">AED 0 annual fee</li>
	<li class="salary">Minimum salary AED 5,000</li>
	<li class="rate">3.75% monthly</li>
</ul>
</body></html>`

func fixedParser(attrs entity.AttributeSelectors) *SelectorParser {
	p := NewSelectorParser(attrs)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

func TestSelectorParserExtractsFields(t *testing.T) {
	p := fixedParser(entity.AttributeSelectors{
		Fields: map[string]string{
			FieldCardName:      "h1.hero__title",
			FieldAnnualFee:     ".facts .fee",
			FieldMinimumSalary: ".facts .salary",
			"interest_rate":    ".facts .rate",
			"og_title":         "meta[property='og:title']@content",
		},
		Required: []string{FieldCardName},
	})

	rec, err := Extract(cardPage, p)
	require.NoError(t, err)

	assert.Equal(t, "Cashback Credit Card", rec.CardName)
	assert.Equal(t, "AED 0 annual fee", rec.AnnualFee)
	assert.Equal(t, "Minimum salary AED 5,000", rec.MinimumSalary)
	assert.Equal(t, map[string]string{
		"interest_rate": "3.75% monthly",
		"og_title":      "Cashback Credit Card",
	}, rec.Extra)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), rec.ExtractedAt)
}

func TestSelectorParserPartialRecord(t *testing.T) {
	p := fixedParser(entity.AttributeSelectors{Fields: map[string]string{
		FieldCardName:  "h1",
		FieldAnnualFee: ".does-not-exist",
	}})

	rec, err := Extract(cardPage, p)
	require.NoError(t, err)
	assert.Equal(t, "Cashback Credit Card", rec.CardName)
	assert.Empty(t, rec.AnnualFee)
}

func TestSelectorParserMissingRequired(t *testing.T) {
	p := fixedParser(entity.AttributeSelectors{
		Fields:   map[string]string{FieldCardName: "h2.title", FieldAnnualFee: ".fee"},
		Required: []string{FieldCardName},
	})

	rec, err := Extract(cardPage, p)
	assert.Nil(t, rec)

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Contains(t, ee.Reason, FieldCardName)
}

func TestExtractWrapsPlainErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Extract("<html/>", ParserFunc(func(string) (*entity.AttributeRecord, error) {
		return nil, boom
	}))

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.ErrorIs(t, err, boom)
}

func TestExtractWithoutParser(t *testing.T) {
	_, err := Extract("<html/>", nil)
	var ee *ExtractionError
	assert.True(t, errors.As(err, &ee))
}

func TestSplitFieldSelector(t *testing.T) {
	tests := []struct {
		in, css, attr string
	}{
		{"h1", "h1", ""},
		{"meta[name=description]@content", "meta[name=description]", "content"},
		{"a.apply @ href", "a.apply", "href"},
		{"a[href^='mailto:x@y']", "a[href^='mailto:x@y']", ""},
	}
	for _, tt := range tests {
		css, attr := entity.SplitFieldSelector(tt.in)
		assert.Equal(t, tt.css, css, tt.in)
		assert.Equal(t, tt.attr, attr, tt.in)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry([]entity.SiteDefinition{
		{Name: "A", Attributes: entity.AttributeSelectors{Fields: map[string]string{FieldCardName: "h1"}}},
		{Name: "B"},
	})
	assert.NotNil(t, r.For("A"))
	assert.Nil(t, r.For("B"))
}
