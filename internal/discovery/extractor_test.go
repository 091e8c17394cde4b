package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/entity"
)

const listingHTML = `<!DOCTYPE html>
<html>
	<body>
		<nav>
			<a href="/login">Login</a>
			<a href="">empty</a>
			<a>no href</a>
			<a href="#top">top</a>
			<a href="javascript:void(0)">js</a>
			<a href="mailto:cards@bank.example">mail</a>
		</nav>
		<div class="card-item_card-item__x1">
			<p class="card-item_card-type__a">Credit Card</p>
			<a href="/cards/credit-cards/cashback/">Cashback</a>
		</div>
		<div class="card-item_card-item__x2">
			<p class="card-item_card-type__a">Debit Card</p>
			<a href="/cards/debit-cards/everyday/">Everyday</a>
		</div>
		<div class="card-item_card-item__x3">
			<p class="card-item_card-type__a">CREDIT CARD</p>
			<a href="platinum">Platinum</a>
		</div>
		<a href="/cards/credit-cards/cashback">Cashback again</a>
		<a href="https://partner.example/offer#terms">Partner</a>
	</body>
</html>`

func keys(links []CandidateLink) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Key)
	}
	return out
}

func TestExtractLinksResolvesAndDedups(t *testing.T) {
	links, err := ExtractLinks(listingHTML, "https://bank.example/en/cards/")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"https://bank.example/login",
		"https://bank.example/cards/credit-cards/cashback",
		"https://bank.example/cards/debit-cards/everyday",
		"https://bank.example/en/cards/platinum",
		"https://partner.example/offer",
	}, keys(links))
}

func TestExtractLinksKeepsRawHrefAndResolvedURL(t *testing.T) {
	links, err := ExtractLinks(`<a href="platinum/">P</a>`, "https://bank.example/en/cards/")
	require.NoError(t, err)
	require.Len(t, links, 1)

	assert.Equal(t, "platinum/", links[0].Href)
	assert.Equal(t, "https://bank.example/en/cards/platinum/", links[0].URL)
	assert.Equal(t, "https://bank.example/en/cards/platinum", links[0].Key)
}

func TestExtractLinksEmptyPage(t *testing.T) {
	links, err := ExtractLinks("", "https://bank.example/")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractLinksInvalidBase(t *testing.T) {
	links, err := ExtractLinks(listingHTML, "not a url")
	require.ErrorIs(t, err, ErrParse)
	assert.Nil(t, links)
}

func TestSelectLinksContainerStrategy(t *testing.T) {
	strategy := entity.LinkStrategy{
		Kind:              entity.StrategyContainer,
		ContainerSelector: "div[class*='card-item_card-item__']",
		LabelSelector:     "p[class*='card-item_card-type__']",
		LabelContains:     "credit card",
	}

	links, err := SelectLinks(listingHTML, "https://bank.example/en/cards/", strategy)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://bank.example/cards/credit-cards/cashback",
		"https://bank.example/en/cards/platinum",
	}, keys(links))
}

func TestSelectLinksContainerWithoutLabel(t *testing.T) {
	html := `<ul><li class="product"><a href="/a">A</a></li><li class="product"><a href="/b">B</a></li></ul>
	<a class="tile" href="/c">C</a><a href="/d">D</a>`
	strategy := entity.LinkStrategy{Kind: entity.StrategyContainer, ContainerSelector: "li.product, a.tile"}

	links, err := SelectLinks(html, "https://bank.example/", strategy)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://bank.example/a",
		"https://bank.example/b",
		"https://bank.example/c",
	}, keys(links))
}
