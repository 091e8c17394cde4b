// Package extraction turns product page content into attribute records.
// Parsers are pure functions of the page content.
package extraction

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/cardscout/internal/entity"
)

// Field names with a dedicated slot on entity.AttributeRecord.
const (
	FieldCardName      = "card_name"
	FieldAnnualFee     = "annual_fee"
	FieldMinimumSalary = "minimum_salary"
)

// ExtractionError reports why a single product page could not be parsed.
type ExtractionError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
	}
	return "extract: " + e.Reason
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Parser parses the content of one product page.
type Parser interface {
	Parse(content string) (*entity.AttributeRecord, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(content string) (*entity.AttributeRecord, error)

func (f ParserFunc) Parse(content string) (*entity.AttributeRecord, error) {
	return f(content)
}

// Extract runs parser over content. Parser failures are returned as *ExtractionError.
func Extract(content string, parser Parser) (*entity.AttributeRecord, error) {
	if parser == nil {
		return nil, &ExtractionError{Reason: "no parser configured"}
	}
	rec, err := parser.Parse(content)
	if err != nil {
		var ee *ExtractionError
		if errors.As(err, &ee) {
			return nil, ee
		}
		return nil, &ExtractionError{Reason: err.Error(), Err: err}
	}
	return rec, nil
}

type field struct {
	name     string
	selector string
	attr     string
}

// SelectorParser extracts attributes with the CSS selectors of a site.
type SelectorParser struct {
	fields   []field
	required map[string]bool
	now      func() time.Time
}

// NewSelectorParser builds a parser from attrs. It returns nil when attrs has no fields.
func NewSelectorParser(attrs entity.AttributeSelectors) *SelectorParser {
	if len(attrs.Fields) == 0 {
		return nil
	}
	p := &SelectorParser{required: make(map[string]bool), now: time.Now}
	for name, sel := range attrs.Fields {
		css, attr := entity.SplitFieldSelector(sel)
		p.fields = append(p.fields, field{name: name, selector: css, attr: attr})
	}
	sort.Slice(p.fields, func(i, j int) bool { return p.fields[i].name < p.fields[j].name })
	for _, name := range attrs.Required {
		p.required[name] = true
	}
	return p
}

var whitespace = regexp.MustCompile(`\s+`)

// Parse implements Parser.
func (p *SelectorParser) Parse(content string) (*entity.AttributeRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &ExtractionError{Reason: "unparseable markup", Err: err}
	}

	rec := &entity.AttributeRecord{ExtractedAt: p.now().UTC()}
	var missing []string
	for _, f := range p.fields {
		value := p.value(doc, f)
		if value == "" {
			if p.required[f.name] {
				missing = append(missing, f.name)
			}
			continue
		}
		switch f.name {
		case FieldCardName:
			rec.CardName = value
		case FieldAnnualFee:
			rec.AnnualFee = value
		case FieldMinimumSalary:
			rec.MinimumSalary = value
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[f.name] = value
		}
	}

	if len(missing) > 0 {
		return nil, &ExtractionError{Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}
	return rec, nil
}

func (p *SelectorParser) value(doc *goquery.Document, f field) string {
	sel := doc.Find(f.selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if f.attr != "" {
		v, _ := sel.Attr(f.attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(sel.Text(), " "))
}
