package extraction

import "github.com/user/cardscout/internal/entity"

// Registry maps a site name to the parser of its product pages.
type Registry map[string]Parser

// NewRegistry builds selector parsers for every definition that declares attribute fields.
func NewRegistry(defs []entity.SiteDefinition) Registry {
	r := make(Registry, len(defs))
	for _, def := range defs {
		if p := NewSelectorParser(def.Attributes); p != nil {
			r[def.Name] = p
		}
	}
	return r
}

// For returns the parser registered for siteName, or nil.
func (r Registry) For(siteName string) Parser {
	return r[siteName]
}
