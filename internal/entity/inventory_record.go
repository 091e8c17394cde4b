package entity

import "time"

// AttributeRecord holds the structured attributes extracted from a product page.
type AttributeRecord struct {
	CardName      string            `json:"card_name,omitempty"`
	AnnualFee     string            `json:"annual_fee,omitempty"`
	MinimumSalary string            `json:"minimum_salary,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
	ExtractedAt   time.Time         `json:"extracted_at"`
}

// InventoryRecord mirrors the `card_inventory` table schema.
type InventoryRecord struct {
	URL               string           `json:"url"`
	SiteName          string           `json:"site_name"`
	FirstDiscoveredAt time.Time        `json:"first_discovered_at"`
	LastVerifiedAt    time.Time        `json:"last_verified_at"`
	IsActive          bool             `json:"is_active"`
	Attributes        *AttributeRecord `json:"attributes,omitempty"` // Stored as JSON
}

// UpsertResult counts how a batch of discovered URLs was applied to the inventory.
type UpsertResult struct {
	Inserted   int
	Reverified int
	// NewURLs lists the URLs inserted by this call.
	NewURLs []string
}
