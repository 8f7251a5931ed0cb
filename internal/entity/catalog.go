package entity

import "github.com/shopspring/decimal"

type ItemType string

const (
	ItemTypeBar     ItemType = "BAR"
	ItemTypeKitchen ItemType = "KITCHEN"
)

type ItemStatus string

const (
	ItemAvailable    ItemStatus = "available"
	ItemDiscontinued ItemStatus = "discontinued"
)

// CatalogItem is a sellable menu entry. When HasVariations is set the
// item's own price fields are ignored and each Variation is priced on its own.
type CatalogItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	RegularPrice  decimal.Decimal `json:"regular_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	HasVariations bool            `json:"has_variations"`
	Variations    []Variation     `json:"variations,omitempty"`
	Categories    []string        `json:"categories"`
	Type          ItemType        `json:"type"`
	Status        ItemStatus      `json:"status"`
}

type Variation struct {
	ID           string          `json:"id"`
	ItemID       string          `json:"item_id"`
	Name         string          `json:"name"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Status       ItemStatus      `json:"status"`
	SortOrder    int             `json:"sort_order"`
}

// Variation returns the variation with the given id, or nil.
func (i *CatalogItem) Variation(id string) *Variation {
	for k := range i.Variations {
		if i.Variations[k].ID == id {
			return &i.Variations[k]
		}
	}
	return nil
}

// ItemFilter narrows catalog listings.
type ItemFilter struct {
	CategorySlug string
	Limit        int
}

/*
MySQL schema:

CREATE TABLE catalog_items (
	id VARCHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	slug VARCHAR(255) NOT NULL UNIQUE,
	regular_price DECIMAL(12,2) NOT NULL DEFAULT 0,
	sale_price DECIMAL(12,2) NOT NULL DEFAULT 0,
	has_variations BOOLEAN NOT NULL DEFAULT FALSE,
	type VARCHAR(16) NOT NULL,
	status VARCHAR(16) NOT NULL
);

CREATE TABLE item_variations (
	id VARCHAR(36) PRIMARY KEY,
	item_id VARCHAR(36) NOT NULL REFERENCES catalog_items(id) ON DELETE CASCADE,
	...
	UNIQUE (item_id, sort_order)
);
*/
