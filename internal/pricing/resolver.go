package pricing

import (
	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"

	"github.com/shopspring/decimal"
)

// Choice is a catalog item narrowed to something that has exactly one price:
// either a plain item (SimpleChoice) or an item with one of its variations
// (VariationChoice).
type Choice interface {
	Item() *entity.CatalogItem
	VariationID() *string
	UnitPrice() decimal.Decimal
	Available() bool
	// Free reports whether the catalog lists this choice at exactly zero.
	Free() bool
}

type SimpleChoice struct {
	item *entity.CatalogItem
}

func (c SimpleChoice) Item() *entity.CatalogItem { return c.item }
func (c SimpleChoice) VariationID() *string      { return nil }
func (c SimpleChoice) Available() bool           { return c.item.Status != entity.ItemDiscontinued }

func (c SimpleChoice) UnitPrice() decimal.Decimal {
	return effectivePrice(c.item.RegularPrice, c.item.SalePrice)
}

func (c SimpleChoice) Free() bool {
	return c.item.RegularPrice.IsZero() && !c.item.SalePrice.IsPositive()
}

type VariationChoice struct {
	item      *entity.CatalogItem
	variation *entity.Variation
}

func (c VariationChoice) Item() *entity.CatalogItem    { return c.item }
func (c VariationChoice) Variation() *entity.Variation { return c.variation }

func (c VariationChoice) VariationID() *string {
	id := c.variation.ID
	return &id
}

func (c VariationChoice) Available() bool {
	return c.item.Status != entity.ItemDiscontinued && c.variation.Status != entity.ItemDiscontinued
}

func (c VariationChoice) UnitPrice() decimal.Decimal {
	return effectivePrice(c.variation.RegularPrice, c.variation.SalePrice)
}

func (c VariationChoice) Free() bool {
	return c.variation.RegularPrice.IsZero() && !c.variation.SalePrice.IsPositive()
}

// effectivePrice applies the sale rule: a sale price counts only when it is
// strictly positive. There is no date window or activation flag.
func effectivePrice(regular, sale decimal.Decimal) decimal.Decimal {
	if sale.IsPositive() {
		return sale
	}
	return regular
}

// ResolveUnitPrice returns the authoritative unit price of item, or of its
// variation variationID when the item has variations. An unresolvable
// variation yields zero; callers that need a hard failure use Resolve.
func ResolveUnitPrice(item *entity.CatalogItem, variationID string) decimal.Decimal {
	if item == nil {
		return decimal.Zero
	}
	if !item.HasVariations {
		return effectivePrice(item.RegularPrice, item.SalePrice)
	}
	v := item.Variation(variationID)
	if v == nil {
		return decimal.Zero
	}
	return effectivePrice(v.RegularPrice, v.SalePrice)
}

// Resolve narrows item and variationID to a priced Choice.
func Resolve(item *entity.CatalogItem, variationID string) (Choice, error) {
	if item == nil {
		return nil, common.ErrMissingSelection
	}
	if !item.HasVariations {
		if variationID != "" {
			return nil, common.ErrUnexpectedVariation.WithDetails(map[string]string{
				"item_id":      item.ID,
				"variation_id": variationID,
			})
		}
		return SimpleChoice{item: item}, nil
	}

	if variationID == "" {
		return nil, common.ErrMissingVariation.WithDetails(map[string]string{"item_id": item.ID})
	}
	v := item.Variation(variationID)
	if v == nil {
		return nil, common.ErrNotFound.WithDetails(map[string]string{
			"item_id":      item.ID,
			"variation_id": variationID,
		})
	}
	return VariationChoice{item: item, variation: v}, nil
}
