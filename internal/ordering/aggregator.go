package ordering

import (
	"context"
	"fmt"
	"strings"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/pricing"

	"github.com/shopspring/decimal"
)

// ItemSource resolves catalog items. The server backs it with the cached
// catalog, front ends with the HTTP client.
type ItemSource interface {
	GetItem(ctx context.Context, id string) (*entity.CatalogItem, error)
}

// Context is the order-level data collected next to the line selections.
type Context struct {
	OrderType     entity.OrderType
	TableIDs      []string
	CustomerID    string
	UserID        string
	PaymentMethod string
}

type Aggregator struct {
	items ItemSource
}

func NewAggregator(items ItemSource) *Aggregator {
	return &Aggregator{items: items}
}

// Build prices every selection and assembles a PENDING order draft.
// No draft is returned unless every line is valid.
func (a *Aggregator) Build(ctx context.Context, selections []entity.OrderLineSelection, oc Context) (*entity.OrderDraft, error) {
	if !ValidOrderType(oc.OrderType) {
		return nil, common.ErrInvalidOrderType.WithDetails(map[string]string{"order_type": string(oc.OrderType)})
	}
	if strings.TrimSpace(oc.UserID) == "" {
		return nil, common.ErrMissingUser
	}

	lines, err := a.PriceLines(ctx, selections)
	if err != nil {
		return nil, err
	}

	return &entity.OrderDraft{
		OrderType:     oc.OrderType,
		Tables:        tableRefs(oc.TableIDs),
		UserID:        oc.UserID,
		CustomerID:    optional(oc.CustomerID),
		Status:        entity.StatusPending,
		PaymentMethod: oc.PaymentMethod,
		OrderItems:    lines,
		SubTotal:      SubTotal(lines),
	}, nil
}

// PriceLines turns selections into snapshotted line items.
func (a *Aggregator) PriceLines(ctx context.Context, selections []entity.OrderLineSelection) ([]entity.OrderLineItem, error) {
	if len(selections) == 0 {
		return nil, common.ErrEmptyOrder
	}

	seen := make(map[string]*entity.CatalogItem)
	lines := make([]entity.OrderLineItem, 0, len(selections))
	for i, sel := range selections {
		itemID := strings.TrimSpace(sel.ItemID)
		if itemID == "" {
			return nil, common.ErrMissingSelection.WithDetails(map[string]int{"line": i})
		}
		if sel.Quantity < 1 {
			return nil, common.ErrInvalidQuantity.WithDetails(map[string]int{"line": i, "quantity": sel.Quantity})
		}

		item, ok := seen[itemID]
		if !ok {
			var err error
			item, err = a.items.GetItem(ctx, itemID)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			seen[itemID] = item
		}

		choice, err := pricing.Resolve(item, strings.TrimSpace(sel.VariationID))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		line, err := PriceLine(choice, sel.Quantity)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// PriceLine snapshots the unit and line price of one resolved choice.
func PriceLine(choice pricing.Choice, quantity int) (entity.OrderLineItem, error) {
	if quantity < 1 {
		return entity.OrderLineItem{}, common.ErrInvalidQuantity
	}
	if !choice.Available() {
		return entity.OrderLineItem{}, common.ErrItemUnavailable.WithDetails(map[string]string{"item_id": choice.Item().ID})
	}
	unit := choice.UnitPrice()
	if !unit.IsPositive() && !choice.Free() {
		return entity.OrderLineItem{}, common.ErrZeroPricedLine.WithDetails(map[string]string{"item_id": choice.Item().ID})
	}
	return entity.OrderLineItem{
		ItemID:          choice.Item().ID,
		ItemVariationID: choice.VariationID(),
		Quantity:        quantity,
		UnitPrice:       unit,
		TotalPrice:      LineTotal(unit, quantity),
	}, nil
}

func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// SubTotal is the only place line totals are summed.
func SubTotal(lines []entity.OrderLineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.TotalPrice)
	}
	return sum
}

// ValidateTables checks the dine-in table rule. The aggregator itself builds
// table-less drafts, so callers run this before persisting.
func ValidateTables(orderType entity.OrderType, tableIDs []string) error {
	switch orderType {
	case entity.OrderTypeDineIn:
		if len(tableIDs) == 0 {
			return common.ErrMissingTables
		}
	case entity.OrderTypeTakeaway:
		if len(tableIDs) > 0 {
			return common.ErrInvalidInput.WithDetails("takeaway orders cannot hold tables")
		}
	default:
		return common.ErrInvalidOrderType
	}
	return nil
}

func ValidOrderType(t entity.OrderType) bool {
	return t == entity.OrderTypeDineIn || t == entity.OrderTypeTakeaway
}

func tableRefs(ids []string) []entity.TableRef {
	refs := make([]entity.TableRef, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, entity.TableRef{ID: id})
	}
	return refs
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
