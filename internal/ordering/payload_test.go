package ordering

import (
	"encoding/json"
	"testing"

	"restaurant-order-service/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePayloadDropsEmptyCustomer(t *testing.T) {
	empty := ""
	draft := &entity.OrderDraft{
		OrderType:  entity.OrderTypeTakeaway,
		Tables:     []entity.TableRef{},
		UserID:     "staff-1",
		CustomerID: &empty,
		Status:     entity.StatusPending,
		OrderItems: []entity.OrderLineItem{{ItemID: "A", Quantity: 1, UnitPrice: d("80"), TotalPrice: d("80")}},
		SubTotal:   d("80"),
	}

	m, err := NormalizePayload(draft)
	require.NoError(t, err)

	assert.NotContains(t, m, "customer_id")
	assert.NotContains(t, m, "payment_method")
	assert.Equal(t, "80", m["sub_total"])
	assert.Equal(t, []any{}, m["tables"])

	items := m["order_items"].([]any)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.NotContains(t, line, "item_variation_id")
	assert.Equal(t, json.Number("1"), line["quantity"])
}

func TestNormalizePayloadNested(t *testing.T) {
	in := map[string]any{
		"a": "",
		"b": nil,
		"c": map[string]any{"d": map[string]any{"e": nil}},
		"f": []any{map[string]any{"g": ""}, "x", nil, 0},
		"h": map[string]any{"i": "keep", "j": ""},
		"k": false,
	}

	m, err := NormalizePayload(in)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"f": []any{"x", json.Number("0")},
		"h": map[string]any{"i": "keep"},
		"k": false,
	}, m)
}

func TestMarshalPayloadNilCustomer(t *testing.T) {
	raw, err := MarshalPayload(entity.OrderDraft{OrderType: entity.OrderTypeDineIn, UserID: "u"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "customer_id")
	assert.Contains(t, string(raw), `"user_id":"u"`)
}
