package ordering

import (
	"context"
	"errors"
	"testing"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to entity.OrderStatus
		want     bool
	}{
		{entity.StatusPending, entity.StatusProcessing, true},
		{entity.StatusPending, entity.StatusCancelled, true},
		{entity.StatusProcessing, entity.StatusCompleted, true},
		{entity.StatusProcessing, entity.StatusCancelled, true},
		{entity.StatusPending, entity.StatusCompleted, false},
		{entity.StatusPending, entity.StatusPending, false},
		{entity.StatusProcessing, entity.StatusPending, false},
		{entity.StatusCompleted, entity.StatusPending, false},
		{entity.StatusCompleted, entity.StatusCancelled, false},
		{entity.StatusCancelled, entity.StatusProcessing, false},
		{entity.StatusCancelled, entity.StatusPending, false},
		{"UNKNOWN", entity.StatusProcessing, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func newPending(t *testing.T) *entity.Order {
	t.Helper()
	draft, err := NewAggregator(catalog()).Build(context.Background(),
		[]entity.OrderLineSelection{{ItemID: "A", Quantity: 1}, {ItemID: "B", VariationID: "B-big", Quantity: 2}}, dineIn())
	require.NoError(t, err)
	return NewOrder(draft)
}

func TestPendingHasNoTotal(t *testing.T) {
	o := newPending(t)
	assert.Equal(t, entity.StatusPending, o.Status)
	assert.Equal(t, 1, o.Version)
	assert.True(t, o.SubTotal.Equal(d("210")))
	assert.Nil(t, o.TotalAmount)

	s := Summarize(o)
	assert.Nil(t, s.DiscountAmount)
	assert.Nil(t, s.TotalAmount)
	assert.True(t, s.SubTotal.Equal(d("210")))
}

func TestTransitionRejectsIllegalMoveWithoutChange(t *testing.T) {
	o := newPending(t)
	err := Transition(o, entity.StatusCompleted)
	assert.True(t, errors.Is(err, common.ErrInvalidTransition))
	assert.Equal(t, entity.StatusPending, o.Status)
	assert.Nil(t, o.TotalAmount)
}

func TestProcessingComputesTotal(t *testing.T) {
	o := newPending(t)
	require.NoError(t, Transition(o, entity.StatusProcessing))
	require.NotNil(t, o.TotalAmount)
	assert.True(t, o.TotalAmount.Equal(d("210")))

	require.NoError(t, SetDiscount(o, d("500"), nil))
	assert.True(t, o.DiscountAmount.Equal(d("210")), "discount is clamped to the sub total")
	assert.True(t, o.TotalAmount.IsZero())

	s := Summarize(o)
	require.NotNil(t, s.TotalAmount)
	require.NotNil(t, s.DiscountAmount)
	assert.True(t, s.DiscountAmount.Equal(d("210")))
}

func TestReplaceItemsWhileProcessing(t *testing.T) {
	o := newPending(t)
	require.NoError(t, Transition(o, entity.StatusProcessing))
	require.NoError(t, SetDiscount(o, d("10"), nil))

	line, err := NewAggregator(catalog()).PriceLines(context.Background(), []entity.OrderLineSelection{{ItemID: "A", Quantity: 3}})
	require.NoError(t, err)
	require.NoError(t, ReplaceItems(o, line))

	assert.Len(t, o.OrderItems, 1)
	assert.True(t, o.SubTotal.Equal(d("240")))
	assert.True(t, o.TotalAmount.Equal(d("230")))
}

func TestTerminalOrdersAreLocked(t *testing.T) {
	completed := newPending(t)
	require.NoError(t, Transition(completed, entity.StatusProcessing))
	require.NoError(t, Transition(completed, entity.StatusCompleted))

	cancelled := newPending(t)
	require.NoError(t, Transition(cancelled, entity.StatusCancelled))

	for _, o := range []*entity.Order{completed, cancelled} {
		assert.True(t, errors.Is(ReplaceItems(o, nil), common.ErrOrderLocked))
		assert.True(t, errors.Is(SetDiscount(o, d("1"), nil), common.ErrOrderLocked))
		assert.True(t, errors.Is(Reconcile(o), common.ErrOrderLocked))
		assert.True(t, errors.Is(Transition(o, entity.StatusPending), common.ErrInvalidTransition))
	}
}

func TestCancelFreezesPrices(t *testing.T) {
	o := newPending(t)
	o.SubTotal = d("999")
	require.NoError(t, Transition(o, entity.StatusCancelled))
	assert.True(t, o.SubTotal.Equal(d("999")))
	assert.Nil(t, o.TotalAmount)
}
