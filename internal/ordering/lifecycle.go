package ordering

import (
	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"

	"github.com/shopspring/decimal"
)

var transitions = map[entity.OrderStatus][]entity.OrderStatus{
	entity.StatusPending:    {entity.StatusProcessing, entity.StatusCancelled},
	entity.StatusProcessing: {entity.StatusCompleted, entity.StatusCancelled},
}

func CanTransition(from, to entity.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(s entity.OrderStatus) bool {
	return s == entity.StatusCompleted || s == entity.StatusCancelled
}

// Editable reports whether items and discount may still change.
func Editable(s entity.OrderStatus) bool {
	return s == entity.StatusPending || s == entity.StatusProcessing
}

func ValidStatus(s entity.OrderStatus) bool {
	switch s {
	case entity.StatusPending, entity.StatusProcessing, entity.StatusCompleted, entity.StatusCancelled:
		return true
	}
	return false
}

// Transition moves o to status to. Cancelling freezes prices as they are;
// every other move recomputes totals.
func Transition(o *entity.Order, to entity.OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return common.ErrInvalidTransition.WithDetails(map[string]entity.OrderStatus{"from": o.Status, "to": to})
	}
	o.Status = to
	if to != entity.StatusCancelled {
		reconcile(o)
	}
	return nil
}

// ReplaceItems swaps the whole line list of an editable order.
func ReplaceItems(o *entity.Order, lines []entity.OrderLineItem) error {
	if !Editable(o.Status) {
		return common.ErrOrderLocked
	}
	o.OrderItems = lines
	reconcile(o)
	return nil
}

// SetDiscount records the discount of an editable order.
func SetDiscount(o *entity.Order, amount decimal.Decimal, discountID *string) error {
	if !Editable(o.Status) {
		return common.ErrOrderLocked
	}
	o.DiscountAmount = amount
	o.DiscountID = discountID
	reconcile(o)
	return nil
}

// Reconcile recomputes the derived money fields of an editable order.
func Reconcile(o *entity.Order) error {
	if IsTerminal(o.Status) {
		return common.ErrOrderLocked
	}
	reconcile(o)
	return nil
}

func reconcile(o *entity.Order) {
	o.SubTotal = SubTotal(o.OrderItems)
	if o.DiscountAmount.GreaterThan(o.SubTotal) {
		o.DiscountAmount = o.SubTotal
	}
	if o.Status == entity.StatusPending {
		o.TotalAmount = nil
		return
	}
	total := o.SubTotal.Sub(o.DiscountAmount)
	o.TotalAmount = &total
}

// Summary is what the order detail view shows. While PENDING only the sub
// total is meaningful.
type Summary struct {
	Status         entity.OrderStatus `json:"status"`
	SubTotal       decimal.Decimal    `json:"sub_total"`
	DiscountAmount *decimal.Decimal   `json:"discount_amount,omitempty"`
	TotalAmount    *decimal.Decimal   `json:"total_amount,omitempty"`
}

func Summarize(o *entity.Order) Summary {
	s := Summary{Status: o.Status, SubTotal: o.SubTotal}
	if o.Status == entity.StatusPending {
		return s
	}
	discount := o.DiscountAmount
	s.DiscountAmount = &discount
	if o.TotalAmount != nil {
		total := *o.TotalAmount
		s.TotalAmount = &total
	} else {
		total := o.SubTotal.Sub(o.DiscountAmount)
		s.TotalAmount = &total
	}
	return s
}

// NewOrder turns a draft into an unsaved PENDING order.
func NewOrder(draft *entity.OrderDraft) *entity.Order {
	o := &entity.Order{
		OrderType:     draft.OrderType,
		Tables:        draft.Tables,
		CustomerID:    draft.CustomerID,
		UserID:        draft.UserID,
		Status:        entity.StatusPending,
		PaymentMethod: draft.PaymentMethod,
		OrderItems:    draft.OrderItems,
		Version:       1,
	}
	reconcile(o)
	return o
}
