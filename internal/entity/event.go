package entity

import "time"

const (
	EventCreated      = "created"
	EventItemsUpdated = "items_updated"
	EventDiscounted   = "discounted"
	EventProcessing   = "processing"
	EventCompleted    = "completed"
	EventCancelled    = "cancelled"
	EventTrashed      = "trashed"
	EventRestored     = "restored"
	EventPurged       = "purged"
)

// OrderEvent is published on every persisted change to an order.
type OrderEvent struct {
	Event          string      `json:"event"`
	Order          Order       `json:"order"`
	PreviousStatus OrderStatus `json:"previous_status,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

type TicketLine struct {
	ItemID        string `json:"item_id"`
	Name          string `json:"name"`
	VariationName string `json:"variation_name,omitempty"`
	Quantity      int    `json:"quantity"`
}

// StationTicket is what the bar or kitchen sees for one order.
type StationTicket struct {
	OrderID   string       `json:"order_id"`
	OrderCode string       `json:"order_code"`
	Station   ItemType     `json:"station"`
	Cancelled bool         `json:"cancelled,omitempty"`
	Amended   bool         `json:"amended,omitempty"`
	Lines     []TicketLine `json:"lines"`
	CreatedAt time.Time    `json:"created_at"`
}
