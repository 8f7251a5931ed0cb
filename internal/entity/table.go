package entity

import "github.com/shopspring/decimal"

type Table struct {
	ID       string `json:"id"`
	Number   int    `json:"number"`
	Seat     int    `json:"seat"`
	Location string `json:"location"`
	Status   string `json:"status"` // available, occupied, reserved
}

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

type Discount struct {
	ID     string          `json:"id"`
	Code   string          `json:"code"`
	Type   DiscountType    `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Active bool            `json:"active"`
}
