package entity

import (
	"time"
)

// Order is one customer's order inside a tab. Line items live in OrderItem
// rows keyed by OrderID.
type Order struct {
	ID           string `json:"order_id" gorm:"primaryKey;size:40"`
	TabName      string `json:"tab_name" gorm:"size:64;not null;index"`
	CustomerName string `json:"full_name" gorm:"size:200;not null"`
	Email        string `json:"email" gorm:"size:200;index"`
	Telegram     string `json:"telegram" gorm:"size:100;index"`

	Status        string `json:"status" gorm:"size:20;default:Pending"`
	PaymentStatus string `json:"payment_status" gorm:"size:30;default:Unpaid"`
	AdminLocked   bool   `json:"admin_locked" gorm:"default:false"`

	ExchangeRate  float64 `json:"exchange_rate" gorm:"type:decimal(10,4)"`
	SubtotalUSD   float64 `json:"subtotal_usd" gorm:"type:decimal(12,2)"`
	AdminFeePHP   float64 `json:"admin_fee_php" gorm:"type:decimal(12,2)"`
	GrandTotalPHP float64 `json:"grand_total_php" gorm:"type:decimal(14,2)"`

	PaymentProofURI string     `json:"payment_proof_uri" gorm:"size:512"`
	PaymentAt       *time.Time `json:"payment_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "haul_orders"
}

// Order status
const (
	OrderStatusPending   = "Pending"
	OrderStatusLocked    = "Locked"
	OrderStatusCancelled = "Cancelled"
)

// Payment status
const (
	PaymentStatusUnpaid              = "Unpaid"
	PaymentStatusWaitingConfirmation = "WaitingConfirmation"
	PaymentStatusPaid                = "Paid"
)

// OrderItem is one priced line. Supplier records which supplier's price was
// charged and is never re-derived from the product code after the fact.
type OrderItem struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	OrderID     string `json:"order_id" gorm:"size:40;not null;index"`
	ProductCode string `json:"product_code" gorm:"size:32;not null"`
	ProductName string `json:"product_name" gorm:"size:200"`
	Supplier    string `json:"supplier" gorm:"size:64;not null"`
	OrderType   string `json:"order_type" gorm:"size:10;not null"` // Kit / Vial
	Quantity    int    `json:"qty" gorm:"not null"`

	UnitPriceUSD float64 `json:"unit_price_usd" gorm:"type:decimal(12,2)"`
	LineTotalUSD float64 `json:"line_total_usd" gorm:"type:decimal(12,2)"`
	ExchangeRate float64 `json:"exchange_rate" gorm:"type:decimal(10,4)"`
	LineTotalPHP float64 `json:"line_total_php" gorm:"type:decimal(14,2)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "haul_order_items"
}
