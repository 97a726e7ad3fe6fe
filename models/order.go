package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusInPreparation OrderStatus = "in_preparation"
	OrderStatusReady         OrderStatus = "ready"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusInPreparation,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// TaxRate is the VAT applied on top of the order subtotal (19%).
var TaxRate = decimal.NewFromFloat(0.19)

// Order is both the active cart (while pending) and the committed order
// after checkout. At most one pending order exists per client.
type Order struct {
	gorm.Model
	ClientID    uint            `json:"client_id" gorm:"not null;index:idx_client_status"`
	Client      User            `json:"client,omitempty" gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
	WaiterID    *uint           `json:"waiter_id"`
	Waiter      *User           `json:"waiter,omitempty" gorm:"foreignKey:WaiterID;constraint:OnDelete:SET NULL"`
	Status      OrderStatus     `json:"status" gorm:"not null;index:idx_client_status;default:'pending'"`
	Payment     PaymentMethod   `json:"payment,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null;default:0"`
	Tax         decimal.Decimal `json:"tax" gorm:"type:decimal(10,2);not null;default:0"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null;default:0"`
	Notes       string          `json:"notes"`
	Lines       []OrderLine     `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
	DeliveredAt *time.Time      `json:"delivered_at"`
}

// OrderLine captures the dish price at add-time; later price changes on
// the dish do not affect lines already in a cart.
type OrderLine struct {
	gorm.Model
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	Order     Order           `json:"-" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DishID    uint            `json:"dish_id" gorm:"not null"`
	Dish      Dish            `json:"dish,omitempty" gorm:"foreignKey:DishID;constraint:OnDelete:RESTRICT"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Notes     string          `json:"notes"`
}
