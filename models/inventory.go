package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MovementKind string

const (
	MovementEntry      MovementKind = "entry"
	MovementExit       MovementKind = "exit"
	MovementAdjustment MovementKind = "adjustment"
)

func (k MovementKind) Valid() bool {
	switch k {
	case MovementEntry, MovementExit, MovementAdjustment:
		return true
	}
	return false
}

// InventoryMovement is an immutable ledger entry. Movements are never
// updated or deleted; the stock snapshot is the running fold of them.
type InventoryMovement struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	IngredientID uint            `json:"ingredient_id" gorm:"not null;index"`
	Ingredient   Ingredient      `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID;constraint:OnDelete:RESTRICT"`
	Kind         MovementKind    `json:"kind" gorm:"not null"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(10,2);not null"`
	Reason       string          `json:"reason"`
	UserID       *uint           `json:"user_id"`
	User         *User           `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	CreatedAt    time.Time       `json:"created_at" gorm:"index"`
}

// StockSnapshot is the derived current-quantity view, one per ingredient.
type StockSnapshot struct {
	gorm.Model
	IngredientID uint            `json:"ingredient_id" gorm:"uniqueIndex;not null"`
	Ingredient   Ingredient      `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	Current      decimal.Decimal `json:"current" gorm:"type:decimal(10,2);not null;default:0"`
	Minimum      decimal.Decimal `json:"minimum" gorm:"type:decimal(10,2);not null;default:0"`
}

// NeedsReplenishment reports whether current stock has fallen to or
// below the configured minimum.
func (s *StockSnapshot) NeedsReplenishment() bool {
	return s.Current.LessThanOrEqual(s.Minimum)
}
