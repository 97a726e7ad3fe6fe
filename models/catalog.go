package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	gorm.Model
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	Active      bool   `json:"active" gorm:"default:true"`
}

type Ingredient struct {
	gorm.Model
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	Unit        string `json:"unit" gorm:"not null;default:'unit'"` // kg, liters, units, ...
	Active      bool   `json:"active" gorm:"default:true"`
}

type Dish struct {
	gorm.Model
	Name        string          `json:"name" gorm:"not null"`
	Description string          `json:"description"`
	CategoryID  uint            `json:"category_id" gorm:"not null;index"`
	Category    Category        `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Available   bool            `json:"available" gorm:"default:true;index"`
	PrepMinutes int             `json:"prep_minutes" gorm:"default:30"`
	RecipeLines []RecipeLine    `json:"recipe_lines,omitempty" gorm:"foreignKey:DishID"`
}

// RecipeLine is the quantity of one ingredient needed per unit of one dish.
type RecipeLine struct {
	gorm.Model
	DishID       uint            `json:"dish_id" gorm:"not null;uniqueIndex:idx_dish_ingredient"`
	Dish         Dish            `json:"-" gorm:"foreignKey:DishID;constraint:OnDelete:CASCADE"`
	IngredientID uint            `json:"ingredient_id" gorm:"not null;uniqueIndex:idx_dish_ingredient"`
	Ingredient   Ingredient      `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID;constraint:OnDelete:RESTRICT"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(10,2);not null"`
}
