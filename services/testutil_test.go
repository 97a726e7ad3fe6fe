package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurante-go/models"
)

var testDBCounter int64

// newTestDB opens a fresh in-memory SQLite database. Each test gets its
// own named shared-cache DB so gorm's connection pool sees one store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.PendingRegistration{}, &models.PasswordResetToken{},
		&models.Category{}, &models.Ingredient{}, &models.Dish{}, &models.RecipeLine{},
		&models.InventoryMovement{}, &models.StockSnapshot{},
		&models.Order{}, &models.OrderLine{},
		&models.Table{}, &models.Reservation{},
	))
	return db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func createClient(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     models.RoleClient,
	}
	require.NoError(t, user.HashPassword("password123"))
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := models.Category{Name: name, Active: true}
	require.NoError(t, db.Create(&category).Error)
	return &category
}

// createIngredient makes an ingredient and its stock snapshot with the
// given current and minimum quantities.
func createIngredient(t *testing.T, db *gorm.DB, name, current, minimum string) *models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, Unit: "kg", Active: true}
	require.NoError(t, db.Create(&ingredient).Error)
	snapshot := models.StockSnapshot{
		IngredientID: ingredient.ID,
		Current:      dec(current),
		Minimum:      dec(minimum),
	}
	require.NoError(t, db.Create(&snapshot).Error)
	return &ingredient
}

// createDish makes an available dish with an optional recipe given as
// ingredientID -> quantity pairs.
func createDish(t *testing.T, db *gorm.DB, name, price string, categoryID uint, recipe map[uint]string) *models.Dish {
	t.Helper()
	dish := models.Dish{
		Name:        name,
		CategoryID:  categoryID,
		Price:       dec(price),
		Available:   true,
		PrepMinutes: 20,
	}
	require.NoError(t, db.Create(&dish).Error)
	for ingredientID, quantity := range recipe {
		line := models.RecipeLine{DishID: dish.ID, IngredientID: ingredientID, Quantity: dec(quantity)}
		require.NoError(t, db.Create(&line).Error)
	}
	return &dish
}

func createTable(t *testing.T, db *gorm.DB, number, capacity int) *models.Table {
	t.Helper()
	table := models.Table{Number: number, Capacity: capacity, Available: true}
	require.NoError(t, db.Create(&table).Error)
	return &table
}
