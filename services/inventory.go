package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restaurante-go/models"
)

// InventoryService owns the movement ledger and the derived stock
// snapshots. Every mutation appends a movement and folds it into the
// snapshot within one transaction, so the invariant "snapshot = fold of
// all movements" holds after each call.
type InventoryService struct {
	DB *gorm.DB
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{DB: db}
}

// RecordMovement appends an immutable movement and updates the snapshot
// atomically. Entry adds, exit subtracts clamped at zero, adjustment
// overwrites. Returns the updated snapshot.
func (s *InventoryService) RecordMovement(ingredientID uint, kind models.MovementKind, quantity decimal.Decimal, reason string, userID *uint) (*models.StockSnapshot, error) {
	var snapshot *models.StockSnapshot
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		snapshot, err = s.RecordMovementTx(tx, ingredientID, kind, quantity, reason, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RecordMovementTx is RecordMovement running inside a caller-owned
// transaction. Checkout uses it so the whole recipe fan-out commits or
// rolls back as one unit.
func (s *InventoryService) RecordMovementTx(tx *gorm.DB, ingredientID uint, kind models.MovementKind, quantity decimal.Decimal, reason string, userID *uint) (*models.StockSnapshot, error) {
	if !kind.Valid() {
		return nil, Validationf("kind", "unknown movement kind %q", kind)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, Validationf("quantity", "must be greater than zero")
	}

	var ingredient models.Ingredient
	if err := tx.First(&ingredient, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "ingredient"}
		}
		return nil, err
	}

	movement := models.InventoryMovement{
		IngredientID: ingredientID,
		Kind:         kind,
		Quantity:     quantity,
		Reason:       reason,
		UserID:       userID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}

	snapshot, err := s.ensureSnapshot(tx, ingredientID)
	if err != nil {
		return nil, err
	}

	switch kind {
	case models.MovementEntry:
		snapshot.Current = snapshot.Current.Add(quantity)
	case models.MovementExit:
		snapshot.Current = snapshot.Current.Sub(quantity)
		if snapshot.Current.IsNegative() {
			snapshot.Current = decimal.Zero
		}
	case models.MovementAdjustment:
		snapshot.Current = quantity
	}

	if err := tx.Model(snapshot).Update("current", snapshot.Current).Error; err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *InventoryService) ensureSnapshot(tx *gorm.DB, ingredientID uint) (*models.StockSnapshot, error) {
	var snapshot models.StockSnapshot
	err := tx.Where("ingredient_id = ?", ingredientID).
		Attrs(models.StockSnapshot{Current: decimal.Zero, Minimum: decimal.Zero}).
		FirstOrCreate(&snapshot, models.StockSnapshot{IngredientID: ingredientID}).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// EnsureSnapshot provisions a zero-quantity snapshot for an ingredient
// if one does not exist yet.
func (s *InventoryService) EnsureSnapshot(ingredientID uint) (*models.StockSnapshot, error) {
	return s.ensureSnapshot(s.DB, ingredientID)
}

// NeedsReplenishment reports whether the ingredient's stock is at or
// below its minimum threshold.
func (s *InventoryService) NeedsReplenishment(ingredientID uint) (bool, error) {
	snapshot, err := s.Snapshot(ingredientID)
	if err != nil {
		return false, err
	}
	return snapshot.NeedsReplenishment(), nil
}

// Snapshot returns the stock snapshot for an ingredient.
func (s *InventoryService) Snapshot(ingredientID uint) (*models.StockSnapshot, error) {
	var snapshot models.StockSnapshot
	err := s.DB.Preload("Ingredient").Where("ingredient_id = ?", ingredientID).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "stock snapshot"}
		}
		return nil, err
	}
	return &snapshot, nil
}

// ListStock returns all snapshots, optionally filtered by ingredient
// name and by low-stock status.
func (s *InventoryService) ListStock(search string, lowOnly bool) ([]models.StockSnapshot, error) {
	query := s.DB.Preload("Ingredient").
		Joins("JOIN ingredients ON ingredients.id = stock_snapshots.ingredient_id").
		Order("ingredients.name")
	if search != "" {
		query = query.Where("ingredients.name LIKE ?", "%"+search+"%")
	}

	var snapshots []models.StockSnapshot
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}
	if !lowOnly {
		return snapshots, nil
	}

	low := make([]models.StockSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.NeedsReplenishment() {
			low = append(low, snap)
		}
	}
	return low, nil
}

// Movements returns the latest movements for an ingredient, newest
// first. A limit of 0 means no limit.
func (s *InventoryService) Movements(ingredientID uint, limit int) ([]models.InventoryMovement, error) {
	query := s.DB.Where("ingredient_id = ?", ingredientID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var movements []models.InventoryMovement
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// SetMinimum updates the replenishment threshold for an ingredient.
func (s *InventoryService) SetMinimum(ingredientID uint, minimum decimal.Decimal) (*models.StockSnapshot, error) {
	if minimum.IsNegative() {
		return nil, Validationf("minimum", "must not be negative")
	}
	snapshot, err := s.ensureSnapshot(s.DB, ingredientID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Model(snapshot).Update("minimum", minimum).Error; err != nil {
		return nil, err
	}
	return snapshot, nil
}
