package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restaurante-go/models"
)

// CatalogService manages categories, ingredients, dishes and their
// recipes. Deletes are restricted while other rows reference the target;
// deactivation is the supported way to retire catalog entries.
type CatalogService struct {
	DB        *gorm.DB
	Inventory *InventoryService
}

func NewCatalogService(db *gorm.DB, inventory *InventoryService) *CatalogService {
	return &CatalogService{DB: db, Inventory: inventory}
}

// BrowseMenu lists available dishes for clients, optionally filtered by
// category and a name/description search term.
func (s *CatalogService) BrowseMenu(categoryID uint, search string) ([]models.Dish, error) {
	query := s.DB.Preload("Category").Where("available = ?", true).Order("category_id, name")
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var dishes []models.Dish
	if err := query.Find(&dishes).Error; err != nil {
		return nil, err
	}
	if dishes == nil {
		dishes = []models.Dish{}
	}
	return dishes, nil
}

// GetDish returns one available dish with its recipe.
func (s *CatalogService) GetDish(id uint) (*models.Dish, error) {
	var dish models.Dish
	err := s.DB.Preload("Category").Preload("RecipeLines.Ingredient").First(&dish, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "dish"}
		}
		return nil, err
	}
	return &dish, nil
}

func (s *CatalogService) CreateCategory(name, description string) (*models.Category, error) {
	if name == "" {
		return nil, Validationf("name", "is required")
	}
	category := models.Category{Name: name, Description: description, Active: true}
	if err := s.DB.Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CatalogService) ListCategories(activeOnly bool) ([]models.Category, error) {
	query := s.DB.Order("name")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var categories []models.Category
	if err := query.Find(&categories).Error; err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// DeleteCategory refuses while any dish references the category.
func (s *CatalogService) DeleteCategory(id uint) error {
	var count int64
	if err := s.DB.Model(&models.Dish{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return Conflictf("category is referenced by %d dishes", count)
	}
	result := s.DB.Delete(&models.Category{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Entity: "category"}
	}
	return nil
}

// CreateIngredient also provisions a zero-quantity stock snapshot so the
// ledger has somewhere to fold into from the first movement.
func (s *CatalogService) CreateIngredient(name, description, unit string) (*models.Ingredient, error) {
	if name == "" {
		return nil, Validationf("name", "is required")
	}
	if unit == "" {
		unit = "unit"
	}

	ingredient := models.Ingredient{Name: name, Description: description, Unit: unit, Active: true}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ingredient).Error; err != nil {
			return err
		}
		_, err := s.Inventory.ensureSnapshot(tx, ingredient.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (s *CatalogService) ListIngredients(search string) ([]models.Ingredient, error) {
	query := s.DB.Order("name")
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	if ingredients == nil {
		ingredients = []models.Ingredient{}
	}
	return ingredients, nil
}

// DeactivateIngredient retires an ingredient without deleting it, for
// when recipes or movements still reference it.
func (s *CatalogService) DeactivateIngredient(id uint) error {
	result := s.DB.Model(&models.Ingredient{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Entity: "ingredient"}
	}
	return nil
}

// DeleteIngredient refuses while recipe lines or movements reference the
// ingredient.
func (s *CatalogService) DeleteIngredient(id uint) error {
	var recipeCount int64
	if err := s.DB.Model(&models.RecipeLine{}).Where("ingredient_id = ?", id).Count(&recipeCount).Error; err != nil {
		return err
	}
	if recipeCount > 0 {
		return Conflictf("ingredient is referenced by %d recipe lines", recipeCount)
	}
	var movementCount int64
	if err := s.DB.Model(&models.InventoryMovement{}).Where("ingredient_id = ?", id).Count(&movementCount).Error; err != nil {
		return err
	}
	if movementCount > 0 {
		return Conflictf("ingredient has %d ledger movements", movementCount)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ingredient_id = ?", id).Delete(&models.StockSnapshot{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Ingredient{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Entity: "ingredient"}
		}
		return nil
	})
}

// RecipeInput is one ingredient+quantity pair of a dish recipe.
type RecipeInput struct {
	IngredientID uint
	Quantity     decimal.Decimal
}

// CreateDish creates a dish and its recipe lines in one transaction.
func (s *CatalogService) CreateDish(name, description string, categoryID uint, price decimal.Decimal, prepMinutes int, recipe []RecipeInput) (*models.Dish, error) {
	if name == "" {
		return nil, Validationf("name", "is required")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, Validationf("price", "must be greater than zero")
	}
	if prepMinutes <= 0 {
		prepMinutes = 30
	}

	var dish models.Dish
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "category"}
			}
			return err
		}

		dish = models.Dish{
			Name:        name,
			Description: description,
			CategoryID:  categoryID,
			Price:       price,
			Available:   true,
			PrepMinutes: prepMinutes,
		}
		if err := tx.Create(&dish).Error; err != nil {
			return err
		}
		return s.replaceRecipe(tx, dish.ID, recipe)
	})
	if err != nil {
		return nil, err
	}
	return s.GetDish(dish.ID)
}

// UpdateDish applies partial updates and, when recipe is non-nil,
// replaces the whole recipe.
func (s *CatalogService) UpdateDish(id uint, updates map[string]any, recipe []RecipeInput) (*models.Dish, error) {
	if price, ok := updates["price"].(decimal.Decimal); ok && price.LessThanOrEqual(decimal.Zero) {
		return nil, Validationf("price", "must be greater than zero")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var dish models.Dish
		if err := tx.First(&dish, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "dish"}
			}
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&dish).Updates(updates).Error; err != nil {
				return err
			}
		}
		if recipe != nil {
			if err := tx.Where("dish_id = ?", id).Delete(&models.RecipeLine{}).Error; err != nil {
				return err
			}
			return s.replaceRecipe(tx, id, recipe)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDish(id)
}

func (s *CatalogService) replaceRecipe(tx *gorm.DB, dishID uint, recipe []RecipeInput) error {
	seen := make(map[uint]bool)
	for _, line := range recipe {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return Validationf("recipe", "quantity must be greater than zero")
		}
		if seen[line.IngredientID] {
			return Validationf("recipe", "duplicate ingredient %d", line.IngredientID)
		}
		seen[line.IngredientID] = true

		var ingredient models.Ingredient
		if err := tx.First(&ingredient, line.IngredientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "ingredient"}
			}
			return err
		}
		recipeLine := models.RecipeLine{
			DishID:       dishID,
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
		}
		if err := tx.Create(&recipeLine).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteDish refuses while order lines reference the dish; the recipe
// goes with it.
func (s *CatalogService) DeleteDish(id uint) error {
	var count int64
	if err := s.DB.Model(&models.OrderLine{}).Where("dish_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return Conflictf("dish is referenced by %d order lines", count)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dish_id = ?", id).Delete(&models.RecipeLine{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Dish{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Entity: "dish"}
		}
		return nil
	})
}

// ListDishes is the staff view: every dish regardless of availability.
func (s *CatalogService) ListDishes(search string) ([]models.Dish, error) {
	query := s.DB.Preload("Category").Preload("RecipeLines.Ingredient").Order("created_at DESC")
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	var dishes []models.Dish
	if err := query.Find(&dishes).Error; err != nil {
		return nil, err
	}
	if dishes == nil {
		dishes = []models.Dish{}
	}
	return dishes, nil
}
