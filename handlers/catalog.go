package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"restaurante-go/services"
)

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CreateIngredientRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
}

type RecipeLineRequest struct {
	IngredientID uint            `json:"ingredient_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
}

type CreateDishRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	CategoryID  uint                `json:"category_id" binding:"required"`
	Price       decimal.Decimal     `json:"price" binding:"required"`
	PrepMinutes int                 `json:"prep_minutes"`
	Recipe      []RecipeLineRequest `json:"recipe"`
}

type UpdateDishRequest struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	CategoryID  *uint                `json:"category_id"`
	Price       *decimal.Decimal     `json:"price"`
	Available   *bool                `json:"available"`
	PrepMinutes *int                 `json:"prep_minutes"`
	Recipe      *[]RecipeLineRequest `json:"recipe"`
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// BrowseMenuHandler is the public menu: available dishes, filterable by
// category and search term.
func BrowseMenuHandler(c *gin.Context) {
	var categoryID uint
	if raw := c.Query("category"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
			return
		}
		categoryID = uint(parsed)
	}

	dishes, err := Catalog.BrowseMenu(categoryID, c.Query("search"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dishes)
}

func GetDishHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "dish_id")
	if !ok {
		return
	}
	dish, err := Catalog.GetDish(id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

func ListCategoriesHandler(c *gin.Context) {
	categories, err := Catalog.ListCategories(c.Query("all") != "1")
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func CreateCategoryHandler(c *gin.Context) {
	var request CreateCategoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := Catalog.CreateCategory(request.Name, request.Description)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func DeleteCategoryHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "category_id")
	if !ok {
		return
	}
	if err := Catalog.DeleteCategory(id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted category"})
}

func ListIngredientsHandler(c *gin.Context) {
	ingredients, err := Catalog.ListIngredients(c.Query("search"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

func CreateIngredientHandler(c *gin.Context) {
	var request CreateIngredientRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ingredient, err := Catalog.CreateIngredient(request.Name, request.Description, request.Unit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}

func DeactivateIngredientHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "ingredient_id")
	if !ok {
		return
	}
	if err := Catalog.DeactivateIngredient(id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ingredient deactivated"})
}

func DeleteIngredientHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "ingredient_id")
	if !ok {
		return
	}
	if err := Catalog.DeleteIngredient(id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted ingredient"})
}

func ListDishesAdminHandler(c *gin.Context) {
	dishes, err := Catalog.ListDishes(c.Query("search"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dishes)
}

func CreateDishHandler(c *gin.Context) {
	var request CreateDishRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dish, err := Catalog.CreateDish(request.Name, request.Description, request.CategoryID,
		request.Price, request.PrepMinutes, recipeInputs(request.Recipe))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dish)
}

func UpdateDishHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "dish_id")
	if !ok {
		return
	}

	var request UpdateDishRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Build map for updates to handle partial updates correctly with pointers
	updates := make(map[string]interface{})
	if request.Name != nil {
		updates["name"] = *request.Name
	}
	if request.Description != nil {
		updates["description"] = *request.Description
	}
	if request.CategoryID != nil {
		updates["category_id"] = *request.CategoryID
	}
	if request.Price != nil {
		updates["price"] = *request.Price
	}
	if request.Available != nil {
		updates["available"] = *request.Available
	}
	if request.PrepMinutes != nil {
		updates["prep_minutes"] = *request.PrepMinutes
	}

	var recipe []services.RecipeInput
	if request.Recipe != nil {
		recipe = recipeInputs(*request.Recipe)
	}
	if len(updates) == 0 && recipe == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}

	dish, err := Catalog.UpdateDish(id, updates, recipe)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

func DeleteDishHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "dish_id")
	if !ok {
		return
	}
	if err := Catalog.DeleteDish(id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted dish"})
}

func recipeInputs(lines []RecipeLineRequest) []services.RecipeInput {
	inputs := make([]services.RecipeInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, services.RecipeInput{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
		})
	}
	return inputs
}
