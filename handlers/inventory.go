package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"restaurante-go/models"
)

type RecordMovementRequest struct {
	IngredientID uint                `json:"ingredient_id" binding:"required"`
	Kind         models.MovementKind `json:"kind" binding:"required"`
	Quantity     decimal.Decimal     `json:"quantity" binding:"required"`
	Reason       string              `json:"reason"`
}

type SetMinimumRequest struct {
	Minimum decimal.Decimal `json:"minimum"`
}

// ListStockHandler lists snapshots; ?low=1 keeps only the ones at or
// below their minimum.
func ListStockHandler(c *gin.Context) {
	snapshots, err := Inventory.ListStock(c.Query("search"), c.Query("low") == "1")
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	type stockRow struct {
		models.StockSnapshot
		NeedsReplenishment bool `json:"needs_replenishment"`
	}
	rows := make([]stockRow, 0, len(snapshots))
	for _, snap := range snapshots {
		rows = append(rows, stockRow{StockSnapshot: snap, NeedsReplenishment: snap.NeedsReplenishment()})
	}
	c.JSON(http.StatusOK, rows)
}

// GetStockDetailHandler returns one snapshot plus its latest movements.
func GetStockDetailHandler(c *gin.Context) {
	ingredientID, ok := parseIDParam(c, "ingredient_id")
	if !ok {
		return
	}

	snapshot, err := Inventory.Snapshot(ingredientID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	movements, err := Inventory.Movements(ingredientID, 20)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stock":               snapshot,
		"needs_replenishment": snapshot.NeedsReplenishment(),
		"movements":           movements,
	})
}

// RecordMovementHandler appends a ledger movement and returns the
// updated snapshot.
func RecordMovementHandler(c *gin.Context) {
	var request RecordMovementRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := currentClaims(c)
	snapshot, err := Inventory.RecordMovement(request.IngredientID, request.Kind,
		request.Quantity, request.Reason, &claims.UserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

// SetMinimumHandler updates an ingredient's replenishment threshold.
func SetMinimumHandler(c *gin.Context) {
	ingredientID, ok := parseIDParam(c, "ingredient_id")
	if !ok {
		return
	}

	var request SetMinimumRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := Inventory.SetMinimum(ingredientID, request.Minimum)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
