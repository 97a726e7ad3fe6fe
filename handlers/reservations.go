package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurante-go/models"
)

type CreateReservationRequest struct {
	TableID   uint   `json:"table_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	PartySize int    `json:"party_size" binding:"required,gt=0"`
	Notes     string `json:"notes"`
}

type UpdateReservationStatusRequest struct {
	Status models.ReservationStatus `json:"status" binding:"required"`
}

type CreateTableRequest struct {
	Number   int    `json:"number" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
	Location string `json:"location"`
}

type UpdateTableRequest struct {
	Capacity  *int    `json:"capacity"`
	Available *bool   `json:"available"`
	Location  *string `json:"location"`
}

// CreateReservationHandler books a table for the authenticated client.
// Overlapping 2-hour windows on the same table and date are rejected.
func CreateReservationHandler(c *gin.Context) {
	var request CreateReservationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := currentClaims(c)
	reservation, err := Reservations.Create(claims.UserID, request.TableID,
		request.Date, request.StartTime, request.PartySize, request.Notes)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// ListReservationsHandler shows the caller's reservations; staff see all
// of them.
func ListReservationsHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	reservations, err := Reservations.ListForUser(user)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func GetReservationHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "reservation_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	reservation, err := Reservations.Get(id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if user.Role == models.RoleClient && reservation.ClientID != user.ID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// CancelReservationHandler cancels a reservation. Completed or already
// cancelled reservations are rejected.
func CancelReservationHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "reservation_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	reservation, err := Reservations.Get(id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if user.Role == models.RoleClient && reservation.ClientID != user.ID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}

	cancelled, err := Reservations.Cancel(id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelled)
}

// UpdateReservationStatusHandler is the staff transition endpoint
// (confirm, start, complete).
func UpdateReservationStatusHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "reservation_id")
	if !ok {
		return
	}

	var request UpdateReservationStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservation, err := Reservations.UpdateStatus(id, request.Status)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// AvailableTablesHandler lists tables free for the requested date and
// time slot.
func AvailableTablesHandler(c *gin.Context) {
	date := c.Query("date")
	start := c.Query("time")
	if date == "" || start == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date and time query parameters are required"})
		return
	}

	tables, err := Reservations.ListAvailableTables(date, start)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func ListTablesHandler(c *gin.Context) {
	var tables []models.Table
	if err := DB.Order("number").Find(&tables).Error; err != nil {
		abortWithServiceError(c, err)
		return
	}
	if tables == nil {
		tables = []models.Table{}
	}
	c.JSON(http.StatusOK, tables)
}

func CreateTableHandler(c *gin.Context) {
	var request CreateTableRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	table := models.Table{
		Number:    request.Number,
		Capacity:  request.Capacity,
		Available: true,
		Location:  request.Location,
	}
	if err := DB.Create(&table).Error; err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

func UpdateTableHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}

	var request UpdateTableRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if request.Capacity != nil {
		updates["capacity"] = *request.Capacity
	}
	if request.Available != nil {
		updates["available"] = *request.Available
	}
	if request.Location != nil {
		updates["location"] = *request.Location
	}
	if len(updates) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}

	result := DB.Model(&models.Table{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		abortWithServiceError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		return
	}

	var table models.Table
	if err := DB.First(&table, id).Error; err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// DeleteTableHandler refuses while reservations reference the table.
func DeleteTableHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}

	var count int64
	if err := DB.Model(&models.Reservation{}).Where("table_id = ?", id).Count(&count).Error; err != nil {
		abortWithServiceError(c, err)
		return
	}
	if count > 0 {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Table has reservations and cannot be deleted"})
		return
	}

	result := DB.Delete(&models.Table{}, id)
	if result.Error != nil {
		abortWithServiceError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted table"})
}
