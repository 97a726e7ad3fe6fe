package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"restaurante-go/models"
	"restaurante-go/services"
	"restaurante-go/utils"
)

// Package-level wiring, assigned once in main before the router starts.
var (
	DB *gorm.DB

	Auth         *services.AuthService
	Catalog      *services.CatalogService
	Inventory    *services.InventoryService
	Orders       *services.OrderService
	Reservations *services.ReservationService
	Reports      *services.ReportService
)

const UserClaimsHandlerKey = "user_claims"

func currentClaims(c *gin.Context) *utils.Claims {
	claimsInterface, _ := c.Get(UserClaimsHandlerKey)
	if claimsInterface == nil {
		return nil
	}
	return claimsInterface.(*utils.Claims)
}

// currentUser loads the authenticated user row. Aborts with 401 when the
// token's user no longer exists.
func currentUser(c *gin.Context) (*models.User, bool) {
	claims := currentClaims(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User isn't authorized"})
		return nil, false
	}

	var user models.User
	if err := DB.First(&user, claims.UserID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User isn't authorized"})
		return nil, false
	}
	return &user, true
}

// abortWithServiceError maps the service error kinds onto HTTP statuses.
func abortWithServiceError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var conflict *services.ConflictError
	var invalidState *services.InvalidStateError
	var notFound *services.NotFoundError
	var permission *services.PermissionError

	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validation.Msg, "field": validation.Field})
	case errors.As(err, &conflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": conflict.Msg})
	case errors.As(err, &invalidState):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": invalidState.Msg})
	case errors.As(err, &notFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &permission):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": permission.Msg})
	default:
		log.Println(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
