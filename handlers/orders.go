package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurante-go/models"
)

// AddLineRequest defines the request body (JSON) for adding a dish to
// the cart.
type AddLineRequest struct {
	DishID   uint `json:"dish_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,gt=0"`
}

type UpdateLineRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	Payment models.PaymentMethod `json:"payment" binding:"required"`
	Notes   string               `json:"notes"`
}

// UpdateOrderStatusRequest defines the request body for staff updating
// an order's state.
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type AssignWaiterRequest struct {
	WaiterID uint `json:"waiter_id" binding:"required"`
}

// GetCartHandler returns the client's pending order, creating an empty
// one on first access.
func GetCartHandler(c *gin.Context) {
	claims := currentClaims(c)
	order, err := Orders.GetOrCreatePendingOrder(claims.UserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AddCartLineHandler puts a dish in the cart. Adding the same dish again
// increments the existing line instead of duplicating it.
func AddCartLineHandler(c *gin.Context) {
	var request AddLineRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := currentClaims(c)
	order, err := Orders.AddLine(claims.UserID, request.DishID, request.Quantity)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateCartLineHandler overwrites a line's quantity; zero or less
// removes the line.
func UpdateCartLineHandler(c *gin.Context) {
	lineID, ok := parseIDParam(c, "line_id")
	if !ok {
		return
	}

	var request UpdateLineRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := currentClaims(c)
	order, err := Orders.UpdateLineQuantity(claims.UserID, lineID, request.Quantity)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func RemoveCartLineHandler(c *gin.Context) {
	lineID, ok := parseIDParam(c, "line_id")
	if !ok {
		return
	}

	claims := currentClaims(c)
	order, err := Orders.RemoveLine(claims.UserID, lineID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CheckoutHandler confirms the cart, debits the inventory ledger per
// recipe line and emails a confirmation.
func CheckoutHandler(c *gin.Context) {
	var request CheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := currentClaims(c)
	order, err := Orders.Checkout(claims.UserID, request.Payment, request.Notes)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderHistoryHandler lists the orders visible to the caller: own
// committed orders for clients, assigned orders for waiters, everything
// for admins.
func GetOrderHistoryHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	orders, err := Orders.History(user)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetSingleOrderHandler returns one order, restricted to its client, its
// assigned waiter, or an admin.
func GetSingleOrderHandler(c *gin.Context) {
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, err := Orders.Get(orderID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	switch user.Role {
	case models.RoleClient:
		if order.ClientID != user.ID {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found or you don't have permission to view this order."})
			return
		}
	case models.RoleWaiter:
		if order.WaiterID == nil || *order.WaiterID != user.ID {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found or you don't have permission to view this order."})
			return
		}
	}

	c.JSON(http.StatusOK, order)
}

// StaffOrderListHandler is the kitchen/waiter board: committed orders,
// optionally filtered by status.
func StaffOrderListHandler(c *gin.Context) {
	orders, err := Orders.StaffList(models.OrderStatus(c.Query("status")))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatusHandler moves an order along its state machine.
// Unrecognized status values are rejected, not silently ignored.
func UpdateOrderStatusHandler(c *gin.Context) {
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	var request UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := Orders.UpdateStatus(orderID, request.Status)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func AssignWaiterHandler(c *gin.Context) {
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	var request AssignWaiterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := Orders.AssignWaiter(orderID, request.WaiterID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
