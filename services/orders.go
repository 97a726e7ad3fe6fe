package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restaurante-go/models"
	"restaurante-go/utils"
)

// OrderService owns the cart lifecycle and the order state machine.
// While an order is pending it behaves as the client's cart; checkout
// confirms it and debits the inventory ledger per recipe line.
type OrderService struct {
	DB        *gorm.DB
	Inventory *InventoryService
	Mailer    *utils.Mailer
}

func NewOrderService(db *gorm.DB, inventory *InventoryService, mailer *utils.Mailer) *OrderService {
	return &OrderService{DB: db, Inventory: inventory, Mailer: mailer}
}

// GetOrCreatePendingOrder returns the client's active cart, creating an
// empty one when none exists. Idempotent: repeated calls return the same
// order.
func (s *OrderService) GetOrCreatePendingOrder(clientID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Where(models.Order{ClientID: clientID, Status: models.OrderStatusPending}).
			Attrs(models.Order{
				Subtotal: decimal.Zero,
				Tax:      decimal.Zero,
				Total:    decimal.Zero,
			}).
			FirstOrCreate(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(order.ID)
}

// Get returns an order with its lines and dishes preloaded.
func (s *OrderService) Get(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("order_lines.id") }).
		Preload("Lines.Dish").Preload("Client").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order"}
		}
		return nil, err
	}
	return &order, nil
}

// AddLine puts a dish in the client's cart. If the dish already has a
// line, its quantity is incremented; the unit price stays the one
// captured on the first add.
func (s *OrderService) AddLine(clientID, dishID uint, quantity int) (*models.Order, error) {
	if quantity < 1 {
		return nil, Validationf("quantity", "must be at least 1")
	}

	var orderID uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var dish models.Dish
		if err := tx.Where("available = ?", true).First(&dish, dishID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "dish"}
			}
			return err
		}

		var order models.Order
		err := tx.Where(models.Order{ClientID: clientID, Status: models.OrderStatusPending}).
			Attrs(models.Order{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}).
			FirstOrCreate(&order).Error
		if err != nil {
			return err
		}
		orderID = order.ID

		var line models.OrderLine
		err = tx.Where("order_id = ? AND dish_id = ?", order.ID, dish.ID).First(&line).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = models.OrderLine{
				OrderID:   order.ID,
				DishID:    dish.ID,
				Quantity:  quantity,
				UnitPrice: dish.Price,
				Subtotal:  dish.Price.Mul(decimal.NewFromInt(int64(quantity))),
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			line.Quantity += quantity
			line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			if err := tx.Model(&line).Updates(map[string]any{
				"quantity": line.Quantity,
				"subtotal": line.Subtotal,
			}).Error; err != nil {
				return err
			}
		}

		return s.recomputeTotals(tx, order.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(orderID)
}

// UpdateLineQuantity overwrites a cart line's quantity. A quantity below
// one removes the line. Totals are recomputed either way.
func (s *OrderService) UpdateLineQuantity(clientID, lineID uint, quantity int) (*models.Order, error) {
	var orderID uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		line, err := s.pendingLine(tx, clientID, lineID)
		if err != nil {
			return err
		}
		orderID = line.OrderID

		if quantity < 1 {
			if err := tx.Delete(line).Error; err != nil {
				return err
			}
		} else {
			line.Quantity = quantity
			line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
			if err := tx.Model(line).Updates(map[string]any{
				"quantity": line.Quantity,
				"subtotal": line.Subtotal,
			}).Error; err != nil {
				return err
			}
		}
		return s.recomputeTotals(tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(orderID)
}

// RemoveLine deletes a cart line and recomputes totals.
func (s *OrderService) RemoveLine(clientID, lineID uint) (*models.Order, error) {
	return s.UpdateLineQuantity(clientID, lineID, 0)
}

// pendingLine fetches a line belonging to the client's pending order.
func (s *OrderService) pendingLine(tx *gorm.DB, clientID, lineID uint) (*models.OrderLine, error) {
	var line models.OrderLine
	err := tx.Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("order_lines.id = ? AND orders.client_id = ? AND orders.status = ?",
			lineID, clientID, models.OrderStatusPending).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order line"}
		}
		return nil, err
	}
	return &line, nil
}

// recomputeTotals re-derives line subtotals, the order subtotal, the 19%
// tax and the total. Idempotent: running it twice yields the same sums.
func (s *OrderService) recomputeTotals(tx *gorm.DB, orderID uint) error {
	var lines []models.OrderLine
	if err := tx.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		return err
	}

	subtotal := decimal.Zero
	for i := range lines {
		want := lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		if !lines[i].Subtotal.Equal(want) {
			if err := tx.Model(&lines[i]).Update("subtotal", want).Error; err != nil {
				return err
			}
		}
		subtotal = subtotal.Add(want)
	}

	tax := subtotal.Mul(models.TaxRate)
	total := subtotal.Add(tax)
	return tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(map[string]any{
		"subtotal": subtotal,
		"tax":      tax,
		"total":    total,
	}).Error
}

// Checkout confirms the client's pending order and debits the inventory
// ledger: for every line and every recipe component, an exit movement of
// recipe quantity times line quantity. The confirmation and the whole
// fan-out commit or roll back as one transaction. Stock clamps at zero;
// checkout never blocks on insufficient stock.
func (s *OrderService) Checkout(clientID uint, payment models.PaymentMethod, notes string) (*models.Order, error) {
	if !payment.Valid() {
		return nil, Validationf("payment", "unknown payment method %q", payment)
	}

	var orderID uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Preload("Lines").Preload("Lines.Dish.RecipeLines").
			Where("client_id = ? AND status = ?", clientID, models.OrderStatusPending).
			First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "pending order"}
			}
			return err
		}
		if len(order.Lines) == 0 {
			return Validationf("lines", "cart is empty")
		}
		orderID = order.ID

		if err := tx.Model(&order).Updates(map[string]any{
			"status":  models.OrderStatusConfirmed,
			"payment": payment,
			"notes":   notes,
		}).Error; err != nil {
			return err
		}

		for _, line := range order.Lines {
			for _, recipe := range line.Dish.RecipeLines {
				consumed := recipe.Quantity.Mul(decimal.NewFromInt(int64(line.Quantity)))
				reason := fmt.Sprintf("Order #%d - %s", order.ID, line.Dish.Name)
				if _, err := s.Inventory.RecordMovementTx(tx, recipe.IngredientID,
					models.MovementExit, consumed, reason, &clientID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	s.Mailer.OrderConfirmation(order.Client.Email, order.Client.Username, order)
	return order, nil
}

// UpdateStatus moves an order to a new state. Unrecognized values and
// transitions out of a terminal state are rejected with
// InvalidStateError. Delivered stamps the delivery timestamp.
func (s *OrderService) UpdateStatus(orderID uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, InvalidStatef("unknown order status %q", status)
	}
	if status == models.OrderStatusPending {
		return nil, InvalidStatef("an order cannot go back to pending")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "order"}
			}
			return err
		}
		if order.Status.Terminal() {
			return InvalidStatef("order is already %s", order.Status)
		}

		updates := map[string]any{"status": status}
		if status == models.OrderStatusDelivered {
			updates["delivered_at"] = tx.NowFunc()
		}
		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(orderID)
}

// AssignWaiter attaches a staff member to an order.
func (s *OrderService) AssignWaiter(orderID, waiterID uint) (*models.Order, error) {
	var waiter models.User
	if err := s.DB.First(&waiter, waiterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "waiter"}
		}
		return nil, err
	}
	if waiter.Role != models.RoleWaiter && waiter.Role != models.RoleAdmin {
		return nil, Validationf("waiter_id", "user %d is not staff", waiterID)
	}

	result := s.DB.Model(&models.Order{}).Where("id = ?", orderID).Update("waiter_id", waiterID)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Entity: "order"}
	}
	return s.Get(orderID)
}

// History returns the orders visible to a user: clients see their own
// committed orders, waiters the ones assigned to them, admins all.
func (s *OrderService) History(user *models.User) ([]models.Order, error) {
	query := s.DB.Preload("Lines").Preload("Lines.Dish").Order("created_at DESC")
	switch user.Role {
	case models.RoleClient:
		query = query.Where("client_id = ? AND status <> ?", user.ID, models.OrderStatusPending)
	case models.RoleWaiter:
		query = query.Where("waiter_id = ?", user.ID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// StaffList returns committed orders for the kitchen/waiter board,
// optionally filtered by status.
func (s *OrderService) StaffList(statusFilter models.OrderStatus) ([]models.Order, error) {
	query := s.DB.Preload("Lines").Preload("Lines.Dish").Preload("Client").
		Where("status <> ?", models.OrderStatusPending).
		Order("created_at DESC")
	if statusFilter != "" {
		if !statusFilter.Valid() {
			return nil, Validationf("status", "unknown order status %q", statusFilter)
		}
		query = query.Where("status = ?", statusFilter)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
