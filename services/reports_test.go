package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurante-go/models"
)

// reportFixture commits one delivered order (2x Pasta, 29.75 total) and
// leaves a second client's pending cart in place.
func reportFixture(t *testing.T) (*ReportService, *OrderService) {
	db := newTestDB(t)
	inventory := NewInventoryService(db)
	orders := NewOrderService(db, inventory, nil)

	client := createClient(t, db, "carlos")
	category := createCategory(t, db, "Mains")
	pasta := createDish(t, db, "Pasta", "12.50", category.ID, nil)

	_, err := orders.AddLine(client.ID, pasta.ID, 2)
	require.NoError(t, err)
	order, err := orders.Checkout(client.ID, models.PaymentCash, "")
	require.NoError(t, err)
	for _, status := range []models.OrderStatus{
		models.OrderStatusInPreparation, models.OrderStatusReady, models.OrderStatusDelivered,
	} {
		_, err = orders.UpdateStatus(order.ID, status)
		require.NoError(t, err)
	}

	other := createClient(t, db, "maria")
	_, err = orders.AddLine(other.ID, pasta.ID, 1)
	require.NoError(t, err)

	return NewReportService(db), orders
}

func TestWriteOrdersCSV_ExcludesPendingCarts(t *testing.T) {
	svc, _ := reportFixture(t)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteOrdersCSV(&buf, "", ""))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "header plus the one committed order")
	assert.Equal(t, "id,date,client,status,payment,subtotal,tax,total", lines[0])
	assert.Contains(t, lines[1], "carlos")
	assert.Contains(t, lines[1], "delivered")
	assert.Contains(t, lines[1], "29.75")
	assert.NotContains(t, buf.String(), "maria", "pending carts stay out of the export")
}

func TestWriteOrdersCSV_DateRange(t *testing.T) {
	svc, _ := reportFixture(t)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteOrdersCSV(&buf, "2099-01-01", ""))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1, "a future from-date leaves only the header")
}

func TestDashboard_Aggregates(t *testing.T) {
	svc, _ := reportFixture(t)
	today := time.Now().Format("2006-01-02")

	stats, err := svc.Dashboard(today)
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.TotalOrders, "pending carts are not orders yet")
	assert.EqualValues(t, 1, stats.OrdersToday)
	assert.True(t, stats.SalesToday.Equal(dec("29.75")), "got %s", stats.SalesToday)
	assert.True(t, stats.SalesThisMonth.Equal(dec("29.75")), "got %s", stats.SalesThisMonth)

	require.Len(t, stats.TopDishes, 1)
	assert.Equal(t, "Pasta", stats.TopDishes[0].DishName)
	assert.Equal(t, 2, stats.TopDishes[0].TotalSold)

	require.Len(t, stats.OrdersByStatus, 1)
	assert.Equal(t, models.OrderStatusDelivered, stats.OrdersByStatus[0].Status)
	assert.Equal(t, 1, stats.OrdersByStatus[0].Count)
}

func TestDashboard_TopDishesExcludeCancelledOrders(t *testing.T) {
	svc, orders := reportFixture(t)
	today := time.Now().Format("2006-01-02")

	// Commit maria's cart, then cancel it: her line must vanish from the
	// top-dishes projection.
	var maria models.User
	require.NoError(t, svc.DB.First(&maria, "username = ?", "maria").Error)
	cancelled, err := orders.Checkout(maria.ID, models.PaymentCash, "")
	require.NoError(t, err)
	_, err = orders.UpdateStatus(cancelled.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	stats, err := svc.Dashboard(today)
	require.NoError(t, err)
	require.Len(t, stats.TopDishes, 1)
	assert.Equal(t, "Pasta", stats.TopDishes[0].DishName)
	assert.Equal(t, 2, stats.TopDishes[0].TotalSold, "only the delivered order's quantity counts")
}

func TestDashboard_SalesOnlyCountSettledOrders(t *testing.T) {
	svc, orders := reportFixture(t)
	today := time.Now().Format("2006-01-02")

	// Confirm maria's cart but leave it unsettled: it counts as an order
	// without adding to sales.
	var maria models.User
	require.NoError(t, svc.DB.First(&maria, "username = ?", "maria").Error)
	_, err := orders.Checkout(maria.ID, models.PaymentCard, "")
	require.NoError(t, err)

	stats, err := svc.Dashboard(today)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.True(t, stats.SalesToday.Equal(dec("29.75")), "confirmed but unsettled orders add nothing, got %s", stats.SalesToday)
}
