package services

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restaurante-go/models"
)

// ReportService produces projections over committed orders: the CSV
// export and the dashboard aggregates. Pending carts never appear in
// reports.
type ReportService struct {
	DB *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

// committedOrders returns non-pending orders, optionally bounded by
// creation date (inclusive, YYYY-MM-DD).
func (s *ReportService) committedOrders(from, to string) ([]models.Order, error) {
	query := s.DB.Preload("Client").Where("status <> ?", models.OrderStatusPending).
		Order("created_at DESC")
	if from != "" {
		query = query.Where("date(created_at) >= ?", from)
	}
	if to != "" {
		query = query.Where("date(created_at) <= ?", to)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// WriteOrdersCSV streams the date-filtered order list as CSV.
func (s *ReportService) WriteOrdersCSV(w io.Writer, from, to string) error {
	orders, err := s.committedOrders(from, to)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "date", "client", "status", "payment", "subtotal", "tax", "total"}); err != nil {
		return err
	}
	for _, order := range orders {
		record := []string{
			fmt.Sprintf("%d", order.ID),
			order.CreatedAt.Format("2006-01-02 15:04"),
			order.Client.Username,
			string(order.Status),
			string(order.Payment),
			order.Subtotal.StringFixed(2),
			order.Tax.StringFixed(2),
			order.Total.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// DishSales is one row of the top-dishes projection.
type DishSales struct {
	DishName  string `json:"dish_name"`
	TotalSold int    `json:"total_sold"`
}

// StatusCount is one row of the orders-per-state projection.
type StatusCount struct {
	Status models.OrderStatus `json:"status"`
	Count  int                `json:"count"`
}

// DashboardStats aggregates the admin dashboard numbers.
type DashboardStats struct {
	TotalOrders    int64           `json:"total_orders"`
	OrdersToday    int64           `json:"orders_today"`
	SalesToday     decimal.Decimal `json:"sales_today"`
	SalesThisMonth decimal.Decimal `json:"sales_this_month"`
	TopDishes      []DishSales     `json:"top_dishes"`
	OrdersByStatus []StatusCount   `json:"orders_by_status"`
}

var settledStatuses = []models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusReady}

// committedStatuses are the states that count as a sale in progress or
// done. Cancelled orders never sold anything.
var committedStatuses = []models.OrderStatus{
	models.OrderStatusConfirmed, models.OrderStatusInPreparation,
	models.OrderStatusReady, models.OrderStatusDelivered,
}

// Dashboard computes the admin statistics. today is YYYY-MM-DD; sales
// figures only count delivered and ready orders.
func (s *ReportService) Dashboard(today string) (*DashboardStats, error) {
	stats := &DashboardStats{
		SalesToday:     decimal.Zero,
		SalesThisMonth: decimal.Zero,
	}

	base := s.DB.Model(&models.Order{}).Where("status <> ?", models.OrderStatusPending)
	if err := base.Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}

	err := s.DB.Model(&models.Order{}).
		Where("status <> ? AND date(created_at) = ?", models.OrderStatusPending, today).
		Count(&stats.OrdersToday).Error
	if err != nil {
		return nil, err
	}

	daySales, err := s.sumTotals("date(created_at) = ?", today)
	if err != nil {
		return nil, err
	}
	stats.SalesToday = daySales

	monthStart := today[:8] + "01"
	monthSales, err := s.sumTotals("date(created_at) >= ?", monthStart)
	if err != nil {
		return nil, err
	}
	stats.SalesThisMonth = monthSales

	err = s.DB.Model(&models.OrderLine{}).
		Select("dishes.name AS dish_name, SUM(order_lines.quantity) AS total_sold").
		Joins("JOIN dishes ON dishes.id = order_lines.dish_id").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("orders.status IN ?", committedStatuses).
		Group("dishes.name").
		Order("total_sold DESC").
		Limit(10).
		Scan(&stats.TopDishes).Error
	if err != nil {
		return nil, err
	}

	err = s.DB.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("status <> ?", models.OrderStatusPending).
		Group("status").
		Scan(&stats.OrdersByStatus).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// sumTotals adds order totals in Go rather than SQL so the decimal
// column's string storage never hits SQLite numeric affinity quirks.
func (s *ReportService) sumTotals(condition string, arg any) (decimal.Decimal, error) {
	var orders []models.Order
	err := s.DB.Where("status IN ?", settledStatuses).Where(condition, arg).Find(&orders).Error
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, order := range orders {
		sum = sum.Add(order.Total)
	}
	return sum, nil
}
