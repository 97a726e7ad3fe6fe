package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// OrdersReportHandler streams the date-filtered, non-pending order list
// as a CSV download.
func OrdersReportHandler(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="orders.csv"`)
	if err := Reports.WriteOrdersCSV(c.Writer, from, to); err != nil {
		abortWithServiceError(c, err)
		return
	}
}

// DashboardHandler returns the admin statistics projection.
func DashboardHandler(c *gin.Context) {
	stats, err := Reports.Dashboard(time.Now().Format("2006-01-02"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
