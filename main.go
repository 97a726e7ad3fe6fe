package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"restaurante-go/handlers"
	"restaurante-go/models"
	"restaurante-go/services"
	"restaurante-go/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {

	/* DATABASE SETUP STARTS */

	err := godotenv.Load()
	if err != nil {
		log.Printf("Error loading .env file for database URI. Using environment variables.")
	}

	dbURI := os.Getenv("DATABASE_URI")
	if dbURI == "" {
		dbURI = "restaurante.db"
		log.Println("Warning: DATABASE_URI not found in environment variables. Using default: " + dbURI)
	}

	db, openDbErr := gorm.Open(sqlite.Open(dbURI), &gorm.Config{})
	if openDbErr != nil {
		log.Fatalf("Failed to connect to database: %v", openDbErr)
	}

	migrateErr := db.AutoMigrate(
		&models.User{}, &models.PendingRegistration{}, &models.PasswordResetToken{},
		&models.Category{}, &models.Ingredient{}, &models.Dish{}, &models.RecipeLine{},
		&models.InventoryMovement{}, &models.StockSnapshot{},
		&models.Order{}, &models.OrderLine{},
		&models.Table{}, &models.Reservation{},
	)
	if migrateErr != nil {
		log.Fatalf("Failed to migrate database: %v", migrateErr)
	}

	seedAdmin(db)
	/* DATABASE SETUP ENDS */

	/* SERVICE WIRING STARTS */
	mailer := utils.NewMailerFromEnv()

	handlers.DB = db
	handlers.Inventory = services.NewInventoryService(db)
	handlers.Catalog = services.NewCatalogService(db, handlers.Inventory)
	handlers.Orders = services.NewOrderService(db, handlers.Inventory, mailer)
	handlers.Reservations = services.NewReservationService(db, mailer)
	handlers.Auth = services.NewAuthService(db, mailer)
	handlers.Reports = services.NewReportService(db)
	/* SERVICE WIRING ENDS */

	/* ROUTING STARTS */
	router := gin.Default()

	env := os.Getenv("APP_ENV")

	var corsConfig cors.Config
	if env == "debug" || env == "development" {
		// Development: Allow all origins
		corsConfig = cors.Config{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
	} else {
		corsConfig = cors.Config{
			AllowOrigins:     []string{"https://your-production-frontend.com"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
	}

	router.Use(cors.New(corsConfig))

	// --- Authentication Routes ---
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", handlers.RegisterHandler)
		authGroup.GET("/verify/:token", handlers.VerifyEmailHandler)
		authGroup.POST("/login", handlers.LoginHandler)
		authGroup.POST("/password-reset", handlers.PasswordResetRequestHandler)
		authGroup.GET("/password-reset/:token", handlers.PasswordResetCheckHandler)
		authGroup.POST("/password-reset/confirm", handlers.PasswordResetConfirmHandler)
	}

	// --- Public Menu and Availability Routes --- (Auth token not needed)
	publicGroup := router.Group("/public")
	{
		publicGroup.GET("/menu", handlers.BrowseMenuHandler)
		publicGroup.GET("/menu/:dish_id", handlers.GetDishHandler)
		publicGroup.GET("/categories", handlers.ListCategoriesHandler)
		publicGroup.GET("/tables/availability", handlers.AvailableTablesHandler)
	}

	// --- Client Protected Routes ---
	clientRoutes := router.Group("/client", handlers.AuthMiddleware())
	{
		clientRoutes.GET("", handlers.AccountHandler)

		cartRoutes := clientRoutes.Group("/cart", handlers.RequireOp(models.OpManageCart))
		{
			cartRoutes.GET("", handlers.GetCartHandler)
			cartRoutes.POST("/lines", handlers.AddCartLineHandler)
			cartRoutes.PUT("/lines/:line_id", handlers.UpdateCartLineHandler)
			cartRoutes.DELETE("/lines/:line_id", handlers.RemoveCartLineHandler)
		}
		clientRoutes.POST("/checkout", handlers.RequireOp(models.OpCheckout), handlers.CheckoutHandler)

		orderRoutes := clientRoutes.Group("/orders", handlers.RequireOp(models.OpViewOwnOrders))
		{
			orderRoutes.GET("", handlers.GetOrderHistoryHandler)
			orderRoutes.GET("/:order_id", handlers.GetSingleOrderHandler)
		}

		reservationRoutes := clientRoutes.Group("/reservations", handlers.RequireOp(models.OpMakeReservation))
		{
			reservationRoutes.POST("", handlers.CreateReservationHandler)
			reservationRoutes.GET("", handlers.ListReservationsHandler)
			reservationRoutes.GET("/:reservation_id", handlers.GetReservationHandler)
			reservationRoutes.POST("/:reservation_id/cancel", handlers.CancelReservationHandler)
		}
	}

	// --- Staff Protected Routes (waiters and admins) ---
	staffRoutes := router.Group("/staff", handlers.AuthMiddleware())
	{
		staffOrderRoutes := staffRoutes.Group("/orders", handlers.RequireOp(models.OpManageOrders))
		{
			staffOrderRoutes.GET("", handlers.StaffOrderListHandler)
			staffOrderRoutes.PUT("/:order_id/status", handlers.UpdateOrderStatusHandler)
			staffOrderRoutes.PUT("/:order_id/waiter", handlers.AssignWaiterHandler)
		}

		staffReservationRoutes := staffRoutes.Group("/reservations", handlers.RequireOp(models.OpViewAllBookings))
		{
			staffReservationRoutes.GET("", handlers.ListReservationsHandler)
			staffReservationRoutes.PUT("/:reservation_id/status", handlers.UpdateReservationStatusHandler)
		}

		catalogRoutes := staffRoutes.Group("/catalog", handlers.RequireOp(models.OpManageCatalog))
		{
			catalogRoutes.GET("/dishes", handlers.ListDishesAdminHandler)
			catalogRoutes.POST("/dishes", handlers.CreateDishHandler)
			catalogRoutes.PUT("/dishes/:dish_id", handlers.UpdateDishHandler)
			catalogRoutes.DELETE("/dishes/:dish_id", handlers.DeleteDishHandler)

			catalogRoutes.POST("/categories", handlers.CreateCategoryHandler)
			catalogRoutes.DELETE("/categories/:category_id", handlers.DeleteCategoryHandler)

			catalogRoutes.GET("/ingredients", handlers.ListIngredientsHandler)
			catalogRoutes.POST("/ingredients", handlers.CreateIngredientHandler)
			catalogRoutes.PUT("/ingredients/:ingredient_id/deactivate", handlers.DeactivateIngredientHandler)
			catalogRoutes.DELETE("/ingredients/:ingredient_id", handlers.DeleteIngredientHandler)
		}
	}

	// --- Admin Protected Routes ---
	adminRoutes := router.Group("/admin", handlers.AuthMiddleware())
	{
		inventoryRoutes := adminRoutes.Group("/inventory", handlers.RequireOp(models.OpManageInventory))
		{
			inventoryRoutes.GET("/stock", handlers.ListStockHandler)
			inventoryRoutes.GET("/stock/:ingredient_id", handlers.GetStockDetailHandler)
			inventoryRoutes.POST("/movements", handlers.RecordMovementHandler)
			inventoryRoutes.PUT("/stock/:ingredient_id/minimum", handlers.SetMinimumHandler)
		}

		tableRoutes := adminRoutes.Group("/tables", handlers.RequireOp(models.OpManageTables))
		{
			tableRoutes.GET("", handlers.ListTablesHandler)
			tableRoutes.POST("", handlers.CreateTableHandler)
			tableRoutes.PUT("/:table_id", handlers.UpdateTableHandler)
			tableRoutes.DELETE("/:table_id", handlers.DeleteTableHandler)
		}

		adminRoutes.POST("/users", handlers.RequireOp(models.OpManageUsers), handlers.CreateStaffHandler)

		reportRoutes := adminRoutes.Group("/reports", handlers.RequireOp(models.OpGenerateReports))
		{
			reportRoutes.GET("/orders.csv", handlers.OrdersReportHandler)
			reportRoutes.GET("/dashboard", handlers.DashboardHandler)
		}
	}

	/* ROUTING ENDS */

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server listening on port :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// seedAdmin creates the initial admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD when no admin exists yet.
func seedAdmin(db *gorm.DB) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		log.Printf("Failed to check for admin user: %v", err)
		return
	}
	if count > 0 {
		return
	}

	admin := models.User{Username: "admin", Email: email, Role: models.RoleAdmin}
	if err := admin.HashPassword(password); err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("Failed to seed admin user: %v", err)
		return
	}
	log.Printf("Seeded admin user %s", email)
}
