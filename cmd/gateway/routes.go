package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"printfleet-system/config"
	"printfleet-system/internal/database"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/gateway/clients"
	"printfleet-system/internal/gateway/handlers"
	"printfleet-system/internal/gateway/middleware"
	"printfleet-system/internal/logging"
	"printfleet-system/internal/observability/metrics"
	sysutils "printfleet-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DB.BuildDSN(), database.PoolConfig{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	}, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	var redisClient *redis.Client
	if rdb, err := config.NewRedisClient(cfg.Redis, logger); err != nil {
		logger.Warn("Redis unavailable, running without cache and events", zap.Error(err))
	} else {
		redisClient = rdb
	}

	metrics.Init()

	tokens := sysutils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	services := clients.NewServices(db, redisClient, tokens, logger)
	defer services.Close()

	if created, err := services.Users.SeedRoles(context.Background()); err != nil {
		logger.Warn("Failed to seed roles", zap.Error(err))
	} else if created > 0 {
		logger.Info("Seeded default roles", zap.Int("created", created))
	}

	r, err := setupRouter(services, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}

func setupRouter(services *clients.Services, cfg config.Config, logger *zap.Logger) (*gin.Engine, error) {
	r := gin.New()

	r.Use(middleware.RequestLogger(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.HTTP.CORSOrigins))
	r.Use(middleware.Metrics())
	if cfg.RateLimit.Enabled {
		limit, err := middleware.RateLimit(cfg.RateLimit.Rate)
		if err != nil {
			return nil, err
		}
		r.Use(limit)
	}
	r.Use(serviceHealthMiddleware(services))

	catalogHandler := handlers.NewCatalogHTTPHandler(services.Catalog, logger)
	printerHandler := handlers.NewPrinterHTTPHandler(services.Printers, services.Clients, logger)
	clientHandler := handlers.NewClientHTTPHandler(services.Clients, logger)
	transferHandler := handlers.NewTransferHTTPHandler(services.Transfers, logger)
	maintenanceHandler := handlers.NewMaintenanceHTTPHandler(services.Maintenance, logger)
	tonerHandler := handlers.NewTonerHTTPHandler(services.Toners, logger)
	rentalHandler := handlers.NewRentalHTTPHandler(services.Rentals, logger)
	wikiHandler := handlers.NewWikiHTTPHandler(services.Wiki, logger)
	userHandler := handlers.NewUserHTTPHandler(services.Users, logger)

	staff := middleware.RequireAccess(models.AccessStaff)
	technician := middleware.RequireAccess(models.AccessTechnician)
	admin := middleware.RequireAccess(models.AccessAdmin)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
			auth.POST("/register", userHandler.Register)
		}

		store := public.Group("/store")
		{
			store.GET("/products", tonerHandler.ListProducts)
			store.GET("/products/:id", tonerHandler.GetProduct)
		}

		public.GET("/rental-options", rentalHandler.ListActiveOptions)
		public.POST("/rentals", rentalHandler.CreateRental)
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(services.Tokens))
	{
		protected.GET("/auth/me", userHandler.Me)

		catalog := protected.Group("/catalog")
		{
			catalog.GET("/makes", catalogHandler.ListMakes)
			catalog.POST("/makes", staff, catalogHandler.CreateMake)
			catalog.GET("/makes/:id/series", catalogHandler.ListSeries)
			catalog.POST("/makes/:id/series", staff, catalogHandler.CreateSeries)
			catalog.GET("/series/:id/models", catalogHandler.ListModels)
			catalog.POST("/series/:id/models", staff, catalogHandler.CreateModel)
			catalog.GET("/models/:id", catalogHandler.GetModel)
			catalog.GET("/models/:id/details", catalogHandler.GetModelDetails)
			catalog.PUT("/models/:id", staff, catalogHandler.UpdateModel)
			catalog.POST("/selection", catalogHandler.Reselect)
		}

		printers := protected.Group("/printers")
		{
			printers.GET("", printerHandler.ListPrinters)
			printers.POST("", staff, printerHandler.ImportPrinter)
			printers.GET("/export.xlsx", staff, printerHandler.ExportFleet)
			printers.GET("/:id", printerHandler.GetPrinter)
			printers.PUT("/:id", staff, printerHandler.UpdatePrinter)
			printers.PATCH("/:id/status", staff, printerHandler.UpdateStatus)
			printers.PUT("/:id/client", staff, printerHandler.AssignClient)
			printers.PUT("/:id/toners", staff, printerHandler.SetToners)
			printers.DELETE("/:id", admin, printerHandler.DeletePrinter)
			printers.GET("/:id/transfers", transferHandler.ListForPrinter)
			printers.GET("/:id/maintenance", maintenanceHandler.ListForPrinter)
			printers.GET("/:id/compatible-toners", tonerHandler.CompatibleForPrinter)
			printers.GET("/:id/compatible-products", tonerHandler.ProductsForPrinter)
			printers.GET("/:id/rentals/overlapping", staff, rentalHandler.Overlapping)
		}

		clientsGroup := protected.Group("/clients", staff)
		{
			clientsGroup.GET("", clientHandler.ListClients)
			clientsGroup.POST("", clientHandler.CreateClient)
			clientsGroup.GET("/:id", clientHandler.GetClient)
			clientsGroup.PUT("/:id", clientHandler.UpdateClient)
			clientsGroup.DELETE("/:id", admin, clientHandler.DeleteClient)
			clientsGroup.GET("/:id/locations", clientHandler.ListLocations)
			clientsGroup.GET("/:id/departments", clientHandler.ListDepartments)
			clientsGroup.POST("/:id/departments", clientHandler.CreateDepartment)
		}

		departments := protected.Group("/departments", staff)
		{
			departments.PUT("/:id", clientHandler.RenameDepartment)
			departments.DELETE("/:id", clientHandler.DeleteDepartment)
		}

		transfers := protected.Group("/transfers", staff)
		{
			transfers.GET("", transferHandler.ListRecent)
			transfers.POST("", transferHandler.RecordTransfer)
		}

		maintenance := protected.Group("/maintenance")
		{
			maintenance.POST("/records", staff, maintenanceHandler.CreateRecord)
			maintenance.GET("/records/:id", maintenanceHandler.GetRecord)
			maintenance.GET("/due", maintenanceHandler.ListDue)
			maintenance.PATCH("/records/:id/status", technician, maintenanceHandler.UpdateStatus)
			maintenance.PUT("/records/:id/diagnosis", technician, maintenanceHandler.RecordDiagnosis)
			maintenance.PUT("/records/:id/repair", technician, maintenanceHandler.RecordRepair)
			maintenance.PUT("/records/:id/remarks", technician, maintenanceHandler.SetRemarks)
			maintenance.POST("/records/:id/report", technician, maintenanceHandler.GenerateReport)
			maintenance.GET("/records/:id/report", maintenanceHandler.GetReport)
			maintenance.GET("/records/:id/report.pdf", maintenanceHandler.DownloadReportPDF)
		}

		toners := protected.Group("/toners")
		{
			toners.GET("", tonerHandler.ListToners)
			toners.POST("", staff, tonerHandler.CreateToner)
			toners.GET("/:id", tonerHandler.GetToner)
			toners.PUT("/:id", staff, tonerHandler.UpdateToner)
			toners.DELETE("/:id", admin, tonerHandler.DeleteToner)
			toners.GET("/:id/variants", tonerHandler.ListVariants)
			toners.POST("/:id/models", staff, tonerHandler.LinkModel)
			toners.DELETE("/:id/models/:modelId", staff, tonerHandler.UnlinkModel)
		}

		storeAdmin := protected.Group("/store/products", staff)
		{
			storeAdmin.POST("", tonerHandler.CreateProduct)
			storeAdmin.PUT("/:id", tonerHandler.UpdateProduct)
			storeAdmin.POST("/:id/stock", tonerHandler.AdjustStock)
		}

		rentals := protected.Group("/rentals", staff)
		{
			rentals.GET("", rentalHandler.ListRentals)
			rentals.GET("/:id", rentalHandler.GetRental)
			rentals.PATCH("/:id/status", rentalHandler.UpdateStatus)
			rentals.PUT("/:id/documents", rentalHandler.AttachDocuments)
			rentals.POST("/refresh", rentalHandler.RefreshStatuses)
		}

		options := protected.Group("/rental-options", admin)
		{
			options.GET("/all", rentalHandler.ListAllOptions)
			options.POST("", rentalHandler.CreateOption)
			options.PUT("/:id", rentalHandler.UpdateOption)
		}

		wikiGroup := protected.Group("/wiki")
		{
			wikiGroup.GET("", wikiHandler.ListArticles)
			wikiGroup.GET("/:slug", wikiHandler.GetArticle)
			wikiGroup.POST("", staff, wikiHandler.CreateArticle)
			wikiGroup.PUT("/:id", staff, wikiHandler.UpdateArticle)
			wikiGroup.DELETE("/:id", staff, wikiHandler.DeleteArticle)
		}

		users := protected.Group("/users", admin)
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
		}

		roles := protected.Group("/roles", admin)
		{
			roles.POST("", userHandler.CreateRole)
			roles.GET("", userHandler.ListRoles)
		}
	}

	r.GET("/health", healthCheckHandler(services))
	r.GET("/health/detailed", detailedHealthCheckHandler(services))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}

func serviceHealthMiddleware(services *clients.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if services.RedisEnabled() {
			c.Header("X-Cache", "enabled")
		} else {
			c.Header("X-Cache", "disabled")
		}
		c.Next()
	}
}

// healthCheckHandler reports degraded, not down, when only redis is missing.
func healthCheckHandler(services *clients.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		httpStatus := http.StatusOK

		unavailable := []string{}
		if !services.IsDatabaseHealthy(c.Request.Context()) {
			unavailable = append(unavailable, "database")
		}
		if !services.IsRedisHealthy(c.Request.Context()) {
			unavailable = append(unavailable, "redis")
		}

		switch {
		case len(unavailable) == 0:
		case len(unavailable) == 1 && unavailable[0] == "redis":
			status = "degraded"
		default:
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"unavailable_services": unavailable,
			"timestamp":            time.Now(),
		})
	}
}

func detailedHealthCheckHandler(services *clients.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]map[string]interface{}{
			"database": checkServiceHealth(services.IsDatabaseHealthy(ctx)),
			"redis":    checkServiceHealth(services.IsRedisHealthy(ctx)),
		}

		overallStatus := "healthy"
		for _, check := range checks {
			if check["status"] != "healthy" {
				overallStatus = "degraded"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       checks,
			"timestamp":      time.Now(),
		})
	}
}

func checkServiceHealth(isHealthy bool) map[string]interface{} {
	if !isHealthy {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": "Not configured or connection lost",
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "Responding",
	}
}
