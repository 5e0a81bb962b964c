package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "retail-backend/api/swagger" // swagger docs
	"retail-backend/internal/config"
	"retail-backend/internal/database"
	"retail-backend/internal/handler"
	"retail-backend/internal/middleware"
	"retail-backend/internal/repository"
	"retail-backend/internal/service"
	"retail-backend/internal/websocket"
	"retail-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Retail POS Sync API
// @version         1.0
// @description     Offline-first point of sale sync and append-only stock ledger.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	envErr := godotenv.Load("configs/.env")

	cfg := config.Load()
	log := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.Server.AppEnv == "development",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Info("No configs/.env file found, using process environment")
	}

	db, err := database.NewConnection(cfg.Postgres, log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	log.Info("Connected to PostgreSQL successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	eventRepo := repository.NewStockEventRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)

	ledger := service.NewLedger(eventRepo, productRepo)
	sequences := service.NewSequenceGenerator(sequenceRepo, txManager)

	syncService := service.NewSyncService(customerRepo, saleRepo, paymentRepo, productRepo, eventRepo, ledger, sequences, txManager, wsHub, log)
	saleService := service.NewSaleService(saleRepo, paymentRepo, customerRepo, auditRepo, ledger, sequences, txManager, wsHub)
	paymentService := service.NewPaymentService(paymentRepo, saleRepo, customerRepo, sequences, txManager, wsHub)
	inventoryService := service.NewInventoryService(ledger, eventRepo, auditRepo, txManager, wsHub)
	approvalService := service.NewApprovalService(approvalRepo, auditRepo, ledger, txManager, wsHub)
	auditService := service.NewAuditService(auditRepo)
	customerService := service.NewCustomerService(customerRepo, saleRepo, paymentRepo, txManager, wsHub)

	// Initialize Handlers
	syncHandler := handler.NewSyncHandler(syncService)
	saleHandler := handler.NewSaleHandler(saleService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	auditHandler := handler.NewAuditHandler(auditService)
	customerHandler := handler.NewCustomerHandler(customerService)

	if cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(log), middleware.Recovery(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	auth := middleware.NewAuthenticator([]byte(cfg.JWT.SecretKey))

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth.ParseToken)
	})

	// API Routing
	api := router.Group("")
	api.Use(auth.RequireAuth())
	syncHandler.RegisterRoutes(api)
	saleHandler.RegisterRoutes(api)
	paymentHandler.RegisterRoutes(api)
	inventoryHandler.RegisterRoutes(api)
	approvalHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	customerHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
