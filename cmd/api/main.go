package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"homeledger/internal/config"
	"homeledger/internal/currency"
	"homeledger/internal/database"
	"homeledger/internal/handlers"
	"homeledger/internal/importer"
	"homeledger/internal/logger"
	"homeledger/internal/middleware"
	"homeledger/internal/models"
	"homeledger/internal/services"
	"homeledger/internal/validator"

	_ "homeledger/internal/docs" // Import swagger docs
)

// @title           Homeledger API
// @version         1.0
// @description     Homeledger tracks shared household expenses across currencies, reconciles each month into a single settlement and keeps advisory budgets.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Currency normalization stack
	rateCache, err := currency.NewRistrettoCache()
	if err != nil {
		return fmt.Errorf("failed to create rate cache: %w", err)
	}
	rateSource := currency.NewHTTPRateSource(appConfig.RateAPIBaseURL, appConfig.RateAPITimeout)
	normalizer := currency.NewNormalizer(rateSource, rateCache)

	// Services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	householdService := services.NewHouseholdService(db)
	expenseTypeService := services.NewExpenseTypeService(db, householdService)
	reconciliationService := services.NewReconciliationService(db, householdService)
	transactionService := services.NewTransactionService(db, householdService, reconciliationService, normalizer)
	splitRuleService := services.NewSplitRuleService(db, householdService)
	budgetService := services.NewBudgetService(db, householdService)
	auditService := services.NewAuditService(db)

	// Statement import pipeline
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	extractor := importer.NewCSVExtractor(models.CurrencyUSD)
	importPool := importer.NewPool(db, extractor, appConfig.ImportWorkers)
	importPool.Start(ctx)
	importService := services.NewImportService(db, householdService, transactionService, importPool)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	householdHandler := handlers.NewHouseholdHandler(householdService, auditService)
	expenseTypeHandler := handlers.NewExpenseTypeHandler(expenseTypeService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	splitRuleHandler := handlers.NewSplitRuleHandler(splitRuleService)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	importHandler := handlers.NewImportHandler(importService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Invitation acceptance is household-less: the token names the household.
	protected.POST("/invitations/accept", householdHandler.AcceptInvitation)

	// Household routes
	households := protected.Group("/households")
	households.POST("", householdHandler.CreateHousehold)
	households.GET("", householdHandler.ListHouseholds)
	households.GET("/:household_id", householdHandler.GetHousehold)
	households.PUT("/:household_id", householdHandler.UpdateHousehold)
	households.DELETE("/:household_id", householdHandler.DeleteHousehold)
	households.GET("/:household_id/members", householdHandler.ListMembers)
	households.DELETE("/:household_id/members/:user_id", householdHandler.RemoveMember)
	households.POST("/:household_id/invitations", householdHandler.InviteMember)
	households.DELETE("/:household_id/invitations/:invitation_id", householdHandler.RevokeInvitation)

	// Expense type routes
	households.POST("/:household_id/expense-types", expenseTypeHandler.CreateExpenseType)
	households.GET("/:household_id/expense-types", expenseTypeHandler.ListExpenseTypes)
	households.PUT("/:household_id/expense-types/:type_id", expenseTypeHandler.UpdateExpenseType)
	households.DELETE("/:household_id/expense-types/:type_id", expenseTypeHandler.DeleteExpenseType)

	// Transaction routes
	households.POST("/:household_id/transactions", transactionHandler.CreateTransaction)
	households.GET("/:household_id/transactions", transactionHandler.ListTransactions)
	households.GET("/:household_id/transactions/export/:month", transactionHandler.ExportMonth)
	households.GET("/:household_id/transactions/:transaction_id", transactionHandler.GetTransaction)
	households.PUT("/:household_id/transactions/:transaction_id", transactionHandler.UpdateTransaction)
	households.DELETE("/:household_id/transactions/:transaction_id", transactionHandler.DeleteTransaction)

	// Split rule routes
	households.POST("/:household_id/split-rules", splitRuleHandler.CreateSplitRule)
	households.GET("/:household_id/split-rules", splitRuleHandler.ListSplitRules)
	households.PUT("/:household_id/split-rules/:rule_id", splitRuleHandler.UpdateSplitRule)
	households.DELETE("/:household_id/split-rules/:rule_id", splitRuleHandler.DeleteSplitRule)

	// Reconciliation and settlement routes
	households.GET("/:household_id/reconciliation/:month", reconciliationHandler.GetReconciliation)
	households.GET("/:household_id/settlements", reconciliationHandler.ListSettlements)
	households.POST("/:household_id/settlements/:month", reconciliationHandler.SettleMonth)
	households.DELETE("/:household_id/settlements/:month", reconciliationHandler.UnsettleMonth)

	// Budget routes
	households.POST("/:household_id/budget-rules", budgetHandler.CreateBudgetRule)
	households.GET("/:household_id/budget-rules", budgetHandler.ListBudgetRules)
	households.PUT("/:household_id/budget-rules/:rule_id", budgetHandler.UpdateBudgetRule)
	households.DELETE("/:household_id/budget-rules/:rule_id", budgetHandler.DeleteBudgetRule)
	households.GET("/:household_id/budget-rules/:rule_id/status", budgetHandler.GetBudgetStatus)

	// Statement import routes
	households.POST("/:household_id/imports", importHandler.UploadStatement)
	households.POST("/:household_id/imports/candidates/:candidate_id/accept", importHandler.AcceptImportCandidate)
	households.GET("/:household_id/imports/:task_id", importHandler.GetImportTask)
	households.GET("/:household_id/imports/:task_id/candidates", importHandler.ListImportCandidates)

	log.Infof("Starting homeledger API on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
