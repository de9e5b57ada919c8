// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"retailcore/internal/core/numerator"
	"retailcore/internal/domain/adjustment"
	"retailcore/internal/domain/auth"
	"retailcore/internal/domain/catalogs/category"
	"retailcore/internal/domain/catalogs/product"
	"retailcore/internal/domain/promotion"
	"retailcore/internal/domain/purchasing"
	"retailcore/internal/domain/reports"
	"retailcore/internal/domain/sales"
	"retailcore/internal/domain/stock"
	"retailcore/internal/domain/stockcount"
	"retailcore/internal/infrastructure/cache"
	"retailcore/internal/infrastructure/http/v1/handlers"
	"retailcore/internal/infrastructure/http/v1/middleware"
	"retailcore/internal/infrastructure/storage/postgres"
	"retailcore/internal/infrastructure/storage/postgres/catalog_repo"
	"retailcore/internal/infrastructure/storage/postgres/document_repo"
	"retailcore/internal/infrastructure/storage/postgres/promo_repo"
	"retailcore/internal/infrastructure/storage/postgres/report_repo"
	"retailcore/internal/infrastructure/storage/postgres/stock_repo"
	"retailcore/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (health checks)
	Pool *postgres.Pool

	// TxManager provides transactional queriers to repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Numerator for document number generation
	Numerator numerator.Generator

	// Redis enables the promotion cache when set
	Redis *redis.Client

	// PromotionCacheTTL bounds cache staleness (default 1 minute)
	PromotionCacheTTL time.Duration

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// IdempotencyTTL is how long completed keys replay (default 10 minutes)
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Redis)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	services := buildServices(cfg)

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		if cfg.IdempotencyEnabled {
			ttl := cfg.IdempotencyTTL
			if ttl <= 0 {
				ttl = 10 * time.Minute
			}
			store := postgres.NewIdempotencyStore(cfg.TxManager, ttl)
			protected.Use(middleware.Idempotency(store))
		}

		registerCatalogRoutes(protected, services)
		registerStockRoutes(protected, services)
		registerDocumentRoutes(protected, services)
		registerPromotionRoutes(protected, services)
		registerReportRoutes(protected, services)
	}

	return router
}

// appServices bundles the wired domain services.
type appServices struct {
	categories  *category.Service
	products    *product.Service
	ledger      *stock.Service
	adjustments *adjustment.Service
	stockCounts *stockcount.Service
	promotions  *promotion.Service
	sales       *sales.Service
	purchasing  *purchasing.Service
	reports     *reports.Service
	audit       *postgres.AuditService
}

// buildServices wires repositories and services against the shared
// transaction manager.
func buildServices(cfg RouterConfig) appServices {
	categoryRepo := catalog_repo.NewCategoryRepo(cfg.TxManager)
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	variantRepo := catalog_repo.NewVariantRepo(cfg.TxManager)
	stockRepo := stock_repo.NewStockRepo(cfg.TxManager)
	adjustmentRepo := document_repo.NewAdjustmentRepo(cfg.TxManager)
	stockCountRepo := document_repo.NewStockCountRepo(cfg.TxManager)
	saleRepo := document_repo.NewSaleRepo(cfg.TxManager)
	purchaseRepo := document_repo.NewPurchaseRepo(cfg.TxManager)
	promotionRepo := promo_repo.NewPromotionRepo(cfg.TxManager)
	reportRepo := report_repo.NewReportRepo(cfg.TxManager)

	ledger := stock.NewService(stockRepo, cfg.TxManager)
	products := product.NewService(productRepo, variantRepo, cfg.TxManager, cfg.Numerator)

	promotions := promotion.NewService(promotionRepo, cfg.TxManager)
	if cfg.Redis != nil {
		promotions = promotions.WithCache(cache.NewPromotionCache(cfg.Redis, cfg.PromotionCacheTTL))
	}

	audit, err := postgres.NewAuditService(cfg.TxManager)
	if err != nil {
		// Adjustment review runs without an audit trail in this case.
		cfg.Logger.Warnw("audit service unavailable", "error", err)
		audit = nil
	}

	return appServices{
		categories:  category.NewService(categoryRepo, cfg.TxManager, cfg.Numerator),
		products:    products,
		ledger:      ledger,
		adjustments: adjustment.NewService(adjustmentRepo, ledger, cfg.TxManager, cfg.Numerator),
		stockCounts: stockcount.NewService(stockCountRepo, products, ledger, cfg.TxManager, cfg.Numerator),
		promotions:  promotions,
		sales:       sales.NewService(saleRepo, ledger, promotions, cfg.TxManager, cfg.Numerator),
		purchasing:  purchasing.NewService(purchaseRepo, ledger, cfg.TxManager, cfg.Numerator),
		reports:     reports.NewService(reportRepo),
		audit:       audit,
	}
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	publicAuth := rg.Group("/auth")

	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerCatalogRoutes registers catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, services appServices) {
	catalogs := rg.Group("/catalog")
	baseHandler := handlers.NewBaseHandler()

	// --- CATEGORIES ---
	{
		handler := handlers.NewCategoryHandler(baseHandler, services.categories)
		group := catalogs.Group("/categories")
		RegisterCatalogRoutes(group, handler, auth.RoleManager)
		group.POST("/:id/move", middleware.RequireRole(auth.RoleManager), handler.Move)
	}

	// --- PRODUCTS ---
	{
		handler := handlers.NewProductHandler(baseHandler, services.products)
		group := catalogs.Group("/products")
		RegisterCatalogRoutes(group, handler, auth.RoleManager)

		write := middleware.RequireRole(auth.RoleManager)
		group.GET("/low-stock", handler.LowStock)
		group.GET("/statistics", handler.Statistics)
		group.GET("/barcode/:barcode", handler.FindByBarcode)
		group.POST("/:id/barcode", write, handler.GenerateBarcode)
		group.GET("/:id/variants", handler.ListVariants)
		group.POST("/:id/variants", write, handler.AddVariant)
		group.PUT("/:id/variants/:variantId", write, handler.UpdateVariant)
		group.DELETE("/:id/variants/:variantId", write, handler.RemoveVariant)
	}
}

// registerStockRoutes registers stock ledger endpoints.
func registerStockRoutes(rg *gin.RouterGroup, services appServices) {
	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewStockHandler(baseHandler, services.ledger)

	group := rg.Group("/stock")
	group.GET("/turnover", handler.Turnover)
	group.GET("/:productId", handler.OnHand)
	group.GET("/:productId/movements", handler.Movements)
	group.POST("/reconcile", middleware.RequireAdmin(), handler.Reconcile)
}

// registerDocumentRoutes registers document workflow endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, services appServices) {
	baseHandler := handlers.NewBaseHandler()

	manager := middleware.RequireRole(auth.RoleManager)
	cashier := middleware.RequireRole(auth.RoleManager, auth.RoleCashier)

	// --- ADJUSTMENTS ---
	{
		handler := handlers.NewAdjustmentHandler(baseHandler, services.adjustments, services.audit)
		group := rg.Group("/adjustments")
		group.GET("", handler.List)
		group.GET("/pending-count", handler.PendingCount)
		group.GET("/:id", handler.Get)
		group.GET("/:id/history", manager, handler.History)
		group.POST("", cashier, handler.Create)
		// Review requires a manager: the proposer cannot approve their own
		// correction by role design.
		group.POST("/:id/approve", manager, handler.Approve)
		group.POST("/:id/reject", manager, handler.Reject)
	}

	// --- STOCK COUNTS ---
	{
		handler := handlers.NewStockCountHandler(baseHandler, services.stockCounts)
		group := rg.Group("/stock-counts")
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.GET("/:id/items", handler.Items)
		group.POST("", manager, handler.Create)
		group.POST("/:id/start", manager, handler.Start)
		group.POST("/:id/counts", cashier, handler.RecordCount)
		group.POST("/:id/items/:productId/verify", manager, handler.VerifyItem)
		group.POST("/:id/complete", manager, handler.Complete)
		group.POST("/:id/cancel", manager, handler.Cancel)
	}

	// --- SALES ---
	{
		handler := handlers.NewSaleHandler(baseHandler, services.sales)
		group := rg.Group("/sales")
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("", cashier, handler.Compose)
		group.POST("/:id/complete", cashier, handler.Complete)
		group.POST("/:id/cancel", cashier, handler.Cancel)
		group.POST("/:id/return", manager, handler.Return)
	}

	// --- PURCHASE ORDERS ---
	{
		handler := handlers.NewPurchaseHandler(baseHandler, services.purchasing)
		group := rg.Group("/purchase-orders")
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("", manager, handler.Compose)
		group.POST("/:id/submit", manager, handler.Submit)
		group.POST("/:id/receive", manager, handler.Receive)
		group.POST("/:id/cancel", manager, handler.Cancel)
	}
}

// registerPromotionRoutes registers promotion endpoints.
func registerPromotionRoutes(rg *gin.RouterGroup, services appServices) {
	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewPromotionHandler(baseHandler, services.promotions)

	manager := middleware.RequireRole(auth.RoleManager)

	group := rg.Group("/promotions")
	group.GET("", handler.List)
	group.GET("/validate-code/:code", handler.ValidateCode)
	group.GET("/:id", handler.Get)
	group.GET("/:id/products", handler.Products)
	group.GET("/:id/stats", handler.UsageStats)
	group.POST("", manager, handler.Create)
	group.PUT("/:id", manager, handler.Update)
	group.PUT("/:id/products", manager, handler.SetProducts)
	group.POST("/:id/activate", manager, handler.Activate)
	group.POST("/:id/pause", manager, handler.Pause)
	group.POST("/:id/cancel", manager, handler.Cancel)
	group.DELETE("/:id", manager, handler.Delete)
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, services appServices) {
	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewReportsHandler(baseHandler, services.reports)

	manager := middleware.RequireRole(auth.RoleManager)

	group := rg.Group("/reports")
	group.GET("/sales", manager, handler.Sales)
	group.GET("/movements", manager, handler.Movements)
	group.GET("/valuation", manager, handler.Valuation)
}
