package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/openshelf/library-system/docs"
	"github.com/openshelf/library-system/internal/api/handler"
	"github.com/openshelf/library-system/internal/api/middleware"
	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
	"github.com/openshelf/library-system/internal/infrastructure/storage"
)

// Dependencies carries everything the router needs, injected explicitly
// from main.
type Dependencies struct {
	Auth     ports.AuthService
	Accounts ports.AccountService
	Catalog  ports.CatalogService
	Borrows  ports.BorrowService
	Transfer ports.TransferService

	Images    *storage.ImageStore
	Mongo     *mongo.Database
	Redis     *redis.Client
	JWTSecret string
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORS())
	e.Use(echoprometheus.NewMiddleware("library"))

	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewAccountHandler(deps.Accounts, deps.Images, domain.RoleUser)
	adminHandler := handler.NewAccountHandler(deps.Accounts, deps.Images, domain.RoleAdmin)
	profileHandler := handler.NewProfileHandler(deps.Accounts)
	bookHandler := handler.NewBookHandler(deps.Catalog)
	borrowHandler := handler.NewBorrowHandler(deps.Borrows)
	transferHandler := handler.NewTransferHandler(deps.Transfer)

	authed := middleware.Auth(deps.JWTSecret)
	adminOnly := middleware.RequireAdmin(deps.Auth)

	api := e.Group("/api")

	// Auth
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// Self-service
	me := api.Group("/user/me", authed)
	me.PUT("", profileHandler.UpdateMe)
	me.DELETE("", profileHandler.DeleteMe)

	// Admin account management
	users := api.Group("/admin/users", authed, adminOnly)
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/export", transferHandler.ExportFixed(ports.TransferUsers))
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)
	users.PUT("/:id/ban", userHandler.Ban)
	users.PUT("/:id/restore", userHandler.Restore)
	users.PUT("/:id/image", userHandler.SetImage)

	admins := api.Group("/admin/admins", authed, adminOnly)
	admins.GET("", adminHandler.List)
	admins.POST("", adminHandler.Create)
	admins.GET("/export", transferHandler.ExportFixed(ports.TransferAdmins))
	admins.GET("/:id", adminHandler.Get)
	admins.PUT("/:id", adminHandler.Update)
	admins.DELETE("/:id", adminHandler.Delete)
	admins.PUT("/:id/ban", adminHandler.Ban)
	admins.PUT("/:id/restore", adminHandler.Restore)
	admins.PUT("/:id/image", adminHandler.SetImage)

	// Catalog. Static segments are registered before /:id so the router
	// never swallows them as an id.
	books := api.Group("/books", authed)
	books.GET("/reports", borrowHandler.Report, adminOnly)
	books.GET("/export", transferHandler.ExportFixed(ports.TransferBooks), adminOnly)
	books.PUT("/return/:recordId", borrowHandler.Return)
	books.GET("", bookHandler.List, adminOnly)
	books.POST("", bookHandler.Create, adminOnly)
	books.GET("/:id", bookHandler.Get, adminOnly)
	books.PUT("/:id", bookHandler.Update, adminOnly)
	books.DELETE("/:id", bookHandler.Delete, adminOnly)
	books.POST("/:id/borrow", borrowHandler.Borrow)
	books.POST("/:id/order", borrowHandler.Order)

	// Bulk transfer
	data := api.Group("/data", authed, adminOnly)
	data.GET("/:type/export", transferHandler.Export)
	data.POST("/:type/import", transferHandler.Import)

	// Health probes (no auth required)
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// Observability and docs
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static("/uploads", deps.Images.Dir())

	return e
}
