package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-library-api/internal/middleware"
	"github.com/noah-isme/sma-library-api/internal/service"
	"github.com/noah-isme/sma-library-api/pkg/config"
	"github.com/noah-isme/sma-library-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-library-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-library-api/pkg/middleware/requestid"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth     *AuthHandler
	Books    *BookHandler
	Students *StudentHandler
	Schools  *SchoolHandler
	Users    *UserHandler
	Exports  *ExportHandler
	Health   *HealthHandler
}

// RouterOptions carries the cross-cutting pieces of the HTTP stack.
type RouterOptions struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator
	LoginLimiter   *middleware.IPRateLimiter
}

// NewRouter builds the gin engine. Access decisions happen in the services;
// routes only attach the caller's identity.
func NewRouter(opts RouterOptions, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LoginLimiter == nil {
		opts.LoginLimiter = middleware.NewIPRateLimiter(1, 5)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix, middleware.ClientInfo())

	auth := api.Group("/auth")
	auth.POST("/login", middleware.RateLimit(opts.LoginLimiter), h.Auth.Login)
	auth.POST("/refresh", middleware.RateLimit(opts.LoginLimiter), h.Auth.Refresh)
	auth.POST("/logout", middleware.JWT(opts.Tokens), h.Auth.Logout)
	auth.GET("/me", middleware.JWT(opts.Tokens), h.Auth.Me)

	records := api.Group("", middleware.OptionalJWT(opts.Tokens))

	books := records.Group("/books")
	books.GET("", h.Books.List)
	books.POST("", h.Books.Create)
	books.GET("/:id", h.Books.Get)
	books.PUT("/:id", h.Books.Update)
	books.PATCH("/:id", h.Books.Update)
	books.DELETE("/:id", h.Books.Delete)
	books.GET("/:id/label", h.Books.Label)

	students := records.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.PATCH("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)

	schools := records.Group("/schools")
	schools.GET("", h.Schools.List)
	schools.POST("", h.Schools.Create)
	schools.GET("/:id", h.Schools.Get)
	schools.PUT("/:id", h.Schools.Update)
	schools.PATCH("/:id", h.Schools.Update)
	schools.DELETE("/:id", h.Schools.Delete)

	users := records.Group("/users")
	users.GET("", h.Users.List)
	users.POST("", h.Users.Create)
	users.GET("/:id", h.Users.Get)
	users.PUT("/:id", h.Users.Update)
	users.PATCH("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	// Downloads authenticate with the signed token alone so links work from a browser.
	api.GET("/exports/download", h.Exports.Download)
	api.POST("/exports/:resource", middleware.JWT(opts.Tokens), h.Exports.Create)

	return r
}
