package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"greendrake/realty/internal/api/handlers"
	"greendrake/realty/internal/api/middleware"
	"greendrake/realty/internal/cache"
	"greendrake/realty/internal/captcha"
	"greendrake/realty/internal/config"
	"greendrake/realty/internal/models"
	"greendrake/realty/internal/services"
	"greendrake/realty/internal/storage"
	"greendrake/realty/internal/tasks"
)

// Dependencies are the connections and adapters the public API is built from.
type Dependencies struct {
	DB           *mongo.Database
	Redis        *redis.Client // optional; disables the search cache when nil
	TaskClient   tasks.Enqueuer
	ImageStorage storage.IImageStorage
	Geocoder     services.IGeocoder // optional
	Captcha      captcha.ITurnstileVerifier
}

// searchCachePrefix namespaces property search entries in Redis.
const searchCachePrefix = "props"

// SetupRouter configures and returns the main Gin engine. ctx bounds background work such as rate limiter cleanup.
func SetupRouter(ctx context.Context, cfg *config.Config, deps Dependencies) *gin.Engine {
	userService := services.NewUserService(deps.DB, cfg)
	authService := services.NewAuthService(cfg, userService)
	propertyService := services.NewPropertyService(deps.DB, cfg, cache.NewSearchCache(deps.Redis, searchCachePrefix, cfg.GetCacheTTL), deps.Geocoder)
	interestService := services.NewInterestService(deps.DB, propertyService)
	contactService := services.NewContactService(deps.DB)

	verifier := deps.Captcha
	if verifier == nil {
		verifier = captcha.NewTurnstileVerifier(cfg)
	}

	authHandler := handlers.NewAuthHandler(cfg, authService, userService, deps.TaskClient)
	userHandler := handlers.NewUserHandler(userService)
	propertyHandler := handlers.NewPropertyHandler(cfg, propertyService, deps.ImageStorage)
	interestHandler := handlers.NewInterestHandler(interestService, propertyService, userService, deps.TaskClient)
	contactHandler := handlers.NewContactHandler(cfg, contactService, deps.TaskClient)

	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20
	r.Use(middleware.CORS(cfg.ClientURL))
	r.Use(middleware.Metrics())

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg)
	limited := []gin.HandlerFunc{middleware.Captcha(verifier, cfg.CaptchaTokenTTL), rateLimiter.Limit()}
	requireAuth := middleware.Auth(cfg.JwtSecret)
	agentOnly := middleware.RequireRole(models.RoleAgent)
	clientOnly := middleware.RequireRole(models.RoleClient)

	v1 := r.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", append(limited, authHandler.Register)...)
		authGroup.POST("/login", append(limited, authHandler.Login)...)
		authGroup.POST("/forgot-password", append(limited, authHandler.ForgotPassword)...)
		authGroup.POST("/reset-password/:token", append(limited, authHandler.ResetPassword)...)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", requireAuth, authHandler.Me)
	}

	props := v1.Group("/properties")
	{
		props.GET("", propertyHandler.Search)

		props.GET("/wishlist", requireAuth, userHandler.ListSavedHomes)
		props.GET("/agent/listings", requireAuth, agentOnly, propertyHandler.ListMine)
		props.GET("/agent/interests", requireAuth, agentOnly, interestHandler.ListForAgent)
		props.GET("/interests/mine", requireAuth, clientOnly, interestHandler.ListMine)
		props.PATCH("/interests/:interestId/status", requireAuth, agentOnly, interestHandler.UpdateStatus)

		props.GET("/:id", propertyHandler.GetByID)
		props.POST("", requireAuth, agentOnly, propertyHandler.Create)
		props.PUT("/:id", requireAuth, agentOnly, propertyHandler.Update)
		props.DELETE("/:id", requireAuth, agentOnly, propertyHandler.Delete)
		props.POST("/:id/photos", requireAuth, agentOnly, propertyHandler.UploadPhotos)
		props.POST("/:id/wishlist", requireAuth, userHandler.AddSavedHome)
		props.DELETE("/:id/wishlist", requireAuth, userHandler.RemoveSavedHome)
		props.POST("/:id/interest", requireAuth, clientOnly, interestHandler.Create)
	}

	users := v1.Group("/users")
	{
		users.GET("/:id/public", userHandler.GetPublicProfile)

		me := users.Group("", requireAuth)
		me.GET("/profile", userHandler.GetProfile)
		me.PUT("/profile", userHandler.UpdateProfile)
		me.PUT("/password", userHandler.ChangePassword)
		me.GET("/saved-homes", userHandler.ListSavedHomes)
		me.GET("/saved-searches", userHandler.ListSavedSearches)
		me.POST("/saved-searches", userHandler.AddSavedSearch)
		me.DELETE("/saved-searches/:searchId", userHandler.RemoveSavedSearch)
	}

	v1.POST("/contact", append(limited, contactHandler.Submit)...)
	contacts := v1.Group("/contacts", requireAuth, agentOnly)
	{
		contacts.GET("", contactHandler.List)
		contacts.PATCH("/:id/status", contactHandler.UpdateStatus)
	}

	v1.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	return r
}

// SetupServiceRouter configures the internal service engine: the {method, arguments} API, health and metrics.
func SetupServiceRouter(handler *handlers.ServiceHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", handler.HandleRequest)
	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
