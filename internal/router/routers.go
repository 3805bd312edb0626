package router

import (
	"github.com/Payphone-Digital/socialhub/config"
	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/handler"
	"github.com/Payphone-Digital/socialhub/internal/middleware"
	"github.com/Payphone-Digital/socialhub/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

type Router struct {
	userHandler   *handler.UserHandler
	authHandler   *handler.AuthHandler
	healthHandler *handler.HealthHandler

	validMw *middleware.ValidationMiddleware
	jwtMw   *middleware.JWTMiddleware
	limiter ratelimit.Limiter
	Config  *config.Config
}

func NewRouter(
	user *handler.UserHandler,
	auth *handler.AuthHandler,
	health *handler.HealthHandler,

	validMw *middleware.ValidationMiddleware,
	jwtMw *middleware.JWTMiddleware,
	limiter ratelimit.Limiter,
	config *config.Config,
) *Router {
	return &Router{
		userHandler:   user,
		authHandler:   auth,
		healthHandler: health,

		validMw: validMw,
		jwtMw:   jwtMw,
		limiter: limiter,
		Config:  config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.ContextMiddleware(constants.AppName, r.Config.App.Timeout))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RequestResponseMiddleware())
	router.Use(middleware.SecurityLoggingMiddleware())
	router.Use(middleware.CORS(r.Config.Links.FrontendBaseURL))

	router.GET("/health", r.healthHandler.HealthCheck)
	router.GET("/health/live", r.healthHandler.BasicHealth)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(r.limiter, constants.RateLimitBucketAPI))
	{
		r.authRoutes(api)
		r.userRoutes(api)
	}

	return router
}

// body validates the JSON body of a route into a fresh T
func body[T any](r *Router) gin.HandlerFunc {
	return r.validMw.ValidateRequestBody(func() interface{} { return new(T) })
}
