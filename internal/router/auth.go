package router

import (
	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/dto"
	"github.com/Payphone-Digital/socialhub/internal/middleware"
	"github.com/gin-gonic/gin"
)

func (r *Router) authRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		// Credential endpoints share the stricter bucket
		limited := auth.Group("")
		limited.Use(middleware.RateLimit(r.limiter, constants.RateLimitBucketAuth))
		{
			limited.POST("/register", body[dto.RegisterRequest](r), r.authHandler.Register)
			limited.POST("/login", body[dto.LoginRequest](r), r.authHandler.Login)
			limited.POST("/refresh", body[dto.RefreshTokenRequest](r), r.authHandler.RefreshToken)
		}

		auth.GET("/confirm-email", r.authHandler.ConfirmEmail)
		auth.POST("/logout", body[dto.LogoutRequest](r), r.authHandler.Logout)

		protected := auth.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.GET("/me", r.authHandler.Me)
		}
	}
}
