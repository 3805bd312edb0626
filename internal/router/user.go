package router

import (
	"github.com/Payphone-Digital/socialhub/internal/dto"
	"github.com/gin-gonic/gin"
)

func (r *Router) userRoutes(api *gin.RouterGroup) {
	users := api.Group("/users")

	settings := users.Group("/me/settings")
	settings.Use(r.jwtMw.RequireAuth())
	{
		settings.GET("", r.userHandler.GetSettings)
		settings.PATCH("", body[dto.UpdateSettingsRequest](r), r.userHandler.UpdateSettings)
	}

	public := users.Group("")
	public.Use(r.jwtMw.OptionalAuth())
	{
		public.GET("/username/:username", r.userHandler.GetProfileByUsername)
		public.GET("/:id", r.userHandler.GetProfile)
	}
}
