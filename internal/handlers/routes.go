package handlers

import (
	"listing-portal/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the portal pages, the JSON API and, when admin is
// set, the admin API. Credential forms are throttled by limiter.
func RegisterRoutes(r *gin.Engine, portal *PortalHandler, admin *AdminHandler, limiter *ratelimit.Limiter) {
	r.GET("/", portal.Home)
	r.GET("/publish", portal.PublishPage)
	r.POST("/publish", portal.Publish)
	r.POST("/listings/:id/delete", portal.DeleteListing)
	r.POST("/contact", portal.Contact)
	r.POST("/logout", portal.Logout)

	credentials := r.Group("/")
	if limiter != nil {
		credentials.Use(RateLimit(limiter))
	}
	credentials.POST("/login", portal.Login)
	credentials.POST("/signup", portal.Signup)

	r.GET("/api/listings", portal.ListListings)

	if admin != nil {
		api := r.Group("/api/admin", portal.RequireAdmin())
		{
			api.GET("/stats", admin.GetStats)
			api.GET("/delete-logs", admin.GetDeleteLogs)
			api.POST("/cleanup/run", admin.RunCleanup)
		}
	}
}
