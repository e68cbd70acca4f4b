package routes

import (
	"time"

	"slothold/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(
	r *gin.Engine,
	rh *handlers.ReservationHandler,
	ch *handlers.ConflictHandler,
	bh *handlers.BookingHandler,
) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", handlers.HealthHandler)

	api := r.Group("/api")
	{
		reservations := api.Group("/reservations")
		{
			reservations.POST("", rh.Reserve)
			reservations.GET("/holder", rh.GetByHolder)
			reservations.POST("/:id/extend", rh.Extend)
			reservations.GET("/:id/status", rh.Status)
			reservations.POST("/:id/convert", rh.Convert)
			reservations.DELETE("/:id", rh.Release)
		}

		api.GET("/slots/availability", rh.Availability)

		conflicts := api.Group("/conflicts")
		{
			conflicts.POST("/resolve", ch.Resolve)
			conflicts.GET("/history", ch.History)
		}

		api.POST("/bookings", bh.ConfirmBooking)
	}
}
