package routes

import (
	"tripmingle/internal/handlers"
	"tripmingle/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupTripRoutes wires the trip lifecycle endpoints.
func SetupTripRoutes(r *gin.RouterGroup, tripHandler *handlers.TripHandler, jwtSecret string) {
	trips := r.Group("/trips")
	trips.Use(middleware.AuthRequired(jwtSecret))
	{
		trips.GET("", tripHandler.ListTrips)
		trips.GET("/active", tripHandler.GetActiveTrip)
		trips.GET("/:id", tripHandler.GetTrip)
		trips.GET("/number/:trip_number", tripHandler.GetTripByNumber)
		trips.POST("/:id/cancel", tripHandler.CancelTrip)

		client := trips.Group("")
		client.Use(middleware.ClientRequired())
		{
			client.POST("", tripHandler.CreateTrip)
			client.PUT("/:id/payment-method", tripHandler.SetPaymentMethod)
			client.PUT("/:id/pricing", tripHandler.SetPricing)
		}

		partner := trips.Group("")
		partner.Use(middleware.PartnerRequired())
		{
			partner.POST("/:id/accept", tripHandler.AcceptTrip)
			partner.POST("/:id/refuse", tripHandler.RefuseTrip)
			partner.PATCH("/:id/status", tripHandler.UpdateTripStatus)
		}
	}
}
