// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ridebud/internal/http/handlers"
	"ridebud/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	r := gin.New()
	r.Use(middleware.Tracing(), middleware.Logging(deps.Log), middleware.Recovery(), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	fareHandler := handlers.NewFareHandler(deps.Pricing, deps.Location)
	api.POST("/fares/estimate", fareHandler.Estimate)

	journeyHandler := handlers.NewJourneyHandler(deps.Journeys)
	api.POST("/journeys", journeyHandler.Submit)
	api.GET("/journeys/:id", journeyHandler.Get)
	api.POST("/journeys/:id/match", journeyHandler.Match)
	api.POST("/journeys/:id/offer", journeyHandler.Offer)
	api.POST("/journeys/:id/join", journeyHandler.Join)
	api.POST("/journeys/:id/leave", journeyHandler.Leave)
	api.POST("/journeys/:id/complete", journeyHandler.Complete)
	api.POST("/journeys/:id/cancel", journeyHandler.Cancel)
	api.DELETE("/journeys/:id", journeyHandler.Delete)

	rideHandler := handlers.NewRideHandler(deps.Rides, deps.Browser)
	api.GET("/rides/nearby", rideHandler.Nearby)
	api.GET("/rides/:id", rideHandler.Get)

	return r
}
