// Package router wires the gin engine: middleware chain, probes, and the
// versioned API group.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roamledger/roamledger/config"
	"github.com/roamledger/roamledger/handlers"
	"github.com/roamledger/roamledger/middleware"
)

// Dependencies holds everything route setup needs.
type Dependencies struct {
	Config         *config.Config
	SessionHandler *handlers.SessionHandler
	TripHandler    *handlers.TripHandler
	ExpenseHandler *handlers.ExpenseHandler
	HealthHandler  *handlers.HealthHandler
}

// SetupRouter configures and returns the gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	_ = r.SetTrustedProxies(deps.Config.Server.TrustedProxies)

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	r.GET("/health", deps.HealthHandler.Readiness)
	r.GET("/health/liveness", deps.HealthHandler.Liveness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		// Session issuance is the only unauthenticated v1 route.
		v1.POST("/session", deps.SessionHandler.OpenSession)

		authed := v1.Group("")
		authed.Use(middleware.SessionAuth(&deps.Config.Server))
		{
			authed.POST("/trips", deps.TripHandler.CreateTrip)
			authed.PUT("/trips/:id", deps.TripHandler.UpdateTrip)
			authed.DELETE("/trips/:id", deps.TripHandler.DeleteTrip)
			authed.GET("/trips/by-identity/:identity", deps.TripHandler.ListTripsByIdentity)
			authed.POST("/trips/:id/expenses", deps.ExpenseHandler.CreateExpense)

			authed.PUT("/expenses/:id", deps.ExpenseHandler.UpdateExpense)
			authed.DELETE("/expenses/:id", deps.ExpenseHandler.DeleteExpense)
			authed.GET("/expenses/by-trip/:tripID", deps.ExpenseHandler.ListExpensesByTrip)
		}
	}

	return r
}
