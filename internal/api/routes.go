// Package api contains the API routes for the quote collector
package api

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/nsvirk/nsequotes/internal/api/handlers"
	"github.com/nsvirk/nsequotes/internal/config"
	"github.com/nsvirk/nsequotes/internal/repository"
	"github.com/nsvirk/nsequotes/internal/service"
	"github.com/nsvirk/nsequotes/pkg/utils/response"
)

// SetupRoutes configures the routes for the API. cycleRepo may be nil when no
// database is configured.
func SetupRoutes(e *echo.Echo, cfg *config.Config, quoteService *service.QuoteService, collector *service.CollectorService, cycleRepo *repository.CycleRepository) {

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute(cfg))

	// Quote routes
	quoteHandler := handlers.NewQuoteHandler(quoteService)
	api.GET("/quote/:symbol", quoteHandler.GetQuote)
	e.GET("/nse/:symbol", quoteHandler.GetRawQuote)

	// Collector routes
	var cycles handlers.CycleLister
	if cycleRepo != nil {
		cycles = cycleRepo
	}
	collectorHandler := handlers.NewCollectorHandler(collector, cycles)
	collectorGroup := api.Group("/collector")
	collectorGroup.GET("/status", collectorHandler.GetStatus)
	collectorGroup.GET("/cycles", collectorHandler.GetCycles)
}

// indexRoute returns the name and version of the API
func indexRoute(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
		return response.SuccessResponse(c, message)
	}
}
