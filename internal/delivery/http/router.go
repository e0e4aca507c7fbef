package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	EconomyHandler *EconomyHandler
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	// Middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]interface{}{
			"status":  "healthy",
			"service": "playerbank",
		})
	})

	// API group
	api := e.Group("/api")
	{
		api.POST("/sessions", config.EconomyHandler.Connect)
		api.DELETE("/sessions/:id", config.EconomyHandler.Disconnect)

		api.GET("/users/:id/balances/:currency", config.EconomyHandler.GetBalance)
		api.PUT("/users/:id/balances/:currency", config.EconomyHandler.SetBalance)

		api.POST("/pay", config.EconomyHandler.Pay)

		api.GET("/currencies", config.EconomyHandler.Currencies)
		api.GET("/currencies/:currency/top", config.EconomyHandler.Top)
	}
}
