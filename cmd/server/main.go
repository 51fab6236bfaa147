package main

import (
	"log"
	"time"

	"geo_atlas_go/config"
	"geo_atlas_go/db"
	"geo_atlas_go/handlers"
	"geo_atlas_go/middleware"
	"geo_atlas_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes (no authentication required)
	e.POST("/api/register", handlers.RegisterHandler)
	e.POST("/api/login", handlers.LoginHandler)

	api := e.Group("/api")
	api.Use(middleware.RequireAuth(cfg))
	{
		api.GET("/logout", handlers.LogoutHandler)
	}

	// Protected routes
	app := e.Group("/app")
	app.Use(middleware.RequireAuth(cfg))
	{
		app.GET("/", handlers.HomeHandler)

		app.GET("/countries/", handlers.ListCountries)
		app.POST("/countries/", handlers.CreateCountries)
		app.GET("/countries/:id", handlers.GetCountry)
		app.PUT("/countries/:id", handlers.UpdateCountry)
		app.PATCH("/countries/:id", handlers.UpdateCountry)
		app.DELETE("/countries/:id", handlers.DeleteCountry)

		app.GET("/states/", handlers.ListStates)
		app.POST("/states/", handlers.CreateStates)
		app.GET("/states/:id", handlers.GetState)
		app.PUT("/states/:id", handlers.UpdateState)
		app.PATCH("/states/:id", handlers.UpdateState)
		app.DELETE("/states/:id", handlers.DeleteState)

		app.GET("/cities/", handlers.ListCities)
		app.POST("/cities/", handlers.CreateCities)
		app.GET("/cities/:id", handlers.GetCity)
		app.PUT("/cities/:id", handlers.UpdateCity)
		app.PATCH("/cities/:id", handlers.UpdateCity)
		app.DELETE("/cities/:id", handlers.DeleteCity)
	}

	// Start background cleanup job (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			// Clean up expired outstanding refresh tokens
			if err := services.CleanupExpiredTokens(db.DB); err != nil {
				log.Printf("Error cleaning up expired tokens: %v", err)
			}
		}
	}()

	// Start server
	log.Printf("Starting server on port %s (%s)", cfg.ServerPort, cfg.Environment)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
