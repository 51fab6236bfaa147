package handlers

import (
	"net/http"

	"geo_atlas_go/config"
	"geo_atlas_go/db"
	"geo_atlas_go/middleware"
	"geo_atlas_go/models"
	"geo_atlas_go/services"

	"github.com/labstack/echo/v4"
)

// ListCities returns a cursor-paginated page of cities
// GET /app/cities/
func ListCities(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)

	query := db.DB.Model(&models.City{})

	page, err := services.Paginate[models.City](query, cfg.JWTSecret, c.QueryParam("cursor"), cfg.PageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// CreateCities accepts one city or an array of cities (flat, no nesting
// below city), attached to existing states of the caller.
// POST /app/cities/
func CreateCities(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	batch, isMany, err := decodeBatch[services.CityInput](c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	created, err := services.CreateCityBatch(db.DB, user, batch)
	if err != nil {
		return respondError(c, err)
	}

	return respondBatch(c, http.StatusCreated, created, isMany)
}

// GetCity returns one city
// GET /app/cities/:id
func GetCity(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	city, err := services.GetCity(db.DB, user.ID, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, city)
}

// UpdateCity handles PUT (full) and PATCH (partial) updates
// PUT/PATCH /app/cities/:id
func UpdateCity(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	in := new(services.CityUpdate)
	if err := c.Bind(in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	full := c.Request().Method == http.MethodPut
	city, err := services.UpdateCity(db.DB, user.ID, c.Param("id"), in, full)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, city)
}

// DeleteCity removes a single city
// DELETE /app/cities/:id
func DeleteCity(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	if err := services.DeleteCity(db.DB, user.ID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
