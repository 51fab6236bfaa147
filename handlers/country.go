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

// ListCountries returns a cursor-paginated page of the caller's countries
// with their full subtrees.
// GET /app/countries/
func ListCountries(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	cfg := c.Get("config").(*config.Config)

	query := db.DB.Model(&models.Country{}).
		Preload("States.Cities").
		Where("owner_id = ?", user.ID)

	page, err := services.Paginate[models.Country](query, cfg.JWTSecret, c.QueryParam("cursor"), cfg.PageSize)
	if err != nil {
		return respondError(c, err)
	}

	for i := range page.Items {
		page.Items[i].OwnerName = user.Email
	}
	return c.JSON(http.StatusOK, page)
}

// CreateCountries accepts a single country tree or an array of trees, each
// with optional nested states and cities, and creates them atomically.
// POST /app/countries/
func CreateCountries(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	batch, isMany, err := decodeBatch[services.CountryInput](c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	created, err := services.CreateCountryBatch(db.DB, user, batch)
	if err != nil {
		return respondError(c, err)
	}

	return respondBatch(c, http.StatusCreated, created, isMany)
}

// GetCountry returns one owned country with its subtree
// GET /app/countries/:id
func GetCountry(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	country, err := services.GetCountry(db.DB, user.ID, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, country)
}

// UpdateCountry handles PUT (full) and PATCH (partial) updates
// PUT/PATCH /app/countries/:id
func UpdateCountry(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	in := new(services.CountryUpdate)
	if err := c.Bind(in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	full := c.Request().Method == http.MethodPut
	country, err := services.UpdateCountry(db.DB, user.ID, c.Param("id"), in, full)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, country)
}

// DeleteCountry removes a country and cascades to its states and cities
// DELETE /app/countries/:id
func DeleteCountry(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	if err := services.DeleteCountry(db.DB, user.ID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
