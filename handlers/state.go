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

// ListStates returns a cursor-paginated page of states with their cities
// GET /app/states/
func ListStates(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)

	query := db.DB.Model(&models.State{}).Preload("Cities")

	page, err := services.Paginate[models.State](query, cfg.JWTSecret, c.QueryParam("cursor"), cfg.PageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// CreateStates accepts one state or an array of states, each with optional
// nested cities, attached to existing countries of the caller.
// POST /app/states/
func CreateStates(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	batch, isMany, err := decodeBatch[services.StateInput](c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	created, err := services.CreateStateBatch(db.DB, user, batch)
	if err != nil {
		return respondError(c, err)
	}

	return respondBatch(c, http.StatusCreated, created, isMany)
}

// GetState returns one state with its cities
// GET /app/states/:id
func GetState(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	state, err := services.GetState(db.DB, user.ID, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// UpdateState handles PUT (full) and PATCH (partial) updates
// PUT/PATCH /app/states/:id
func UpdateState(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	in := new(services.StateUpdate)
	if err := c.Bind(in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	full := c.Request().Method == http.MethodPut
	state, err := services.UpdateState(db.DB, user.ID, c.Param("id"), in, full)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// DeleteState removes a state and cascades to its cities
// DELETE /app/states/:id
func DeleteState(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	if err := services.DeleteState(db.DB, user.ID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
