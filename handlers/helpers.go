package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"unicode"

	"geo_atlas_go/apperr"

	"github.com/labstack/echo/v4"
)

// decodeBatch reads the request body as either a single object or an array
// of objects, returning a uniform slice plus whether the input was a list
// so the response can mirror the submitted shape.
func decodeBatch[T any](c echo.Context) ([]T, bool, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, false, err
	}

	isMany := false
	for _, r := range string(body) {
		if unicode.IsSpace(r) {
			continue
		}
		isMany = r == '['
		break
	}

	if isMany {
		var batch []T
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, true, err
		}
		return batch, true, nil
	}

	var single T
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, false, err
	}
	return []T{single}, false, nil
}

// respondBatch mirrors the submitted shape: a list in, a list out.
func respondBatch[T any](c echo.Context, status int, items []T, isMany bool) error {
	if isMany {
		return c.JSON(status, items)
	}
	if len(items) == 0 {
		return c.JSON(status, nil)
	}
	return c.JSON(status, items[0])
}

// respondError maps the error taxonomy to HTTP statuses. Store failures
// after validation are reported as retryable; nothing is swallowed into a
// partial result.
func respondError(c echo.Context, err error) error {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"errors": verr.Errors,
		})
	}

	var conflict *apperr.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": conflict.Error(),
		})
	}

	var authErr *apperr.AuthError
	if errors.As(err, &authErr) {
		// Never reveal which check failed
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authentication failed",
		})
	}

	var forbidden *apperr.ForbiddenError
	if errors.As(err, &forbidden) {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "access denied",
		})
	}

	var notFound *apperr.NotFoundError
	if errors.As(err, &notFound) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": notFound.Error(),
		})
	}

	if errors.Is(err, apperr.ErrInvalidCursor) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid pagination cursor",
		})
	}

	var storeErr *apperr.StoreError
	if errors.As(err, &storeErr) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "storage temporarily unavailable, retry the request",
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "internal error",
	})
}
