package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/productsapi/internal/repository"
	"github.com/talkincode/productsapi/internal/webserver"
)

// registered before the product routes so /categories never reaches /:id
func (h *Handler) registerCategoryRoutes(s *webserver.WebServer) {
	s.ApiGET("/products/categories", h.listCategories)
	s.ApiGET("/products/categories/:id", h.getCategory)
}

func (h *Handler) listCategories(c echo.Context) error {
	categories, err := h.categories.List(c.Request().Context())
	if err != nil {
		zap.L().Error("list categories", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query categories", nil)
	}
	return ok(c, categories)
}

func (h *Handler) getCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	category, err := h.categories.Get(c.Request().Context(), id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		zap.L().Error("get category", zap.Int64("id", id), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query category", nil)
	}
	return ok(c, category)
}
