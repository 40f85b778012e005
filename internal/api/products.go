package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/talkincode/productsapi/internal/domain"
	"github.com/talkincode/productsapi/internal/repository"
	"github.com/talkincode/productsapi/internal/service"
	"github.com/talkincode/productsapi/internal/webserver"
)

// productPayload is the form model of create and update requests.
// The optional image file is read separately.
type productPayload struct {
	Name        string `form:"name" validate:"required,max=200"`
	Price       string `form:"price" validate:"required"`
	Description string `form:"description" validate:"required,max=2000"`
	Category    string `form:"category" validate:"required,max=200"`
}

func (h *Handler) registerProductRoutes(s *webserver.WebServer) {
	s.ApiGET("/products", h.listProducts)
	s.ApiGET("/products/:id", h.getProduct)
	s.ApiPOST("/products", h.createProduct)
	s.ApiPUT("/products/:id", h.updateProduct)
	s.ApiDELETE("/products/:id", h.deleteProduct)
}

func (h *Handler) listProducts(c echo.Context) error {
	products, err := h.products.ListProducts(c.Request().Context())
	if err != nil {
		zap.L().Error("list products", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query products", nil)
	}
	return ok(c, products)
}

func (h *Handler) getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := h.products.GetProduct(c.Request().Context(), id)
	if err != nil {
		return h.productError(c, id, "get product", err)
	}
	return ok(c, p)
}

func (h *Handler) createProduct(c echo.Context) error {
	in, file, err := bindProductInput(c)
	if err != nil {
		return badRequest(c, err)
	}
	if file != nil {
		defer file.Close()
	}

	p, err := h.products.CreateProduct(c.Request().Context(), in)
	if err != nil {
		zap.L().Error("create product", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create product", nil)
	}

	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("/api/products/%d", p.ID))
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	// the form is validated before the product is looked up
	in, file, err := bindProductInput(c)
	if err != nil {
		return badRequest(c, err)
	}
	if file != nil {
		defer file.Close()
	}

	if _, err := h.products.UpdateProduct(c.Request().Context(), id, in); err != nil {
		return h.productError(c, id, "update product", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := h.products.DeleteProduct(c.Request().Context(), id); err != nil {
		return h.productError(c, id, "delete product", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) productError(c echo.Context, id int64, op string, err error) error {
	if errors.Is(err, repository.ErrProductNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}
	zap.L().Error(op, zap.Int64("id", id), zap.Error(err))
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+op, nil)
}

type requestError struct {
	message string
	details interface{}
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(c echo.Context, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", re.message, re.details)
	}
	return handleValidationError(c, err)
}

// bindProductInput binds and validates the form. A non-nil file must be
// closed by the caller.
func bindProductInput(c echo.Context) (service.ProductInput, multipart.File, error) {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return service.ProductInput{}, nil, &requestError{"Unable to parse product", err.Error()}
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Price = strings.TrimSpace(payload.Price)
	payload.Description = strings.TrimSpace(payload.Description)
	payload.Category = strings.TrimSpace(payload.Category)

	if err := c.Validate(&payload); err != nil {
		return service.ProductInput{}, nil, err
	}

	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		return service.ProductInput{}, nil, &requestError{"Request validation failed", map[string]string{"price": "decimal"}}
	}
	if price.IsNegative() {
		return service.ProductInput{}, nil, &requestError{"Request validation failed", map[string]string{"price": "gte=0"}}
	}
	if !domain.ValidPrice(price) {
		return service.ProductInput{}, nil, &requestError{"Request validation failed", map[string]string{
			"price": fmt.Sprintf("max %d digits, %d decimals", domain.PriceMaxDigits, domain.PriceMaxScale),
		}}
	}

	in := service.ProductInput{
		Name:        payload.Name,
		Price:       price,
		Description: payload.Description,
		Category:    payload.Category,
	}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil, nil
	default:
		return service.ProductInput{}, nil, &requestError{"Unable to read image", err.Error()}
	}

	file, err := fh.Open()
	if err != nil {
		return service.ProductInput{}, nil, &requestError{"Unable to read image", err.Error()}
	}
	in.Image = &service.ImageUpload{Filename: fh.Filename, Content: file}
	return in, file, nil
}
