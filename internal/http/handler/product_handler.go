package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sandeepkv93/product-catalog-demo/internal/http/middleware"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/response"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
	"github.com/sandeepkv93/product-catalog-demo/internal/repository"
	"github.com/sandeepkv93/product-catalog-demo/internal/service"
)

var (
	errInvalidProductID = errors.New("invalid product id")
	errPriceNotNumber   = errors.New("price must be a JSON number")
	errTrailingJSON     = errors.New("unexpected data after JSON body")
)

// productBody is the create/update payload. Unknown fields, including the id the
// browser page sends on update, are ignored.
type productBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       numericPrice `json:"price"`
	Quantity    int32        `json:"quantity"`
}

// numericPrice rejects quoted prices, which decimal.Decimal would otherwise accept.
type numericPrice struct{ decimal.Decimal }

func (p *numericPrice) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return errPriceNotNumber
	}
	return p.Decimal.UnmarshalJSON(b)
}

type ProductHandler struct {
	svc service.ProductService
}

func NewProductHandler(svc service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeProductBody(w, r)
	if !ok {
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateProductInput{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price.Decimal,
		Quantity:    int(body.Quantity),
	})
	if err != nil {
		if isValidationError(err) {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		internalError(w, r, "failed to create product", err)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "product.create",
		TargetType: "product",
		TargetID:   formatID(created.ID),
		Action:     "create",
		Outcome:    "success",
		Reason:     "product_created",
	}, "name", created.Name)
	w.Header().Set("Location", productLocation(r, created.ID))
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		internalError(w, r, "failed to list products", err)
		return
	}
	response.JSON(w, r, http.StatusOK, items)
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathProductID(w, r)
	if !ok {
		return
	}

	product, err := h.svc.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			notFound(w, r, productID)
			return
		}
		internalError(w, r, "failed to load product", err)
		return
	}
	response.JSON(w, r, http.StatusOK, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathProductID(w, r)
	if !ok {
		return
	}
	body, ok := decodeProductBody(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.Update(r.Context(), productID, service.UpdateProductInput{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price.Decimal,
		Quantity:    int(body.Quantity),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			notFound(w, r, productID)
		case isValidationError(err):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			internalError(w, r, "failed to update product", err)
		}
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "product.update",
		TargetType: "product",
		TargetID:   formatID(productID),
		Action:     "update",
		Outcome:    "success",
		Reason:     "product_updated",
	}, "name", updated.Name)
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathProductID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteByID(r.Context(), productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			notFound(w, r, productID)
			return
		}
		internalError(w, r, "failed to delete product", err)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "product.delete",
		TargetType: "product",
		TargetID:   formatID(productID),
		Action:     "delete",
		Outcome:    "success",
		Reason:     "product_deleted",
	})
	response.JSON(w, r, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Product with ID %d has been deleted", productID),
	})
}

func (h *ProductHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteAll(r.Context())
	if err != nil {
		internalError(w, r, "failed to delete products", err)
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:  "product.delete_all",
		TargetType: "product",
		TargetID:   "*",
		Action:     "delete_all",
		Outcome:    "success",
		Reason:     "catalog_cleared",
	}, "deleted", deleted)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("All %d products have been deleted", deleted),
		"deleted": deleted,
	})
}

func (h *ProductHandler) Count(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.Count(r.Context())
	if err != nil {
		internalError(w, r, "failed to count products", err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]int64{"count": total})
}

func decodeProductBody(w http.ResponseWriter, r *http.Request) (productBody, bool) {
	var body productBody
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&body)
	if err == nil {
		// Exactly one JSON value per body.
		if _, tokErr := dec.Token(); tokErr == nil {
			err = errTrailingJSON
		} else if !errors.Is(tokErr, io.EOF) {
			err = tokErr
		}
	}
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return productBody{}, false
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return productBody{}, false
	}
	return body, true
}

func pathProductID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return 0, false
	}
	return id, true
}

func parsePathID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidProductID
	}
	return uint(id), nil
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrProductNameDescriptionRequired) ||
		errors.Is(err, service.ErrProductInvalidPrice)
}

func notFound(w http.ResponseWriter, r *http.Request, id uint) {
	response.Error(w, r, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Product with ID %d not found", id), nil)
}

func internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.ErrorContext(r.Context(), message, "error", err, "path", r.URL.Path)
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", message, nil)
}

// productLocation builds the resource URL from the mounted route so it honours the
// configured base path.
func productLocation(r *http.Request, id uint) string {
	base := r.URL.Path
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			base = pattern
		}
	}
	if len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + "/" + formatID(id)
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
