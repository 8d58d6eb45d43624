package pricing

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-offers/internal/common"
	"github.com/noah-isme/toko-offers/internal/obs"
	"github.com/noah-isme/toko-offers/internal/offer"
)

// Reloader forces a snapshot reload from the repository.
type Reloader interface {
	Reload(ctx context.Context) error
	Invalidate(ctx context.Context) error
}

// OfferToggler flips the enabled flag of a stored offer. It reports false when
// no offer has the id.
type OfferToggler interface {
	SetEnabled(ctx context.Context, id string, enabled bool) (bool, error)
}

// Handler exposes pricing endpoints.
type Handler struct {
	pricer   Pricer
	reloader Reloader
	offers   OfferToggler
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Source   SnapshotSource
	Reloader Reloader
	Offers   OfferToggler
	Now      func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		pricer:   Pricer{Source: cfg.Source, Now: cfg.Now},
		reloader: cfg.Reloader,
		offers:   cfg.Offers,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Money is compared as a float for range tags only; pricing uses the exact value.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

type productRequest struct {
	ProductID  string           `json:"productId" validate:"required,max=128"`
	Price      *decimal.Decimal `json:"price" validate:"required,gt=0"`
	CategoryID string           `json:"categoryId" validate:"max=128"`
}

type productResponse struct {
	offer.Resolution
	Loaded bool `json:"loaded"`
}

type cartItemRequest struct {
	ProductID  string           `json:"productId" validate:"required,max=128"`
	UnitPrice  *decimal.Decimal `json:"unitPrice" validate:"required,gt=0"`
	Quantity   int              `json:"quantity" validate:"gt=0,lte=10000"`
	CategoryID string           `json:"categoryId" validate:"max=128"`
}

type cartRequest struct {
	Items []cartItemRequest `json:"items" validate:"max=500,dive"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type cartResponse struct {
	offer.CartResult
	Loaded bool `json:"loaded"`
}

// Product handles POST /api/v1/pricing/product.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := h.decode(r, &req); err != nil {
		obs.RecordPricing("product", "invalid")
		common.WriteError(w, err)
		return
	}
	pricer, loaded := h.pricer.Pin()
	res := pricer.GetApplicableOfferForProduct(offer.Product{
		ID:         req.ProductID,
		Price:      *req.Price,
		CategoryID: req.CategoryID,
	})
	obs.RecordPricing("product", resultLabel(loaded))
	common.JSON(w, http.StatusOK, productResponse{Resolution: res, Loaded: loaded})
}

// Cart handles POST /api/v1/pricing/cart.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := h.decode(r, &req); err != nil {
		obs.RecordPricing("cart", "invalid")
		common.WriteError(w, err)
		return
	}
	items := make([]offer.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, offer.LineItem{
			ProductID:  it.ProductID,
			UnitPrice:  *it.UnitPrice,
			Quantity:   it.Quantity,
			CategoryID: it.CategoryID,
		})
	}
	pricer, loaded := h.pricer.Pin()
	res := pricer.CalculateCartWithOffers(items)
	obs.RecordPricing("cart", resultLabel(loaded))
	common.JSON(w, http.StatusOK, cartResponse{CartResult: res, Loaded: loaded})
}

// Offers handles GET /api/v1/offers.
func (h *Handler) Offers(w http.ResponseWriter, _ *http.Request) {
	snap := h.pricer.snapshot()
	if snap == nil {
		common.JSON(w, http.StatusOK, map[string]any{
			"data":   []offer.Offer{},
			"loaded": false,
		})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":     snap.Offers,
		"loaded":   true,
		"loadedAt": snap.LoadedAt,
		"source":   snap.Source,
	})
}

// Refresh handles POST /api/v1/admin/offers/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "offer reloader not configured", nil)
		return
	}
	if err := h.reloader.Reload(r.Context()); err != nil {
		common.JSONError(w, http.StatusBadGateway, "REFRESH_FAILED", "offer repository unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"offers": h.offerCount()})
}

// SetOfferEnabled handles POST /api/v1/admin/offers/{id}/enabled.
func (h *Handler) SetOfferEnabled(w http.ResponseWriter, r *http.Request) {
	if h.offers == nil || h.reloader == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "offer store not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > 128 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid offer id", nil)
		return
	}
	var req enabledRequest
	if err := h.decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	found, err := h.offers.SetEnabled(r.Context(), id, *req.Enabled)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "UPDATE_FAILED", "offer repository unavailable", nil)
		return
	}
	if !found {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "offer not found", nil)
		return
	}
	if err := h.reloader.Invalidate(r.Context()); err != nil {
		common.JSONError(w, http.StatusBadGateway, "REFRESH_FAILED", "offer cache unavailable", nil)
		return
	}
	if err := h.reloader.Reload(r.Context()); err != nil {
		common.JSONError(w, http.StatusBadGateway, "REFRESH_FAILED", "offer repository unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"enabled": *req.Enabled,
		"offers":  h.offerCount(),
	})
}

func (h *Handler) offerCount() int {
	snap := h.pricer.snapshot()
	if snap == nil {
		return 0
	}
	return len(snap.Offers)
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := common.DecodeJSON(r, dst); err != nil {
		return err
	}
	if err := h.validate.Struct(dst); err != nil {
		return common.ValidationError(err)
	}
	return nil
}

func resultLabel(loaded bool) string {
	if loaded {
		return "ok"
	}
	return "fallback"
}
