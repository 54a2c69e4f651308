package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"clouddesign.com.br/storefront/pkg/ai"
	"clouddesign.com.br/storefront/pkg/cart"
	"clouddesign.com.br/storefront/pkg/catalog"
	"clouddesign.com.br/storefront/pkg/coupon"
	"clouddesign.com.br/storefront/pkg/global"
	"clouddesign.com.br/storefront/pkg/models"
	"clouddesign.com.br/storefront/pkg/mongo"
	"clouddesign.com.br/storefront/pkg/redis"
	"clouddesign.com.br/storefront/pkg/tracking"
)

type OrderTracker interface {
	Lookup(ctx context.Context, orderID string) (*tracking.Order, error)
}

// Handler carries everything the routes need. It is built once in main.
type Handler struct {
	Catalog  *catalog.Service
	Carts    cart.Storage
	Coupons  coupon.Validator
	Sessions *redis.Sessions
	Tracker  OrderTracker
	AI       *ai.Client
	Settings global.Settings

	// HealthChecks are pinged by /api/health, keyed by dependency name.
	HealthChecks map[string]func(context.Context) error
}

func (h *Handler) HealthCheck(c *gin.Context) {
	status := map[string]string{"status": "OK"}
	healthy := true
	for name, check := range h.HealthChecks {
		if err := check(c.Request.Context()); err != nil {
			status[name] = "Unavailable"
			healthy = false
			continue
		}
		status[name] = "Connected"
	}
	if !healthy {
		status["status"] = "DEGRADED"
		c.JSON(http.StatusServiceUnavailable, global.APIResponse{Success: false, Data: status})
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(status))
}

func (h *Handler) ListProducts(c *gin.Context) {
	filter := mongo.ProductFilter{
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Search:       c.Query("search"),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "Parâmetro inválido", "featured", "featured must be true or false", "invalid_format")
			return
		}
		filter.Featured = &featured
	}
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"min_price", &filter.MinPrice}, {"max_price", &filter.MaxPrice}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			badRequest(c, "Parâmetro inválido", p.name, p.name+" must be a non-negative number", "invalid_format")
			return
		}
		*p.dst = &v
	}

	products, err := h.Catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(products))
}

func (h *Handler) RecentProducts(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "8"), 10, 64)
	if err != nil || limit < 1 || limit > 50 {
		badRequest(c, "Parâmetro inválido", "limit", "limit must be between 1 and 50", "invalid_format")
		return
	}
	products, err := h.Catalog.RecentProducts(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(products))
}

// GetProduct serves the product page and counts the view.
func (h *Handler) GetProduct(c *gin.Context) {
	detail, err := h.Catalog.ViewProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(detail))
}

func (h *Handler) QuoteArea(c *gin.Context) {
	width, werr := decimal.NewFromString(c.Query("width"))
	height, herr := decimal.NewFromString(c.Query("height"))
	if werr != nil || herr != nil {
		badRequest(c, "Informe largura e altura.", "width", "width and height must be numbers in meters", "invalid_format")
		return
	}

	quote, err := h.Catalog.QuoteArea(c.Request.Context(), c.Param("slug"), width, height)
	if catalog.IsNotAreaPriced(err) {
		err = cart.ErrNotAreaPriced
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(quote))
}

// IncrementView counts a view without loading the page. The path segment
// carries the product id.
func (h *Handler) IncrementView(c *gin.Context) {
	views, err := h.Catalog.IncrementViews(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"views_count": views}))
}

func (h *Handler) ListCategories(c *gin.Context) {
	respondList(c, h.Catalog.Categories)
}

func (h *Handler) ListFinishings(c *gin.Context) {
	respondList(c, h.Catalog.Finishings)
}

func (h *Handler) ListKits(c *gin.Context) {
	respondList(c, h.Catalog.Kits)
}

func (h *Handler) ListBanners(c *gin.Context) {
	respondList(c, h.Catalog.Banners)
}

func (h *Handler) GetCompanyConfig(c *gin.Context) {
	respondList(c, h.Catalog.CompanyConfig)
}

func respondList[T any](c *gin.Context, load func(context.Context) (T, error)) {
	value, err := load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(value))
}

func (h *Handler) GetKit(c *gin.Context) {
	kit, err := h.Catalog.KitDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(kit))
}

// ValidateCoupon checks a code without touching any cart.
func (h *Handler) ValidateCoupon(c *gin.Context) {
	found, err := h.Coupons.Validate(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{
		"valid":               true,
		"code":                found.Code,
		"discount_percentage": found.DiscountPercentage,
	}))
}

func (h *Handler) TrackOrder(c *gin.Context) {
	order, err := h.Tracker.Lookup(c.Request.Context(), c.Param("orderId"))
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, global.ErrorResponse("Pedido não encontrado. Verifique o número digitado.", nil))
		return
	case err != nil:
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(order))
}
