package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clouddesign.com.br/storefront/pkg/cart"
	"clouddesign.com.br/storefront/pkg/checkout"
	"clouddesign.com.br/storefront/pkg/global"
	"clouddesign.com.br/storefront/pkg/models"
)

// CartResponse is the cart as the storefront renders it.
type CartResponse struct {
	SessionID string                `json:"session_id"`
	Items     []models.LineItem     `json:"items"`
	Coupon    *models.AppliedCoupon `json:"coupon"`
	Summary   checkout.Summary      `json:"summary"`
}

func (h *Handler) cartResponse(store *cart.Store) CartResponse {
	state := store.State()
	return CartResponse{
		SessionID: store.SessionID(),
		Items:     state.Items,
		Coupon:    state.Coupon,
		Summary:   checkout.Summarize(state, h.Settings.FreeShippingGoal),
	}
}

func (h *Handler) loadCart(c *gin.Context) (*cart.Store, bool) {
	store, err := cart.Load(c.Request.Context(), h.Carts, c.GetString(ctxSessionID), h.Coupons)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return store, true
}

func (h *Handler) GetCart(c *gin.Context) {
	store, ok := h.loadCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.cartResponse(store)))
}

// AddToCart accepts a kit slug, a product with a variant, or a per-area
// product with width and height in meters.
func (h *Handler) AddToCart(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Dados inválidos", "request", err.Error(), "validation_error")
		return
	}
	if req.KitSlug == "" && req.ProductID == "" {
		badRequest(c, "Dados inválidos", "product_id", "product_id or kit_slug is required", "required")
		return
	}

	store, ok := h.loadCart(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		line models.LineItem
		err  error
	)
	if req.KitSlug != "" {
		kit, kerr := h.Catalog.KitBySlug(ctx, req.KitSlug)
		if kerr != nil {
			respondError(c, kerr)
			return
		}
		line, err = store.AddKit(ctx, kit)
	} else {
		product, perr := h.Catalog.ProductByID(ctx, req.ProductID)
		if perr != nil {
			respondError(c, perr)
			return
		}
		if product.PricingMode == models.PricingPerArea {
			line, err = store.AddArea(ctx, product, req.Width, req.Height)
		} else {
			line, err = store.AddVariant(ctx, product, req.VariantID)
		}
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, global.SuccessResponse(gin.H{
		"item": line,
		"cart": h.cartResponse(store),
	}))
}

// RemoveFromCart drops the line at index. An index outside the cart leaves
// it unchanged.
func (h *Handler) RemoveFromCart(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "Índice inválido", "index", "index must be an integer", "invalid_format")
		return
	}
	store, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := store.Remove(c.Request.Context(), index); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.cartResponse(store)))
}

func (h *Handler) ClearCart(c *gin.Context) {
	store, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := store.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.cartResponse(store)))
}

// ApplyCoupon validates the code and applies it. When validation fails the
// response still carries the cart, whose coupon has been cleared.
func (h *Handler) ApplyCoupon(c *gin.Context) {
	var req models.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Dados inválidos", "code", err.Error(), "validation_error")
		return
	}
	store, ok := h.loadCart(c)
	if !ok {
		return
	}

	if _, err := store.ApplyCoupon(c.Request.Context(), req.Code); err != nil {
		status, body := errorResponse(err)
		if status == http.StatusInternalServerError {
			respondError(c, err)
			return
		}
		zap.L().Info("coupon rejected", zap.String("session_id", store.SessionID()), zap.Error(err))
		body.Data = h.cartResponse(store)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.cartResponse(store)))
}

func (h *Handler) RemoveCoupon(c *gin.Context) {
	store, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := store.RemoveCoupon(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.cartResponse(store)))
}

type checkoutView struct {
	Step     checkout.Step   `json:"step"`
	Customer models.Customer `json:"customer"`
}

func (h *Handler) loadFlow(c *gin.Context) (*checkout.Flow, bool) {
	flow, err := checkout.LoadFlow(c.Request.Context(), h.Carts, c.GetString(ctxSessionID))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return flow, true
}

func (h *Handler) GetCheckout(c *gin.Context) {
	flow, ok := h.loadFlow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(checkoutView{Step: flow.Step(), Customer: flow.Customer()}))
}

func (h *Handler) IdentifyCheckout(c *gin.Context) {
	store, ok := h.loadCart(c)
	if !ok {
		return
	}
	flow, ok := h.loadFlow(c)
	if !ok {
		return
	}
	if err := flow.Identify(c.Request.Context(), store.State()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(checkoutView{Step: flow.Step(), Customer: flow.Customer()}))
}

func (h *Handler) BackCheckout(c *gin.Context) {
	h.stepCheckout(c, (*checkout.Flow).Back)
}

func (h *Handler) ResetCheckout(c *gin.Context) {
	h.stepCheckout(c, (*checkout.Flow).Reset)
}

func (h *Handler) stepCheckout(c *gin.Context, move func(*checkout.Flow, context.Context) error) {
	flow, ok := h.loadFlow(c)
	if !ok {
		return
	}
	if err := move(flow, c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(checkoutView{Step: flow.Step(), Customer: flow.Customer()}))
}

// Checkout builds the WhatsApp order message and link. The cart is kept so
// the customer can come back to it.
func (h *Handler) Checkout(c *gin.Context) {
	var customer models.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		badRequest(c, msgMissingCustomer, "request", err.Error(), "validation_error")
		return
	}
	ctx := c.Request.Context()

	store, ok := h.loadCart(c)
	if !ok {
		return
	}
	flow, ok := h.loadFlow(c)
	if !ok {
		return
	}

	shop, err := h.Catalog.CompanyConfig(ctx)
	if errors.Is(err, models.ErrNotFound) {
		shop, err = &models.CompanyConfig{}, nil
	}
	if err != nil {
		respondError(c, err)
		return
	}

	state := store.State()
	dispatch, err := flow.Dispatch(ctx, *shop, state, checkout.Summarize(state, h.Settings.FreeShippingGoal), customer)
	if err != nil {
		respondError(c, err)
		return
	}
	zap.L().Info("order dispatched",
		zap.String("session_id", store.SessionID()),
		zap.Int("items", len(state.Items)),
		zap.String("total", dispatch.Summary.Total.StringFixed(2)))
	c.JSON(http.StatusOK, global.SuccessResponse(dispatch))
}
