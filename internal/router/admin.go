package router

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clouddesign.com.br/storefront/pkg/global"
	"clouddesign.com.br/storefront/pkg/models"
	"clouddesign.com.br/storefront/pkg/redis"
)

type loginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=200"`
}

// AdminLogin checks the configured credentials and opens a session. Failed
// attempts are counted per client IP.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Dados inválidos", "request", err.Error(), "validation_error")
		return
	}
	if h.Settings.AdminPasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, global.ErrorResponse("Login administrativo não configurado.", nil))
		return
	}

	ctx := c.Request.Context()
	subject := c.ClientIP()
	if err := h.Sessions.CheckLoginAllowed(ctx, subject); err != nil {
		if errors.Is(err, redis.ErrTooManyAttempts) {
			c.JSON(http.StatusTooManyRequests, global.ErrorResponse("Muitas tentativas. Tente novamente mais tarde.", nil))
			return
		}
		respondError(c, err)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.Settings.AdminUsername)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.Settings.AdminPasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		if err := h.Sessions.RecordLoginFailure(ctx, subject); err != nil {
			zap.L().Warn("failed to record login failure", zap.Error(err))
		}
		zap.L().Warn("admin login rejected", zap.String("client_ip", subject))
		c.JSON(http.StatusUnauthorized, global.ErrorResponse("Usuário ou senha inválidos.", nil))
		return
	}

	token, err := h.Sessions.Create(ctx, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Sessions.ClearLoginFailures(ctx, subject); err != nil {
		zap.L().Warn("failed to clear login failures", zap.Error(err))
	}

	maxAge := int(h.Sessions.TTL().Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookie, token, maxAge, "/", "", h.Settings.IsProduction(), true)
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{
		"token":      token,
		"expires_in": maxAge,
	}))
}

func (h *Handler) AdminLogout(c *gin.Context) {
	if err := h.Sessions.Revoke(c.Request.Context(), bearerToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(adminCookie, "", -1, "/", "", h.Settings.IsProduction(), true)
	c.JSON(http.StatusOK, global.SuccessResponse(nil))
}

func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.Catalog.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(stats))
}

func (h *Handler) DashboardInsights(c *gin.Context) {
	report, err := h.AI.DashboardInsights(c.Request.Context(), h.Catalog)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(report))
}

func (h *Handler) ListCoupons(c *gin.Context) {
	coupons, err := h.Catalog.Coupons(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(coupons))
}

func (h *Handler) CreateCoupon(c *gin.Context) {
	var req models.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Dados inválidos", "request", err.Error(), "validation_error")
		return
	}
	created, err := h.Catalog.CreateCoupon(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	zap.L().Info("coupon created", zap.String("code", created.Code), zap.String("admin", c.GetString(ctxAdmin)))
	c.JSON(http.StatusCreated, global.SuccessResponse(created))
}

func (h *Handler) DeleteCoupon(c *gin.Context) {
	if err := h.Catalog.DeleteCoupon(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"message": "Cupom removido"}))
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Dados inválidos", "request", err.Error(), "validation_error")
		return
	}
	product, err := h.Catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	zap.L().Info("product created", zap.String("slug", product.Slug), zap.String("admin", c.GetString(ctxAdmin)))
	c.JSON(http.StatusCreated, global.SuccessResponse(product))
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.Catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"message": "Produto removido"}))
}

// InvalidateCache drops cached listings after the catalog was edited
// directly in the database.
func (h *Handler) InvalidateCache(c *gin.Context) {
	h.Catalog.InvalidateListings(c.Request.Context())
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"message": "Cache limpo"}))
}
