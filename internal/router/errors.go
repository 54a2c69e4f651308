package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clouddesign.com.br/storefront/pkg/cart"
	"clouddesign.com.br/storefront/pkg/catalog"
	"clouddesign.com.br/storefront/pkg/checkout"
	"clouddesign.com.br/storefront/pkg/coupon"
	"clouddesign.com.br/storefront/pkg/global"
	"clouddesign.com.br/storefront/pkg/models"
	"clouddesign.com.br/storefront/pkg/mongo"
	"clouddesign.com.br/storefront/pkg/pricing"
	"clouddesign.com.br/storefront/pkg/tracking"
)

// Messages shown to shoppers as-is.
const (
	msgMissingCustomer   = "Por favor, preencha seu nome e telefone!"
	msgMissingShopNumber = "Número da gráfica não encontrado."
	msgInvalidCoupon     = "Cupom inválido ou expirado."
	msgInternal          = "Erro interno do servidor"
)

type errorMapping struct {
	target  error
	status  int
	message string
	field   string
	code    string
}

// errorMappings is checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{checkout.ErrMissingName, http.StatusBadRequest, msgMissingCustomer, "name", "required"},
	{checkout.ErrMissingPhone, http.StatusBadRequest, msgMissingCustomer, "phone", "required"},
	{checkout.ErrMissingShopNumber, http.StatusServiceUnavailable, msgMissingShopNumber, "", ""},
	{checkout.ErrEmptyCart, http.StatusBadRequest, "Seu carrinho está vazio.", "items", "empty"},
	{checkout.ErrInvalidTransition, http.StatusConflict, "Etapa do pedido inválida.", "step", "invalid_transition"},

	{coupon.ErrEmptyCode, http.StatusBadRequest, "Informe o código do cupom.", "code", "required"},
	{cart.ErrSuperseded, http.StatusConflict, "O cupom foi alterado por outra requisição.", "code", "superseded"},
	{cart.ErrBusy, http.StatusConflict, "O carrinho está sendo atualizado. Tente novamente.", "", ""},
	{coupon.ErrUnavailable, http.StatusBadGateway, msgInvalidCoupon, "code", "unavailable"},
	{coupon.ErrMalformed, http.StatusBadGateway, msgInvalidCoupon, "code", "malformed"},
	{coupon.ErrInvalid, http.StatusUnprocessableEntity, msgInvalidCoupon, "code", "invalid"},

	{cart.ErrVariantNotFound, http.StatusBadRequest, "Variação não encontrada.", "variant_id", "not_found"},
	{cart.ErrMeasurementRequired, http.StatusBadRequest, "Informe largura e altura.", "width", "required"},
	{cart.ErrNotAreaPriced, http.StatusBadRequest, "Este produto não é vendido por medida.", "width", "not_allowed"},
	{cart.ErrUnavailable, http.StatusUnprocessableEntity, "Produto indisponível.", "product_id", "unavailable"},
	{pricing.ErrInvalidDimensions, http.StatusBadRequest, "Largura e altura devem ser maiores que zero.", "width", "invalid"},

	{catalog.ErrInvalidCategory, http.StatusBadRequest, "Categoria inválida.", "category", "invalid"},
	{catalog.ErrInvalidPrice, http.StatusBadRequest, "Preço inválido.", "variants", "invalid"},
	{catalog.ErrInvalidCoupon, http.StatusBadRequest, "Cupom inválido.", "code", "invalid"},
	{mongo.ErrDuplicate, http.StatusConflict, "Registro já existe.", "", "duplicate"},

	{tracking.ErrInvalidOrderID, http.StatusBadRequest, "Número do pedido inválido.", "orderId", "invalid"},
	{tracking.ErrUnavailable, http.StatusBadGateway, "Erro ao buscar pedido. Tente novamente mais tarde.", "", ""},
	{tracking.ErrMalformed, http.StatusBadGateway, "Erro ao buscar pedido. Tente novamente mais tarde.", "", ""},

	{models.ErrNotFound, http.StatusNotFound, "Não encontrado.", "", "not_found"},
}

// respondError writes the mapped response for err. Unknown errors are
// logged and reported as 500 without details.
func respondError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(ctxRequestID)), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func errorResponse(err error) (int, global.APIResponse) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		var fields []global.ValidationError
		if m.field != "" {
			fields = global.FieldError(m.field, err.Error(), m.code)
		}
		return m.status, global.ErrorResponse(m.message, fields)
	}
	return http.StatusInternalServerError, global.ErrorResponse(msgInternal, nil)
}

func badRequest(c *gin.Context, message, field, detail, code string) {
	c.JSON(http.StatusBadRequest, global.ErrorResponse(message, global.FieldError(field, detail, code)))
}
