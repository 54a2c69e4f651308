package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Cartão de Visita":        "cartao-de-visita",
		"  Lona 440g (Fosca)  ":   "lona-440g-fosca",
		"Adesivo---Vinil":         "adesivo-vinil",
		"Promoção Relâmpago 50%!": "promocao-relampago-50",
		"":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCreateProductRequest_ToProduct(t *testing.T) {
	req := &CreateProductRequest{
		Name:        "Cartão de Visita",
		PricingMode: "bogus",
		Variants:    []CreateVariantRequest{{Name: " 500un ", Price: decimal.NewFromInt(50)}},
	}
	p := req.ToProduct()

	assert.Equal(t, "cartao-de-visita", p.Slug)
	assert.Equal(t, PricingPerUnitVariant, p.PricingMode)
	assert.True(t, p.IsActive)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "500un", p.Variants[0].Name)
	assert.NotEmpty(t, p.Variants[0].ID)
	assert.False(t, p.CreatedAt.IsZero())

	req.Slug = "custom"
	assert.Equal(t, "custom", req.ToProduct().Slug)
}

func TestLineVariant(t *testing.T) {
	std := LineVariant{Kind: KindStandard, Standard: &StandardVariant{Name: "1000un", Price: decimal.NewFromInt(90)}}
	assert.Equal(t, "1000un", std.Label())
	assert.True(t, decimal.NewFromInt(90).Equal(std.Price()))

	kit := LineVariant{Kind: KindKit, Kit: &KitBundle{Price: decimal.NewFromInt(99)}}
	assert.Equal(t, KitVariantName, kit.Label())

	broken := LineVariant{Kind: KindArea}
	assert.True(t, broken.Price().IsZero())
	assert.Equal(t, "Padrão", LineVariant{}.Label())
}

func TestCartState_Clone(t *testing.T) {
	orig := CartState{
		Items:  []LineItem{{ID: "a"}},
		Coupon: &AppliedCoupon{Code: "PROMO10", DiscountPercent: decimal.NewFromInt(10)},
	}
	cp := orig.Clone()
	cp.Items[0].ID = "changed"
	cp.Coupon.Code = "OTHER"

	assert.Equal(t, "a", orig.Items[0].ID)
	assert.Equal(t, "PROMO10", orig.Coupon.Code)
	assert.NotNil(t, CartState{}.Clone().Items)
}

func TestValidPercentage(t *testing.T) {
	assert.True(t, ValidPercentage(decimal.Zero))
	assert.True(t, ValidPercentage(decimal.NewFromInt(100)))
	assert.False(t, ValidPercentage(decimal.NewFromInt(-1)))
	assert.False(t, ValidPercentage(decimal.RequireFromString("100.01")))
}
