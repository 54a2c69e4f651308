// Package pricing holds the storefront's price rules: unit-price ranking of
// quantity variants, made-to-measure area quotes, PIX and sale discounts.
// Everything here is pure and works on shopspring decimals.
package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"clouddesign.com.br/storefront/pkg/models"
)

// MinimumChargedArea is the smallest area billed for a per-area product, in
// square meters. It covers machine setup.
var MinimumChargedArea = decimal.RequireFromString("0.5")

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

var ErrInvalidDimensions = errors.New("width and height must be greater than zero")

// Quantity reads the quantity encoded at the start of a variant name
// ("500un" -> 500). Names without a leading number, a zero quantity and
// digit runs too long for an int64 all count as one unit.
func Quantity(name string) int64 {
	name = strings.TrimSpace(name)
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	n, err := strconv.ParseInt(name[:i], 10, 64)
	if err != nil || n == 0 {
		return 1
	}
	return n
}

// UnitPrice is the variant price divided by its quantity. It is only used
// for display and ranking; the charged price is always the variant price.
func UnitPrice(v models.Variant) decimal.Decimal {
	return v.Price.Div(decimal.NewFromInt(Quantity(v.Name)))
}

// BestValue returns the variant with the strictly lowest unit price. Ties go
// to the earliest variant. ok is false for an empty list.
func BestValue(variants []models.Variant) (best models.Variant, ok bool) {
	i := bestIndex(variants)
	if i < 0 {
		return models.Variant{}, false
	}
	return variants[i], true
}

func bestIndex(variants []models.Variant) int {
	if len(variants) == 0 {
		return -1
	}
	best, bestUnit := 0, UnitPrice(variants[0])
	for i := 1; i < len(variants); i++ {
		if unit := UnitPrice(variants[i]); unit.LessThan(bestUnit) {
			best, bestUnit = i, unit
		}
	}
	return best
}

// AreaQuote is the outcome of pricing a custom measurement.
type AreaQuote struct {
	Width          decimal.Decimal `json:"width"`
	Height         decimal.Decimal `json:"height"`
	RawArea        decimal.Decimal `json:"raw_area"`
	ChargedArea    decimal.Decimal `json:"charged_area"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	MinimumApplied bool            `json:"minimum_applied"`
}

// AreaPrice quotes width x height meters at pricePerSquareMeter. Areas below
// MinimumChargedArea are billed as MinimumChargedArea. Non-positive
// dimensions are rejected.
func AreaPrice(pricePerSquareMeter, width, height decimal.Decimal) (AreaQuote, error) {
	if !width.IsPositive() || !height.IsPositive() {
		return AreaQuote{}, fmt.Errorf("%w: got %s x %s", ErrInvalidDimensions, width, height)
	}
	raw := width.Mul(height)
	charged := raw
	minimum := raw.LessThan(MinimumChargedArea)
	if minimum {
		charged = MinimumChargedArea
	}
	return AreaQuote{
		Width:          width,
		Height:         height,
		RawArea:        raw,
		ChargedArea:    charged,
		TotalPrice:     charged.Mul(pricePerSquareMeter),
		MinimumApplied: minimum,
	}, nil
}

// MeasurementLabel renders dimensions the way they appear on the order,
// e.g. "2.00m x 1.50m".
func MeasurementLabel(width, height decimal.Decimal) string {
	return width.StringFixed(2) + "m x " + height.StringFixed(2) + "m"
}

// PixPrice is the price paid upfront through PIX. It is informational and
// never changes the cart total.
func PixPrice(price, pixDiscountPercent decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Sub(pixDiscountPercent.Div(hundred)))
}

// SalePrice applies a product's sale discount when the sale is on.
func SalePrice(originalPrice decimal.Decimal, onSale bool, discountPercent decimal.Decimal) decimal.Decimal {
	if !onSale {
		return originalPrice
	}
	return originalPrice.Mul(one.Sub(discountPercent.Div(hundred)))
}

// VariantQuote is a display row for a product page.
type VariantQuote struct {
	models.Variant
	SalePrice decimal.Decimal `json:"sale_price"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	PixPrice  decimal.Decimal `json:"pix_price"`
	BestValue bool            `json:"best_value"`
}

// QuoteVariants prices every variant of a product for display. The best
// value flag is only set when there is more than one variant to compare.
func QuoteVariants(p *models.Product, pixDiscountPercent decimal.Decimal) []VariantQuote {
	quotes := make([]VariantQuote, len(p.Variants))
	best := bestIndex(p.Variants)
	for i, v := range p.Variants {
		sale := SalePrice(v.Price, p.OnSale, p.SaleDiscountPercent)
		quotes[i] = VariantQuote{
			Variant:   v,
			SalePrice: sale,
			UnitPrice: UnitPrice(v),
			PixPrice:  PixPrice(sale, pixDiscountPercent),
			BestValue: len(p.Variants) > 1 && i == best,
		}
	}
	return quotes
}
