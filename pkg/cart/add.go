package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"clouddesign.com.br/storefront/pkg/models"
	"clouddesign.com.br/storefront/pkg/pricing"
)

const (
	KitCategoryName  = "Kit Promocional"
	kitNamePrefix    = "📦 "
	kitProductPrefix = "kit-"
)

var (
	ErrVariantNotFound     = errors.New("variant not found for product")
	ErrMeasurementRequired = errors.New("product is priced per area; width and height are required")
	ErrNotAreaPriced       = errors.New("product is not priced per area")
	ErrUnavailable         = errors.New("item is not available")
)

// AddVariant appends one line for the chosen variant of a per-unit product.
// An empty variantID selects the default (first) variant. The sale price in
// effect now is frozen on the line.
func (s *Store) AddVariant(ctx context.Context, p *models.Product, variantID string) (models.LineItem, error) {
	if p == nil || !p.IsActive {
		return models.LineItem{}, ErrUnavailable
	}
	if p.PricingMode == models.PricingPerArea {
		return models.LineItem{}, ErrMeasurementRequired
	}

	var (
		v  models.Variant
		ok bool
	)
	if variantID == "" {
		v, ok = p.DefaultVariant()
	} else {
		v, ok = p.FindVariant(variantID)
	}
	if !ok {
		return models.LineItem{}, fmt.Errorf("%w: %q", ErrVariantNotFound, variantID)
	}

	line := s.productLine(p)
	line.Variant = models.LineVariant{
		Kind: models.KindStandard,
		Standard: &models.StandardVariant{
			VariantID: v.ID,
			Name:      v.Name,
			ListPrice: v.Price,
			Price:     pricing.SalePrice(v.Price, p.OnSale, p.SaleDiscountPercent),
		},
	}
	return s.appendLine(ctx, line)
}

// AddArea appends one made-to-measure line. The product's first variant
// holds the price per square meter; width and height are in meters and must
// both be positive.
func (s *Store) AddArea(ctx context.Context, p *models.Product, width, height decimal.Decimal) (models.LineItem, error) {
	if p == nil || !p.IsActive {
		return models.LineItem{}, ErrUnavailable
	}
	if p.PricingMode != models.PricingPerArea {
		return models.LineItem{}, ErrNotAreaPriced
	}
	base, ok := p.DefaultVariant()
	if !ok {
		return models.LineItem{}, fmt.Errorf("%w: product has no base price", ErrVariantNotFound)
	}

	perM2 := pricing.SalePrice(base.Price, p.OnSale, p.SaleDiscountPercent)
	quote, err := pricing.AreaPrice(perM2, width, height)
	if err != nil {
		return models.LineItem{}, err
	}

	line := s.productLine(p)
	line.Variant = models.LineVariant{
		Kind: models.KindArea,
		Area: &models.AreaMeasurement{
			VariantID:           base.ID,
			Name:                pricing.MeasurementLabel(width, height),
			PricePerSquareMeter: perM2,
			Width:               quote.Width,
			Height:              quote.Height,
			RawArea:             quote.RawArea,
			ChargedArea:         quote.ChargedArea,
			Price:               quote.TotalPrice,
		},
	}
	return s.appendLine(ctx, line)
}

// AddKit appends a kit as a single line at the kit's fixed price.
func (s *Store) AddKit(ctx context.Context, k *models.Kit) (models.LineItem, error) {
	if k == nil || !k.IsActive {
		return models.LineItem{}, ErrUnavailable
	}

	line := models.LineItem{
		ID:           s.newID(),
		ProductID:    kitProductPrefix + k.ID.Hex(),
		ProductName:  kitNamePrefix + k.Name,
		ProductSlug:  k.Slug,
		Image:        k.Image,
		CategoryName: KitCategoryName,
		Variant: models.LineVariant{
			Kind: models.KindKit,
			Kit:  &models.KitBundle{KitID: k.ID.Hex(), Price: k.Price},
		},
		AddedAt: s.now(),
	}
	return s.appendLine(ctx, line)
}

func (s *Store) productLine(p *models.Product) models.LineItem {
	return models.LineItem{
		ID:           s.newID(),
		ProductID:    p.ID.Hex(),
		ProductName:  p.Name,
		ProductSlug:  p.Slug,
		Image:        p.Image,
		CategoryName: p.CategoryName,
		AddedAt:      s.now(),
	}
}

func (s *Store) appendLine(ctx context.Context, line models.LineItem) (models.LineItem, error) {
	err := s.mutate(ctx, 0, func(st *models.CartState) bool {
		st.Items = append(st.Items, line)
		return true
	})
	if err != nil {
		return models.LineItem{}, err
	}
	return line, nil
}
