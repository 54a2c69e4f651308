package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantKind discriminates the LineVariant union.
type VariantKind string

const (
	KindStandard VariantKind = "standard"
	KindArea     VariantKind = "area"
	KindKit      VariantKind = "kit"
)

// KitVariantName is the label every kit line carries in the cart.
const KitVariantName = "Combo Completo"

// StandardVariant is a catalog variant chosen by the customer. Price is the
// charged price (after any sale discount); ListPrice is the catalog price.
type StandardVariant struct {
	VariantID string          `json:"variant_id"`
	Name      string          `json:"name"`
	ListPrice decimal.Decimal `json:"list_price"`
	Price     decimal.Decimal `json:"price"`
}

// AreaMeasurement is a made-to-measure quote for a per-area product.
type AreaMeasurement struct {
	VariantID           string          `json:"variant_id"`
	Name                string          `json:"name"`
	PricePerSquareMeter decimal.Decimal `json:"price_per_m2"`
	Width               decimal.Decimal `json:"width"`
	Height              decimal.Decimal `json:"height"`
	RawArea             decimal.Decimal `json:"raw_area"`
	ChargedArea         decimal.Decimal `json:"charged_area"`
	Price               decimal.Decimal `json:"price"`
}

// KitBundle is a kit added to the cart at its fixed price.
type KitBundle struct {
	KitID string          `json:"kit_id"`
	Price decimal.Decimal `json:"price"`
}

// LineVariant is the priced selection of a line item. Exactly one payload is
// set, matching Kind.
type LineVariant struct {
	Kind     VariantKind      `json:"kind"`
	Standard *StandardVariant `json:"standard,omitempty"`
	Area     *AreaMeasurement `json:"area,omitempty"`
	Kit      *KitBundle       `json:"kit,omitempty"`
}

func (v LineVariant) Price() decimal.Decimal {
	switch v.Kind {
	case KindStandard:
		if v.Standard != nil {
			return v.Standard.Price
		}
	case KindArea:
		if v.Area != nil {
			return v.Area.Price
		}
	case KindKit:
		if v.Kit != nil {
			return v.Kit.Price
		}
	}
	return decimal.Zero
}

// Label is the text shown next to the product name in the cart and in the
// checkout message.
func (v LineVariant) Label() string {
	switch v.Kind {
	case KindStandard:
		if v.Standard != nil {
			return v.Standard.Name
		}
	case KindArea:
		if v.Area != nil {
			return v.Area.Name
		}
	case KindKit:
		return KitVariantName
	}
	return "Padrão"
}

// LineItem is one occurrence of a product in the cart. Product fields are a
// snapshot taken when the item was added.
type LineItem struct {
	ID           string      `json:"id"`
	ProductID    string      `json:"product_id"`
	ProductName  string      `json:"name"`
	ProductSlug  string      `json:"slug,omitempty"`
	Image        string      `json:"image,omitempty"`
	CategoryName string      `json:"category_name,omitempty"`
	Variant      LineVariant `json:"selected_variant"`
	AddedAt      time.Time   `json:"added_at"`
}

func (l LineItem) Price() decimal.Decimal {
	return l.Variant.Price()
}

type AppliedCoupon struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount"`
}

// CartState is the full persisted state of one session's cart.
type CartState struct {
	Items  []LineItem     `json:"items"`
	Coupon *AppliedCoupon `json:"coupon,omitempty"`
}

// Clone returns a deep enough copy for callers to read without racing the
// store: the item slice and coupon are copied, payload pointers are shared
// because line items are immutable once added.
func (s CartState) Clone() CartState {
	out := CartState{Items: make([]LineItem, len(s.Items))}
	copy(out.Items, s.Items)
	if s.Coupon != nil {
		c := *s.Coupon
		out.Coupon = &c
	}
	return out
}

// AddItemRequest covers the three ways of adding to a cart: a catalog
// variant, a measurement for a per-area product, or a kit.
type AddItemRequest struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Width     decimal.Decimal `json:"width"`
	Height    decimal.Decimal `json:"height"`
	KitSlug   string          `json:"kit_slug"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}
