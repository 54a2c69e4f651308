package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PricingMode tells the storefront how a product is quoted.
type PricingMode string

const (
	// PricingPerUnitVariant: the customer picks one of the listed variants.
	PricingPerUnitVariant PricingMode = "per-unit-variant"
	// PricingPerArea: the first variant's price is a price per square meter
	// and the customer enters width and height.
	PricingPerArea PricingMode = "per-area"
)

func (m PricingMode) Valid() bool {
	return m == PricingPerUnitVariant || m == PricingPerArea
}

// Category groups products on the storefront ("Adesivos", "Banners", ...).
type Category struct {
	ID   bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Name string        `json:"name" bson:"name"`
	Slug string        `json:"slug" bson:"slug"`
	Icon string        `json:"icon,omitempty" bson:"icon,omitempty"`
}

// Finishing is an optional print finish such as "Frente e Verso" or
// "Verniz Localizado".
type Finishing struct {
	ID   bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Name string        `json:"name" bson:"name"`
}

// Variant is one purchasable option of a product. The name often encodes a
// quantity ("500un"), which drives unit-price comparisons.
type Variant struct {
	ID    string          `json:"id" bson:"id"`
	Name  string          `json:"name" bson:"name"`
	Price decimal.Decimal `json:"price" bson:"price"`
}

type Product struct {
	ID                  bson.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name                string          `json:"name" bson:"name"`
	Slug                string          `json:"slug" bson:"slug"`
	CategoryID          bson.ObjectID   `json:"category" bson:"category_id"`
	CategoryName        string          `json:"category_name" bson:"category_name"`
	CategorySlug        string          `json:"category_slug" bson:"category_slug"`
	Description         string          `json:"description" bson:"description"`
	ProductionTime      string          `json:"production_time" bson:"production_time"`
	Image               string          `json:"image" bson:"image"`
	IsFeatured          bool            `json:"is_featured" bson:"is_featured"`
	IsActive            bool            `json:"is_active" bson:"is_active"`
	ViewsCount          int64           `json:"views_count" bson:"views_count"`
	PricingMode         PricingMode     `json:"pricing_mode" bson:"pricing_mode"`
	Variants            []Variant       `json:"variants" bson:"variants"`
	Finishings          []Finishing     `json:"finishings" bson:"finishings"`
	UpsellIDs           []bson.ObjectID `json:"upsell_ids,omitempty" bson:"upsell_ids,omitempty"`
	OnSale              bool            `json:"on_sale" bson:"on_sale"`
	SaleDiscountPercent decimal.Decimal `json:"sale_discount_percent" bson:"sale_discount_percent"`
	CreatedAt           time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" bson:"updated_at"`
}

// FindVariant returns the variant with the given id.
func (p *Product) FindVariant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// DefaultVariant is the variant preselected on the product page: always the
// first one, never the best-value one.
func (p *Product) DefaultVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

func (p *Product) SetTimestamps() {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

type CreateVariantRequest struct {
	Name  string          `json:"name" binding:"required,min=1,max=100"`
	Price decimal.Decimal `json:"price"`
}

type CreateProductRequest struct {
	Name                string                 `json:"name" binding:"required,min=2,max=200"`
	Slug                string                 `json:"slug" binding:"max=200"`
	CategoryID          string                 `json:"category" binding:"required"`
	Description         string                 `json:"description" binding:"max=4000"`
	ProductionTime      string                 `json:"production_time" binding:"max=50"`
	Image               string                 `json:"image"`
	IsFeatured          bool                   `json:"is_featured"`
	PricingMode         PricingMode            `json:"pricing_mode"`
	Variants            []CreateVariantRequest `json:"variants" binding:"required,min=1,dive"`
	FinishingIDs        []string               `json:"finishings"`
	OnSale              bool                   `json:"on_sale"`
	SaleDiscountPercent decimal.Decimal        `json:"sale_discount_percent"`
}

// ToProduct builds a new active product. Category and finishing fields are
// resolved by the caller.
func (req *CreateProductRequest) ToProduct() *Product {
	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	}
	mode := req.PricingMode
	if !mode.Valid() {
		mode = PricingPerUnitVariant
	}

	product := &Product{
		ID:                  bson.NewObjectID(),
		Name:                req.Name,
		Slug:                slug,
		Description:         req.Description,
		ProductionTime:      req.ProductionTime,
		Image:               req.Image,
		IsFeatured:          req.IsFeatured,
		IsActive:            true,
		PricingMode:         mode,
		Variants:            make([]Variant, len(req.Variants)),
		Finishings:          []Finishing{},
		OnSale:              req.OnSale,
		SaleDiscountPercent: req.SaleDiscountPercent,
	}
	for i, v := range req.Variants {
		product.Variants[i] = Variant{
			ID:    bson.NewObjectID().Hex(),
			Name:  strings.TrimSpace(v.Name),
			Price: v.Price,
		}
	}
	product.SetTimestamps()
	return product
}

// Slugify turns a display name into a URL slug, folding accents
// ("Cartão de Visita" -> "cartao-de-visita").
func Slugify(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
