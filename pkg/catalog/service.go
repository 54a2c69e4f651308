// Package catalog serves products, kits and shop configuration to the
// storefront, reading through a Redis cache in front of Mongo.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"clouddesign.com.br/storefront/pkg/coupon"
	"clouddesign.com.br/storefront/pkg/models"
	"clouddesign.com.br/storefront/pkg/mongo"
	"clouddesign.com.br/storefront/pkg/pricing"
)

// Cached listing names.
const (
	categoriesKey    = "categories"
	finishingsKey    = "finishings"
	kitsKey          = "kits"
	bannersKey       = "banners"
	companyConfigKey = "company-config"
)

var (
	ErrInvalidCoupon   = errors.New("coupon code and a discount between 0 and 100 are required")
	ErrInvalidCategory = errors.New("category is invalid")
	ErrInvalidPrice    = errors.New("variant prices must not be negative")
)

type Repository interface {
	ListProducts(ctx context.Context, f mongo.ProductFilter) ([]models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindProductByID(ctx context.Context, id string) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
	CreateProduct(ctx context.Context, p *models.Product, finishingIDs []string) error
	DeleteProduct(ctx context.Context, id string) (*models.Product, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	ListFinishings(ctx context.Context) ([]models.Finishing, error)
	ListKits(ctx context.Context) ([]models.Kit, error)
	FindKitBySlug(ctx context.Context, slug string) (*models.Kit, error)
	ListBanners(ctx context.Context) ([]models.Banner, error)
	GetCompanyConfig(ctx context.Context) (*models.CompanyConfig, error)

	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	FindActiveCoupon(ctx context.Context, code string) (*models.Coupon, error)
	CreateCoupon(ctx context.Context, c *models.Coupon) error
	DeleteCoupon(ctx context.Context, code string) error

	DashboardStats(ctx context.Context) (*mongo.DashboardStats, error)
}

// Cache returns models.ErrCacheMiss on a miss. Any other cache error is
// logged and the repository is used instead.
type Cache interface {
	GetProduct(ctx context.Context, slug string) (*models.Product, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	CacheProduct(ctx context.Context, p *models.Product) error
	RemoveProduct(ctx context.Context, p *models.Product) error
	RecentProducts(ctx context.Context, limit int64) ([]string, error)
	GetCatalog(ctx context.Context, name string, dst any) error
	SetCatalog(ctx context.Context, name string, value any) error
	InvalidateCatalog(ctx context.Context, names ...string) error
}

type Service struct {
	repo       Repository
	cache      Cache
	pixPercent decimal.Decimal
	sfg        singleflight.Group
}

func NewService(repo Repository, cache Cache, pixDiscountPercent decimal.Decimal) *Service {
	return &Service{repo: repo, cache: cache, pixPercent: pixDiscountPercent}
}

func (s *Service) PixDiscountPercent() decimal.Decimal { return s.pixPercent }

// ProductDetail is the product page payload: the product plus display
// pricing for each variant and the upsell products.
type ProductDetail struct {
	*models.Product
	VariantQuotes      []pricing.VariantQuote `json:"variant_quotes"`
	BestValueVariantID string                 `json:"best_value_variant_id,omitempty"`
	PixDiscountPercent decimal.Decimal        `json:"pix_discount_percent"`
	Upsells            []models.Product       `json:"upsells"`
}

func (s *Service) ListProducts(ctx context.Context, f mongo.ProductFilter) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, f)
}

// ProductBySlug reads through the cache. Concurrent misses for the same
// slug share one repository call.
func (s *Service) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.cache.GetProduct(ctx, slug)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrCacheMiss) {
		zap.L().Warn("product cache get failed", zap.String("slug", slug), zap.Error(err))
	}

	v, err, _ := s.sfg.Do("product:"+slug, func() (any, error) {
		p, err := s.repo.FindProductBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		s.fillCache(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

// ProductByID is used when adding to the cart. Inactive products are
// returned too; the cart decides what is purchasable.
func (s *Service) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.cache.GetProductByID(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrCacheMiss) {
		zap.L().Warn("product cache get failed", zap.String("id", id), zap.Error(err))
	}

	v, err, _ := s.sfg.Do("product-id:"+id, func() (any, error) {
		p, err := s.repo.FindProductByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.IsActive {
			s.fillCache(ctx, p)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

func (s *Service) fillCache(ctx context.Context, p *models.Product) {
	if err := s.cache.CacheProduct(ctx, p); err != nil {
		zap.L().Warn("product cache set failed", zap.String("slug", p.Slug), zap.Error(err))
	}
}

// ViewProduct loads the product page and counts the view.
func (s *Service) ViewProduct(ctx context.Context, slug string) (*ProductDetail, error) {
	p, err := s.ProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	product := *p
	if views, err := s.repo.IncrementViews(ctx, product.ID.Hex()); err != nil {
		zap.L().Warn("failed to count product view", zap.String("slug", slug), zap.Error(err))
	} else {
		product.ViewsCount = views
	}

	detail := &ProductDetail{
		Product:            &product,
		VariantQuotes:      pricing.QuoteVariants(&product, s.pixPercent),
		PixDiscountPercent: s.pixPercent,
		Upsells:            []models.Product{},
	}
	for _, q := range detail.VariantQuotes {
		if q.BestValue {
			detail.BestValueVariantID = q.ID
		}
	}
	if len(product.UpsellIDs) > 0 {
		upsells, err := s.repo.FindProductsByIDs(ctx, product.UpsellIDs)
		if err != nil {
			zap.L().Warn("failed to load upsells", zap.String("slug", slug), zap.Error(err))
		} else {
			detail.Upsells = upsells
		}
	}
	return detail, nil
}

// RecentProducts lists the products most recently loaded into the cache,
// newest first. Products gone from the catalog are skipped.
func (s *Service) RecentProducts(ctx context.Context, limit int64) ([]models.Product, error) {
	slugs, err := s.cache.RecentProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent products: %w", err)
	}
	out := make([]models.Product, 0, len(slugs))
	for _, slug := range slugs {
		p, err := s.ProductBySlug(ctx, slug)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *Service) IncrementViews(ctx context.Context, id string) (int64, error) {
	return s.repo.IncrementViews(ctx, id)
}

// AreaQuoteView is the live quote shown while a customer types a size.
type AreaQuoteView struct {
	pricing.AreaQuote
	PricePerSquareMeter decimal.Decimal `json:"price_per_m2"`
	Label               string          `json:"label"`
	PixPrice            decimal.Decimal `json:"pix_price"`
}

func (s *Service) QuoteArea(ctx context.Context, slug string, width, height decimal.Decimal) (*AreaQuoteView, error) {
	p, err := s.ProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	base, ok := p.DefaultVariant()
	if p.PricingMode != models.PricingPerArea || !ok {
		return nil, fmt.Errorf("product %s: %w", slug, errNotAreaPriced)
	}

	perM2 := pricing.SalePrice(base.Price, p.OnSale, p.SaleDiscountPercent)
	quote, err := pricing.AreaPrice(perM2, width, height)
	if err != nil {
		return nil, err
	}
	return &AreaQuoteView{
		AreaQuote:           quote,
		PricePerSquareMeter: perM2,
		Label:               pricing.MeasurementLabel(width, height),
		PixPrice:            pricing.PixPrice(quote.TotalPrice, s.pixPercent),
	}, nil
}

var errNotAreaPriced = errors.New("product is not priced per area")

// IsNotAreaPriced reports whether err came from quoting a per-unit product.
func IsNotAreaPriced(err error) bool { return errors.Is(err, errNotAreaPriced) }

// cachedList reads a listing through the cache with singleflight.
func cachedList[T any](ctx context.Context, s *Service, name string, load func(context.Context) (T, error)) (T, error) {
	var out T
	err := s.cache.GetCatalog(ctx, name, &out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, models.ErrCacheMiss) {
		zap.L().Warn("catalog cache get failed", zap.String("name", name), zap.Error(err))
	}

	v, err, _ := s.sfg.Do("catalog:"+name, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetCatalog(ctx, name, value); err != nil {
			zap.L().Warn("catalog cache set failed", zap.String("name", name), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return cachedList(ctx, s, categoriesKey, s.repo.ListCategories)
}

func (s *Service) Finishings(ctx context.Context) ([]models.Finishing, error) {
	return cachedList(ctx, s, finishingsKey, s.repo.ListFinishings)
}

func (s *Service) Kits(ctx context.Context) ([]models.Kit, error) {
	return cachedList(ctx, s, kitsKey, s.repo.ListKits)
}

func (s *Service) Banners(ctx context.Context) ([]models.Banner, error) {
	return cachedList(ctx, s, bannersKey, s.repo.ListBanners)
}

// CompanyConfig returns the shop configuration, or models.ErrNotFound when
// none has been set up.
func (s *Service) CompanyConfig(ctx context.Context) (*models.CompanyConfig, error) {
	return cachedList(ctx, s, companyConfigKey, s.repo.GetCompanyConfig)
}

// KitDetail is a kit with its constituent products.
type KitDetail struct {
	*models.Kit
	Products []models.Product `json:"products"`
}

func (s *Service) KitBySlug(ctx context.Context, slug string) (*models.Kit, error) {
	return s.repo.FindKitBySlug(ctx, slug)
}

func (s *Service) KitDetail(ctx context.Context, slug string) (*KitDetail, error) {
	kit, err := s.repo.FindKitBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.FindProductsByIDs(ctx, kit.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("kit products: %w", err)
	}
	return &KitDetail{Kit: kit, Products: products}, nil
}

// CreateProduct validates and stores a new product built from req.
func (s *Service) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	categoryID, err := bson.ObjectIDFromHex(req.CategoryID)
	if err != nil {
		return nil, ErrInvalidCategory
	}
	for _, v := range req.Variants {
		if v.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
	}
	if !models.ValidPercentage(req.SaleDiscountPercent) {
		return nil, ErrInvalidPrice
	}

	p := req.ToProduct()
	p.CategoryID = categoryID
	if err := s.repo.CreateProduct(ctx, p, req.FinishingIDs); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInvalidCategory
		}
		return nil, err
	}
	s.fillCache(ctx, p)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cache.RemoveProduct(ctx, deleted); err != nil {
		zap.L().Warn("product cache eviction failed", zap.String("slug", deleted.Slug), zap.Error(err))
	}
	return nil
}

func (s *Service) Coupons(ctx context.Context) ([]models.Coupon, error) {
	return s.repo.ListCoupons(ctx)
}

// CreateCoupon stores a coupon under its normalized code.
func (s *Service) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error) {
	code := coupon.Normalize(req.Code)
	if code == "" || !models.ValidPercentage(req.DiscountPercentage) {
		return nil, ErrInvalidCoupon
	}
	c := &models.Coupon{Code: code, DiscountPercentage: req.DiscountPercentage, IsActive: true}
	if err := s.repo.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteCoupon(ctx context.Context, code string) error {
	return s.repo.DeleteCoupon(ctx, coupon.Normalize(code))
}

func (s *Service) DashboardStats(ctx context.Context) (*mongo.DashboardStats, error) {
	return s.repo.DashboardStats(ctx)
}

// InvalidateListings drops every cached listing; admin writes call it.
func (s *Service) InvalidateListings(ctx context.Context) {
	if err := s.cache.InvalidateCatalog(ctx, categoriesKey, finishingsKey, kitsKey, bannersKey, companyConfigKey); err != nil {
		zap.L().Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
