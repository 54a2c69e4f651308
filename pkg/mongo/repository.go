package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"clouddesign.com.br/storefront/pkg/models"
)

var ErrDuplicate = errors.New("duplicate key")

// ProductFilter narrows the storefront listing. Zero values mean "any".
type ProductFilter struct {
	CategorySlug string
	Featured     *bool
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
}

// Repository is the catalog's source of truth.
type Repository struct {
	db *mongo.Database
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) coll(name string) *mongo.Collection {
	return r.db.Collection(name)
}

// productQuery builds the Mongo filter for a listing. Only active products
// are listed. A price range must be satisfied by a single variant.
func productQuery(f ProductFilter) bson.D {
	q := bson.D{{Key: "is_active", Value: true}}
	if f.CategorySlug != "" {
		q = append(q, bson.E{Key: "category_slug", Value: f.CategorySlug})
	}
	if f.Featured != nil {
		q = append(q, bson.E{Key: "is_featured", Value: *f.Featured})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
		}})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.D{}
		if f.MinPrice != nil {
			price = append(price, bson.E{Key: "$gte", Value: *f.MinPrice})
		}
		if f.MaxPrice != nil {
			price = append(price, bson.E{Key: "$lte", Value: *f.MaxPrice})
		}
		q = append(q, bson.E{Key: "variants", Value: bson.D{
			{Key: "$elemMatch", Value: bson.D{{Key: "price", Value: price}}},
		}})
	}
	return q
}

func (r *Repository) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "is_featured", Value: -1}, {Key: "created_at", Value: -1}})
	products, err := findAll[models.Product](ctx, r.coll(productsCollection), productQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *Repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return findOne[models.Product](ctx, r.coll(productsCollection), bson.D{{Key: "slug", Value: slug}, {Key: "is_active", Value: true}})
}

func (r *Repository) FindProductByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return findOne[models.Product](ctx, r.coll(productsCollection), bson.D{{Key: "_id", Value: oid}})
}

func (r *Repository) FindProductsByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	return findAll[models.Product](ctx, r.coll(productsCollection), bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
		{Key: "is_active", Value: true},
	})
}

// IncrementViews bumps views_count atomically and returns the new value.
func (r *Repository) IncrementViews(ctx context.Context, id string) (int64, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return 0, models.ErrNotFound
	}

	var updated struct {
		ViewsCount int64 `bson:"views_count"`
	}
	err = r.coll(productsCollection).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "views_count", Value: 1}}}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.D{{Key: "views_count", Value: 1}}),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return updated.ViewsCount, nil
}

// CreateProduct fills category and finishing details from their ids and
// inserts the product.
func (r *Repository) CreateProduct(ctx context.Context, p *models.Product, finishingIDs []string) error {
	category, err := findOne[models.Category](ctx, r.coll(categoriesCollection), bson.D{{Key: "_id", Value: p.CategoryID}})
	if err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}
	p.CategoryName = category.Name
	p.CategorySlug = category.Slug

	if len(finishingIDs) > 0 {
		oids := make([]bson.ObjectID, 0, len(finishingIDs))
		for _, id := range finishingIDs {
			oid, err := bson.ObjectIDFromHex(id)
			if err != nil {
				return fmt.Errorf("finishing %q: %w", id, models.ErrNotFound)
			}
			oids = append(oids, oid)
		}
		finishings, err := findAll[models.Finishing](ctx, r.coll(finishingsCollection), bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}})
		if err != nil {
			return fmt.Errorf("resolve finishings: %w", err)
		}
		p.Finishings = finishings
	}

	if _, err := r.coll(productsCollection).InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("product slug %q: %w", p.Slug, ErrDuplicate)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product and returns what was removed so callers
// can evict it from caches.
func (r *Repository) DeleteProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var deleted models.Product
	err = r.coll(productsCollection).FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&deleted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}
	return &deleted, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	return findAll[models.Category](ctx, r.coll(categoriesCollection), bson.D{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *Repository) ListFinishings(ctx context.Context) ([]models.Finishing, error) {
	return findAll[models.Finishing](ctx, r.coll(finishingsCollection), bson.D{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *Repository) ListKits(ctx context.Context) ([]models.Kit, error) {
	return findAll[models.Kit](ctx, r.coll(kitsCollection), bson.D{{Key: "is_active", Value: true}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *Repository) FindKitBySlug(ctx context.Context, slug string) (*models.Kit, error) {
	return findOne[models.Kit](ctx, r.coll(kitsCollection), bson.D{{Key: "slug", Value: slug}, {Key: "is_active", Value: true}})
}

func (r *Repository) ListBanners(ctx context.Context) ([]models.Banner, error) {
	return findAll[models.Banner](ctx, r.coll(bannersCollection), bson.D{{Key: "is_active", Value: true}},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
}

// GetCompanyConfig returns the single company configuration document.
func (r *Repository) GetCompanyConfig(ctx context.Context) (*models.CompanyConfig, error) {
	return findOne[models.CompanyConfig](ctx, r.coll(companyConfigCollection), bson.D{})
}

func (r *Repository) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	return findAll[models.Coupon](ctx, r.coll(couponsCollection), bson.D{},
		options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
}

// FindActiveCoupon looks a normalized code up among active coupons.
func (r *Repository) FindActiveCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	return findOne[models.Coupon](ctx, r.coll(couponsCollection), bson.D{
		{Key: "code", Value: code},
		{Key: "is_active", Value: true},
	})
}

func (r *Repository) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	doc := struct {
		models.Coupon `bson:",inline"`
		CreatedAt     time.Time `bson:"created_at"`
	}{Coupon: *c, CreatedAt: time.Now().UTC()}

	if _, err := r.coll(couponsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("coupon %q: %w", c.Code, ErrDuplicate)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (r *Repository) DeleteCoupon(ctx context.Context, code string) error {
	res, err := r.coll(couponsCollection).DeleteOne(ctx, bson.D{{Key: "code", Value: code}})
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
