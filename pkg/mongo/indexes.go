package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const (
	productsCollection      = "products"
	categoriesCollection    = "categories"
	finishingsCollection    = "finishings"
	kitsCollection          = "kits"
	bannersCollection       = "banners"
	couponsCollection       = "coupons"
	companyConfigCollection = "company_config"
)

type IndexConfig struct {
	CollectionName string
	IndexModel     mongo.IndexModel
}

var requiredIndexes = []IndexConfig{
	// Products
	{
		CollectionName: productsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_product_slug_unique"),
		},
	},
	// Storefront listing: active products of a category, featured first
	{
		CollectionName: productsCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "is_active", Value: 1},
				{Key: "category_slug", Value: 1},
				{Key: "is_featured", Value: -1},
			},
			Options: options.Index().SetName("idx_active_category_featured"),
		},
	},
	// Dashboard ranking
	{
		CollectionName: productsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "views_count", Value: -1}},
			Options: options.Index().SetName("idx_views"),
		},
	},
	{
		CollectionName: productsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "variants.price", Value: 1}},
			Options: options.Index().SetName("idx_variant_price"),
		},
	},

	{
		CollectionName: categoriesCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_category_slug_unique"),
		},
	},
	{
		CollectionName: kitsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_kit_slug_unique"),
		},
	},
	{
		CollectionName: couponsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_coupon_code_unique"),
		},
	},
	{
		CollectionName: bannersCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "is_active", Value: 1},
				{Key: "order", Value: 1},
			},
			Options: options.Index().SetName("idx_banner_order"),
		},
	},
}

// EnsureIndexes creates every index the repository relies on. Creating an
// index that already exists with the same definition is a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range requiredIndexes {
		name, err := db.Collection(idx.CollectionName).Indexes().CreateOne(ctx, idx.IndexModel)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", idx.CollectionName, err)
		}
		zap.L().Debug("index ready", zap.String("collection", idx.CollectionName), zap.String("index", name))
	}
	zap.L().Info("mongo indexes ensured", zap.Int("count", len(requiredIndexes)))
	return nil
}
