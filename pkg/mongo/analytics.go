package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const topProductsLimit = 10

type ProductViews struct {
	ID           bson.ObjectID `json:"id" bson:"_id"`
	Name         string        `json:"name" bson:"name"`
	Slug         string        `json:"slug" bson:"slug"`
	CategoryName string        `json:"category_name" bson:"category_name"`
	ViewsCount   int64         `json:"views_count" bson:"views_count"`
}

type CategoryViews struct {
	Category     string `json:"category" bson:"_id"`
	ProductCount int    `json:"product_count" bson:"product_count"`
	Views        int64  `json:"views" bson:"views"`
}

type DashboardStats struct {
	TotalViews    int64           `json:"total_views" bson:"total_views"`
	TotalProducts int64           `json:"total_products" bson:"total_products"`
	TopProducts   []ProductViews  `json:"top_products" bson:"top_products"`
	ByCategory    []CategoryViews `json:"by_category" bson:"by_category"`
}

// dashboardPipeline computes every dashboard figure in one pass with $facet.
func dashboardPipeline() bson.A {
	return bson.A{
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "totals", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "total_views", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$views_count", 0}}}}}},
					{Key: "total_products", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
			}},
			{Key: "top_products", Value: bson.A{
				bson.D{{Key: "$sort", Value: bson.D{{Key: "views_count", Value: -1}, {Key: "_id", Value: 1}}}},
				bson.D{{Key: "$limit", Value: topProductsLimit}},
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "name", Value: 1},
					{Key: "slug", Value: 1},
					{Key: "category_name", Value: 1},
					{Key: "views_count", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$views_count", 0}}}},
				}}},
			}},
			{Key: "by_category", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$category_name", "Sem categoria"}}}},
					{Key: "product_count", Value: bson.D{{Key: "$sum", Value: 1}}},
					{Key: "views", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$views_count", 0}}}}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "views", Value: -1}}}},
			}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "total_views", Value: bson.D{{Key: "$ifNull", Value: bson.A{bson.D{{Key: "$first", Value: "$totals.total_views"}}, 0}}}},
			{Key: "total_products", Value: bson.D{{Key: "$ifNull", Value: bson.A{bson.D{{Key: "$first", Value: "$totals.total_products"}}, 0}}}},
			{Key: "top_products", Value: 1},
			{Key: "by_category", Value: 1},
		}}},
	}
}

// DashboardStats sums product views and ranks the most viewed products.
func (r *Repository) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	cursor, err := r.coll(productsCollection).Aggregate(ctx, dashboardPipeline())
	if err != nil {
		return nil, fmt.Errorf("dashboard aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	stats := &DashboardStats{TopProducts: []ProductViews{}, ByCategory: []CategoryViews{}}
	if cursor.Next(ctx) {
		if err := cursor.Decode(stats); err != nil {
			return nil, fmt.Errorf("decode dashboard stats: %w", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
