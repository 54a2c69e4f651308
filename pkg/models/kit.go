package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Kit is a promotional bundle ("combo") of several products sold at one
// fixed price.
type Kit struct {
	ID          bson.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name        string          `json:"name" bson:"name"`
	Slug        string          `json:"slug" bson:"slug"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	Image       string          `json:"image" bson:"image"`
	Description string          `json:"description" bson:"description"`
	ProductIDs  []bson.ObjectID `json:"products" bson:"product_ids"`
	IsActive    bool            `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
}
