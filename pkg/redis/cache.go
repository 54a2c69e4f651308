package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clouddesign.com.br/storefront/pkg/models"
)

const (
	recentProductsKey = "products:recent"
	catalogKeyPrefix  = "catalog:"
)

// Cache keeps catalog reads off Mongo. Products are stored by slug with an
// id -> slug index; listings (categories, kits, banners, company config) are
// stored whole under catalog:<name>.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func productKey(slug string) string { return "product:" + slug }
func productIDKey(id string) string { return "product:id:" + id }
func categoryKey(slug string) string { return "category:" + slug }
func catalogKey(name string) string { return catalogKeyPrefix + name }

// CacheProduct stores a product and its lookup entries in one transaction.
func (c *Cache) CacheProduct(ctx context.Context, product *models.Product) error {
	productJSON, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product %s: %w", product.Slug, err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, productKey(product.Slug), productJSON, c.ttl)
	pipe.Set(ctx, productIDKey(product.ID.Hex()), product.Slug, c.ttl)

	if product.CategorySlug != "" {
		key := categoryKey(product.CategorySlug)
		pipe.LRem(ctx, key, 0, product.Slug)
		pipe.LPush(ctx, key, product.Slug)
		pipe.Expire(ctx, key, c.ttl)
	}

	pipe.LRem(ctx, recentProductsKey, 0, product.Slug)
	pipe.LPush(ctx, recentProductsKey, product.Slug)
	pipe.LTrim(ctx, recentProductsKey, 0, 99)
	pipe.Expire(ctx, recentProductsKey, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache product %s: %w", product.Slug, err)
	}
	return nil
}

// GetProduct returns models.ErrCacheMiss when the slug is not cached.
func (c *Cache) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	productJSON, err := c.client.Get(ctx, productKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(productJSON, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return &product, nil
}

func (c *Cache) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	slug, err := c.client.Get(ctx, productIDKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return c.GetProduct(ctx, slug)
}

// RemoveProduct drops a product and its lookup entries.
func (c *Cache) RemoveProduct(ctx context.Context, product *models.Product) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, productKey(product.Slug), productIDKey(product.ID.Hex()))
	if product.CategorySlug != "" {
		pipe.LRem(ctx, categoryKey(product.CategorySlug), 0, product.Slug)
	}
	pipe.LRem(ctx, recentProductsKey, 0, product.Slug)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove product from Redis cache: %w", err)
	}
	return nil
}

// RecentProducts returns the slugs of the most recently cached products,
// newest first.
func (c *Cache) RecentProducts(ctx context.Context, limit int64) ([]string, error) {
	return c.client.LRange(ctx, recentProductsKey, 0, limit-1).Result()
}

// SetCatalog stores any JSON-encodable listing under name.
func (c *Cache) SetCatalog(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return c.client.Set(ctx, catalogKey(name), raw, c.ttl).Err()
}

// GetCatalog decodes the listing stored under name into dst.
func (c *Cache) GetCatalog(ctx context.Context, name string, dst any) error {
	raw, err := c.client.Get(ctx, catalogKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// InvalidateCatalog drops the named listings.
func (c *Cache) InvalidateCatalog(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = catalogKey(name)
	}
	return c.client.Del(ctx, keys...).Err()
}
