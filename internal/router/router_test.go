package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"clouddesign.com.br/storefront/pkg/ai"
	"clouddesign.com.br/storefront/pkg/catalog"
	"clouddesign.com.br/storefront/pkg/coupon"
	"clouddesign.com.br/storefront/pkg/global"
	"clouddesign.com.br/storefront/pkg/models"
	"clouddesign.com.br/storefront/pkg/mongo"
	"clouddesign.com.br/storefront/pkg/redis"
	"clouddesign.com.br/storefront/pkg/tracking"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const session = "sess-12345678"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeRepo struct {
	products map[string]*models.Product
	kits     map[string]*models.Kit
	coupons  map[string]models.Coupon
	company  *models.CompanyConfig

	// lookups of slowCode signal entered and wait for release
	slowCode string
	entered  chan struct{}
	release  chan struct{}
}

func (f *fakeRepo) ListProducts(context.Context, mongo.ProductFilter) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeRepo) FindProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	if p, ok := f.products[slug]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) FindProductByID(_ context.Context, id string) (*models.Product, error) {
	for _, p := range f.products {
		if p.ID.Hex() == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) FindProductsByIDs(context.Context, []bson.ObjectID) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (f *fakeRepo) IncrementViews(_ context.Context, id string) (int64, error) {
	for _, p := range f.products {
		if p.ID.Hex() == id {
			p.ViewsCount++
			return p.ViewsCount, nil
		}
	}
	return 0, models.ErrNotFound
}

func (f *fakeRepo) CreateProduct(_ context.Context, p *models.Product, _ []string) error {
	f.products[p.Slug] = p
	return nil
}

func (f *fakeRepo) DeleteProduct(_ context.Context, id string) (*models.Product, error) {
	for slug, p := range f.products {
		if p.ID.Hex() == id {
			delete(f.products, slug)
			return p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) ListCategories(context.Context) ([]models.Category, error) {
	return []models.Category{{Name: "Impressos", Slug: "impressos"}}, nil
}

func (f *fakeRepo) ListFinishings(context.Context) ([]models.Finishing, error) {
	return []models.Finishing{}, nil
}

func (f *fakeRepo) ListKits(context.Context) ([]models.Kit, error) {
	return []models.Kit{}, nil
}

func (f *fakeRepo) FindKitBySlug(_ context.Context, slug string) (*models.Kit, error) {
	if k, ok := f.kits[slug]; ok {
		return k, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) ListBanners(context.Context) ([]models.Banner, error) {
	return []models.Banner{}, nil
}

func (f *fakeRepo) GetCompanyConfig(context.Context) (*models.CompanyConfig, error) {
	if f.company == nil {
		return nil, models.ErrNotFound
	}
	return f.company, nil
}

func (f *fakeRepo) ListCoupons(context.Context) ([]models.Coupon, error) {
	out := []models.Coupon{}
	for _, c := range f.coupons {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) FindActiveCoupon(_ context.Context, code string) (*models.Coupon, error) {
	if f.slowCode != "" && code == f.slowCode {
		close(f.entered)
		<-f.release
	}
	if c, ok := f.coupons[code]; ok && c.IsActive {
		return &c, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) CreateCoupon(_ context.Context, c *models.Coupon) error {
	if _, ok := f.coupons[c.Code]; ok {
		return mongo.ErrDuplicate
	}
	f.coupons[c.Code] = *c
	return nil
}

func (f *fakeRepo) DeleteCoupon(_ context.Context, code string) error {
	if _, ok := f.coupons[code]; !ok {
		return models.ErrNotFound
	}
	delete(f.coupons, code)
	return nil
}

func (f *fakeRepo) DashboardStats(context.Context) (*mongo.DashboardStats, error) {
	return &mongo.DashboardStats{TotalViews: 12, TotalProducts: int64(len(f.products))}, nil
}

type fakeTracker struct{}

func (fakeTracker) Lookup(_ context.Context, id string) (*tracking.Order, error) {
	if id == "1042" {
		return &tracking.Order{ID: id, StatusName: "Em impressão"}, nil
	}
	return nil, models.ErrNotFound
}

type testEnv struct {
	router http.Handler
	repo   *fakeRepo
	mr     *miniredis.Miniredis
	cards  *models.Product
	lona   *models.Product
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cards := &models.Product{
		ID: bson.NewObjectID(), Name: "Cartão de Visita", Slug: "cartao-de-visita",
		IsActive: true, PricingMode: models.PricingPerUnitVariant,
		Variants: []models.Variant{{ID: "a", Name: "500un", Price: d("50")}, {ID: "b", Name: "1000un", Price: d("90")}},
	}
	lona := &models.Product{
		ID: bson.NewObjectID(), Name: "Lona", Slug: "lona",
		IsActive: true, PricingMode: models.PricingPerArea,
		Variants: []models.Variant{{ID: "m2", Name: "m²", Price: d("20")}},
	}
	repo := &fakeRepo{
		products: map[string]*models.Product{cards.Slug: cards, lona.Slug: lona},
		kits: map[string]*models.Kit{"kit-start": {
			ID: bson.NewObjectID(), Name: "Kit Start", Slug: "kit-start", Price: d("99"), IsActive: true,
		}},
		coupons: map[string]models.Coupon{"PROMO10": {Code: "PROMO10", DiscountPercentage: d("10"), IsActive: true}},
		company: &models.CompanyConfig{Name: "Cloud Design", WhatsApp: "+55 (11) 98888-7777"},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	settings := global.Settings{
		FreeShippingGoal:  d("300"),
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		AllowedOrigins:    []string{"http://localhost:3000"},
	}

	h := &Handler{
		Catalog:  catalog.NewService(repo, redis.NewCache(client, time.Hour), d("5")),
		Carts:    redis.NewStorage(client, time.Hour),
		Coupons:  coupon.NewRepositoryValidator(repo),
		Sessions: redis.NewSessions(client, time.Hour),
		Tracker:  fakeTracker{},
		AI:       ai.NewClient(settings),
		Settings: settings,
		HealthChecks: map[string]func(context.Context) error{
			"redis": func(ctx context.Context) error { return redis.Ping(ctx, client) },
		},
	}
	r := NewEngine(settings)
	RegisterRoutes(r, h)
	return &testEnv{router: r, repo: repo, mr: mr, cards: cards, lona: lona}
}

// do sends a request; headers are given as name, value pairs.
func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, gjson.Result) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w, gjson.Parse(w.Body.String())
}

func cartPath(suffix string) string { return "/api/cart/" + session + suffix }

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Connected", body.Get("data.redis").String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	env.mr.Close()
	w, body = env.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DEGRADED", body.Get("data.status").String())
}

func TestListProducts_Filters(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/products?category=impressos&min_price=10", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), body.Get("data.#").Int())

	w, body = env.do(t, http.MethodGet, "/api/products?featured=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "featured", body.Get("errors.0.field").String())

	w, _ = env.do(t, http.MethodGet, "/api/products?max_price=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/products/cartao-de-visita", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b", body.Get("data.best_value_variant_id").String())
	assert.Equal(t, int64(1), body.Get("data.views_count").Int())
	assert.Equal(t, "47.5", body.Get("data.variant_quotes.0.pix_price").String())

	w, _ = env.do(t, http.MethodGet, "/api/products/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = env.do(t, http.MethodPost, "/api/products/"+env.cards.ID.Hex()+"/increment_view", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), body.Get("data.views_count").Int())
}

func TestRecentProducts(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/products/lona", "")

	w, body := env.do(t, http.MethodGet, "/api/products/recent", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lona", body.Get("data.0.slug").String())

	w, _ = env.do(t, http.MethodGet, "/api/products/recent?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteArea(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/products/lona/quote?width=2&height=1.5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", body.Get("data.total_price").String())
	assert.Equal(t, "2.00m x 1.50m", body.Get("data.label").String())

	w, _ = env.do(t, http.MethodGet, "/api/products/lona/quote?width=abc&height=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/products/lona/quote?width=0&height=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/products/cartao-de-visita/quote?width=1&height=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListings(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "impressos", body.Get("data.0.slug").String())

	w, body = env.do(t, http.MethodGet, "/api/company-config", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cloud Design", body.Get("data.name").String())

	w, _ = env.do(t, http.MethodGet, "/api/kits/kit-start", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateCoupon(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/coupons/validate?code=promo10", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PROMO10", body.Get("data.code").String())

	w, body = env.do(t, http.MethodGet, "/api/coupons/validate?code=NOPE", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, msgInvalidCoupon, body.Get("message").String())
}

func TestTrackOrder(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/tracking/1042", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Em impressão", body.Get("data.status_name").String())

	w, body = env.do(t, http.MethodGet, "/api/tracking/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body.Get("message").String(), "Pedido não encontrado")
}

func TestCart_InvalidSession(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/cart/x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCart_AddRemoveClear(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.cards.ID.Hex()+`","variant_id":"b"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "1000un", body.Get("data.item.selected_variant.standard.name").String())

	w, body = env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.lona.ID.Hex()+`","width":0.4,"height":0.5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "10", body.Get("data.item.selected_variant.area.price").String())

	w, body = env.do(t, http.MethodPost, cartPath("/items"), `{"kit_slug":"kit-start"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(3), body.Get("data.cart.summary.item_count").Int())
	assert.Equal(t, "199", body.Get("data.cart.summary.subtotal").String())

	w, body = env.do(t, http.MethodGet, cartPath(""), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), body.Get("data.items.#").Int())
	assert.False(t, body.Get("data.summary.goal_reached").Bool())

	w, body = env.do(t, http.MethodDelete, cartPath("/items/9"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), body.Get("data.items.#").Int())

	w, body = env.do(t, http.MethodDelete, cartPath("/items/0"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), body.Get("data.items.#").Int())

	w, _ = env.do(t, http.MethodDelete, cartPath("/items/first"), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodDelete, cartPath("/clear"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), body.Get("data.items.#").Int())
}

func TestCart_AddRejections(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, cartPath("/items"), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+bson.NewObjectID().Hex()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.cards.ID.Hex()+`","variant_id":"zz"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "variant_id", body.Get("errors.0.field").String())

	w, _ = env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.lona.ID.Hex()+`","width":-1,"height":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	retired := &models.Product{
		ID: bson.NewObjectID(), Name: "Calendário 2025", Slug: "calendario-2025",
		PricingMode: models.PricingPerUnitVariant,
		Variants:    []models.Variant{{ID: "x", Name: "100un", Price: d("80")}},
	}
	env.repo.products[retired.Slug] = retired
	w, _ = env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+retired.ID.Hex()+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	_, body = env.do(t, http.MethodGet, cartPath(""), "")
	assert.Equal(t, int64(0), body.Get("data.items.#").Int())
}

func TestCart_Coupon(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.cards.ID.Hex()+`","variant_id":"b"}`)

	w, body := env.do(t, http.MethodPost, cartPath("/coupon"), `{"code":" promo10 "}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PROMO10", body.Get("data.coupon.code").String())
	assert.Equal(t, "9", body.Get("data.summary.discount_amount").String())
	assert.Equal(t, "81", body.Get("data.summary.total").String())

	w, body = env.do(t, http.MethodPost, cartPath("/coupon"), `{"code":"EXPIRED"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, msgInvalidCoupon, body.Get("message").String())
	assert.Equal(t, gjson.Null, body.Get("data.coupon").Type, "failed validation clears the coupon")
	assert.Equal(t, "90", body.Get("data.summary.total").String())

	w, _ = env.do(t, http.MethodPost, cartPath("/coupon"), `{"code":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.do(t, http.MethodPost, cartPath("/coupon"), `{"code":"PROMO10"}`)
	w, body = env.do(t, http.MethodDelete, cartPath("/coupon"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gjson.Null, body.Get("data.coupon").Type)

	w, _ = env.do(t, http.MethodDelete, cartPath("/coupon"), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func (e *testEnv) slowCoupon(code string) {
	e.repo.coupons[code] = models.Coupon{Code: code, DiscountPercentage: d("20"), IsActive: true}
	e.repo.slowCode = code
	e.repo.entered = make(chan struct{})
	e.repo.release = make(chan struct{})
}

func TestCart_AddDuringCouponValidationIsKept(t *testing.T) {
	env := newTestEnv(t)
	env.slowCoupon("SLOW20")

	done := make(chan int, 1)
	go func() {
		w, _ := env.do(t, http.MethodPost, cartPath("/coupon"), `{"code":"slow20"}`)
		done <- w.Code
	}()
	<-env.repo.entered

	w, _ := env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.cards.ID.Hex()+`","variant_id":"b"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	close(env.repo.release)
	assert.Equal(t, http.StatusOK, <-done)

	_, body := env.do(t, http.MethodGet, cartPath(""), "")
	assert.Equal(t, int64(1), body.Get("data.items.#").Int())
	assert.Equal(t, "SLOW20", body.Get("data.coupon.code").String())
	assert.Equal(t, "72", body.Get("data.summary.total").String())
}

func TestCart_StaleCouponResponseIsDiscarded(t *testing.T) {
	env := newTestEnv(t)
	env.slowCoupon("SLOW20")
	env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.cards.ID.Hex()+`","variant_id":"b"}`)

	type result struct {
		code int
		body gjson.Result
	}
	done := make(chan result, 1)
	go func() {
		w, body := env.do(t, http.MethodPost, cartPath("/coupon"), `{"code":"SLOW20"}`)
		done <- result{w.Code, body}
	}()
	<-env.repo.entered

	w, _ := env.do(t, http.MethodPost, cartPath("/coupon"), `{"code":"PROMO10"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	close(env.repo.release)

	stale := <-done
	assert.Equal(t, http.StatusConflict, stale.code)
	assert.Equal(t, "PROMO10", stale.body.Get("data.coupon.code").String())

	_, body := env.do(t, http.MethodGet, cartPath(""), "")
	assert.Equal(t, "PROMO10", body.Get("data.coupon.code").String())
}

func TestCart_ClearDuringCouponValidation(t *testing.T) {
	env := newTestEnv(t)
	env.slowCoupon("SLOW20")
	env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.cards.ID.Hex()+`","variant_id":"b"}`)

	done := make(chan int, 1)
	go func() {
		w, _ := env.do(t, http.MethodPost, cartPath("/coupon"), `{"code":"SLOW20"}`)
		done <- w.Code
	}()
	<-env.repo.entered

	w, _ := env.do(t, http.MethodDelete, cartPath("/clear"), "")
	require.Equal(t, http.StatusOK, w.Code)
	close(env.repo.release)
	assert.Equal(t, http.StatusConflict, <-done)

	_, body := env.do(t, http.MethodGet, cartPath(""), "")
	assert.Equal(t, int64(0), body.Get("data.items.#").Int())
	assert.Equal(t, gjson.Null, body.Get("data.coupon").Type)
}

func TestCheckout_Flow(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, cartPath("/checkout/identify"), "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")

	env.do(t, http.MethodPost, cartPath("/items"), `{"product_id":"`+env.cards.ID.Hex()+`","variant_id":"b"}`)

	w, _ = env.do(t, http.MethodPost, cartPath("/checkout"), `{"name":"Ana","phone":"11 91234-5678"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "dispatch before identification")

	w, body = env.do(t, http.MethodPost, cartPath("/checkout/identify"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "identification", body.Get("data.step").String())

	w, body = env.do(t, http.MethodPost, cartPath("/checkout"), `{"name":"  ","phone":"11 91234-5678"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgMissingCustomer, body.Get("message").String())

	w, body = env.do(t, http.MethodPost, cartPath("/checkout"), `{"name":"Ana","phone":"11 91234-5678"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(body.Get("data.link").String(), "https://wa.me/5511988887777?text="))
	assert.Contains(t, body.Get("data.message").String(), "👤 *CLIENTE:* Ana")

	_, body = env.do(t, http.MethodGet, cartPath("/checkout"), "")
	assert.Equal(t, "dispatched", body.Get("data.step").String())
	assert.Equal(t, "Ana", body.Get("data.customer.name").String())

	_, body = env.do(t, http.MethodGet, cartPath(""), "")
	assert.Equal(t, int64(1), body.Get("data.items.#").Int(), "dispatch keeps the cart")

	w, _ = env.do(t, http.MethodPost, cartPath("/checkout/back"), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = env.do(t, http.MethodPost, cartPath("/checkout/reset"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cart", body.Get("data.step").String())
}

func TestCheckout_MissingShopNumber(t *testing.T) {
	env := newTestEnv(t)
	env.repo.company = nil

	env.do(t, http.MethodPost, cartPath("/items"), `{"kit_slug":"kit-start"}`)
	env.do(t, http.MethodPost, cartPath("/checkout/identify"), "")

	w, body := env.do(t, http.MethodPost, cartPath("/checkout"), `{"name":"Ana","phone":"11 91234-5678"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, msgMissingShopNumber, body.Get("message").String())

	_, body = env.do(t, http.MethodGet, cartPath("/checkout"), "")
	assert.Equal(t, "identification", body.Get("data.step").String())
}

func login(t *testing.T, env *testEnv) string {
	t.Helper()
	w, body := env.do(t, http.MethodPost, "/api/admin/login", `{"username":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := body.Get("data.token").String()
	require.NotEmpty(t, token)
	return token
}

func TestAdmin_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/admin/coupons", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/admin/coupons", "", "Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := login(t, env)
	w, _ = env.do(t, http.MethodGet, "/api/admin/coupons", "", "Cookie", adminCookie+"="+token)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/admin/logout", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/admin/coupons", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_LoginThrottle(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		w, _ := env.do(t, http.MethodPost, "/api/admin/login", `{"username":"admin","password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, _ := env.do(t, http.MethodPost, "/api/admin/login", `{"username":"admin","password":"s3cret"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAdmin_Coupons(t *testing.T) {
	env := newTestEnv(t)
	auth := []string{"Authorization", "Bearer " + login(t, env)}

	w, body := env.do(t, http.MethodPost, "/api/admin/coupons", `{"code":"natal 20","discount_percentage":20}`, auth...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "NATAL20", body.Get("data.code").String())

	w, _ = env.do(t, http.MethodPost, "/api/admin/coupons", `{"code":"NATAL20","discount_percentage":5}`, auth...)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/admin/coupons", `{"code":"X","discount_percentage":150}`, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/admin/coupons", "", auth...)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), body.Get("data.#").Int())

	w, _ = env.do(t, http.MethodDelete, "/api/admin/coupons/natal20", "", auth...)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodDelete, "/api/admin/coupons/natal20", "", auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_ProductsAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	auth := []string{"Authorization", "Bearer " + login(t, env)}

	w, _ := env.do(t, http.MethodPost, "/api/admin/products", `{"name":"Panfleto","category":"bad","variants":[{"name":"1000un","price":120}]}`, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/admin/products/"+env.lona.ID.Hex(), "", auth...)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/products/lona", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := env.do(t, http.MethodGet, "/api/admin/dashboard/stats", "", auth...)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(12), body.Get("data.total_views").Int())

	w, body = env.do(t, http.MethodGet, "/api/admin/dashboard/insights", "", auth...)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, body.Get("data.ai_enabled").Bool())

	w, _ = env.do(t, http.MethodPost, "/api/admin/cache/invalidate", "", auth...)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorResponse_UnknownErrorIsInternal(t *testing.T) {
	status, body := errorResponse(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, msgInternal, body.Message)
	assert.Empty(t, body.Errors)
}
