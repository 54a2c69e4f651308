// Package tracking looks up production status of an order in the print
// shop's production system.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"clouddesign.com.br/storefront/pkg/models"
)

const maxBodyBytes = 64 << 10

var (
	ErrInvalidOrderID = errors.New("order id is required")
	ErrUnavailable    = errors.New("tracking service unavailable")
	ErrMalformed      = errors.New("malformed tracking response")
)

// Order is the production status shown on the tracking page.
type Order struct {
	ID               string `json:"id"`
	CustomerName     string `json:"customer_name,omitempty"`
	StatusName       string `json:"status_name"`
	StatusColor      string `json:"status_color,omitempty"`
	StatusStep       int64  `json:"status_step,omitempty"`
	Progress         int64  `json:"progress,omitempty"`
	ExpectedDelivery string `json:"expected_delivery,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse tracking url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("tracking url %q must be absolute", baseURL)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(u.String(), "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "order-tracking",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// A missing order is an answer, not an outage.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, models.ErrNotFound)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				zap.L().Warn("circuit breaker state changed",
					zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
			},
		}),
	}, nil
}

// Lookup fetches GET <baseURL>/<orderID>/. An unknown order returns
// models.ErrNotFound.
func (c *Client) Lookup(ctx context.Context, orderID string) (*Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || strings.ContainsAny(orderID, "/?#") {
		return nil, ErrInvalidOrderID
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, orderID)
	})
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return decodeOrder(orderID, body)
}

func (c *Client) fetch(ctx context.Context, orderID string) ([]byte, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(orderID) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("order %s: %w", orderID, models.ErrNotFound)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("tracking returned status %d", res.StatusCode)
	}
	return io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
}

// decodeOrder reads the production system's Portuguese field names. The id
// may come back as a number or a string.
func decodeOrder(orderID string, body []byte) (*Order, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, ErrMalformed
	}

	order := &Order{
		ID:               doc.Get("id").String(),
		CustomerName:     doc.Get("cliente_nome").String(),
		StatusName:       doc.Get("status_nome").String(),
		StatusColor:      doc.Get("status_cor").String(),
		StatusStep:       doc.Get("status_ordem").Int(),
		ExpectedDelivery: doc.Get("previsao_entrega").String(),
	}
	if order.ID == "" {
		order.ID = orderID
	}
	if order.StatusName == "" {
		order.StatusName = doc.Get("status_producao").String()
	}
	if order.StatusStep > 0 {
		order.Progress = min(order.StatusStep*20, 100)
	}
	return order, nil
}
