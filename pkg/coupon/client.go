package coupon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"clouddesign.com.br/storefront/pkg/models"
)

// maxBodyBytes bounds how much of a validation response is read.
const maxBodyBytes = 64 << 10

type response struct {
	status int
	body   []byte
}

// Client validates coupons against a remote endpoint of the form
// GET <baseURL>?code=<CODE>. Transport errors and 5xx answers count against a
// circuit breaker; an invalid coupon does not.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[response]
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse coupon validation url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("coupon validation url %q must be absolute", baseURL)
	}

	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
			Name:        "coupon-validation",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				zap.L().Warn("circuit breaker state changed",
					zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
			},
		}),
	}, nil
}

func (c *Client) Validate(ctx context.Context, raw string) (models.Coupon, error) {
	code := Normalize(raw)
	if code == "" {
		return models.Coupon{}, ErrEmptyCode
	}

	resp, err := c.breaker.Execute(func() (response, error) {
		return c.fetch(ctx, code)
	})
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) {
			return models.Coupon{}, failure
		}
		return models.Coupon{}, &Failure{Code: code, Kind: ErrUnavailable, Cause: err}
	}

	if resp.status < 200 || resp.status > 299 {
		return models.Coupon{}, &Failure{Code: code, Kind: ErrInvalid, Status: resp.status}
	}
	return Decode(code, resp.body)
}

func (c *Client) fetch(ctx context.Context, code string) (response, error) {
	u := *c.baseURL
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return response{}, err
	}
	if res.StatusCode >= 500 {
		return response{}, &Failure{Code: code, Kind: ErrUnavailable, Status: res.StatusCode}
	}
	return response{status: res.StatusCode, body: body}, nil
}
