package coupon

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"clouddesign.com.br/storefront/pkg/models"
)

// discountKeys are the field names validation endpoints have used for the
// percentage, in lookup order.
var discountKeys = []string{"discount_percentage", "discount", "discountPercent", "percentage"}

// Decode normalizes a validation response body. The endpoint contract is
// loose, so several shapes are accepted:
//
//	{"code": "SAVE10", "discount_percentage": 10}
//	{"valid": true, "discount": "10"}
//	{"success": true, "data": {...one of the above...}}
//
// An explicit false validity flag is always a failure, and a usable
// percentage in 0..100 is always required. requested is the normalized code
// that was sent; it is used when the body does not echo a code.
func Decode(requested string, body []byte) (models.Coupon, error) {
	if !gjson.ValidBytes(body) {
		return models.Coupon{}, &Failure{Code: requested, Kind: ErrMalformed}
	}

	root := gjson.ParseBytes(body)
	if data := root.Get("data"); data.IsObject() {
		if success := root.Get("success"); success.Exists() && !success.Bool() {
			return models.Coupon{}, &Failure{Code: requested, Kind: ErrInvalid}
		}
		root = data
	}
	if !root.IsObject() {
		return models.Coupon{}, &Failure{Code: requested, Kind: ErrMalformed}
	}

	for _, flag := range []string{"valid", "is_valid", "is_active"} {
		if v := root.Get(flag); v.Exists() && !v.Bool() {
			return models.Coupon{}, &Failure{Code: requested, Kind: ErrInvalid}
		}
	}

	pct, ok := discountOf(root)
	if !ok || !models.ValidPercentage(pct) {
		return models.Coupon{}, &Failure{Code: requested, Kind: ErrInvalid}
	}

	code := Normalize(root.Get("code").String())
	if code == "" {
		code = requested
	}
	return models.Coupon{Code: code, DiscountPercentage: pct, IsActive: true}, nil
}

func discountOf(r gjson.Result) (decimal.Decimal, bool) {
	for _, key := range discountKeys {
		v := r.Get(key)
		switch v.Type {
		case gjson.Number:
			if pct, err := decimal.NewFromString(v.Raw); err == nil {
				return pct, true
			}
		case gjson.String:
			s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Str), "%"))
			if pct, err := decimal.NewFromString(s); err == nil {
				return pct, true
			}
		}
	}
	return decimal.Zero, false
}
