// Package coupon validates discount codes. Validity always comes from an
// authority (a remote endpoint or the catalog database); this package only
// normalizes codes and turns the authority's answer into a models.Coupon or a
// *Failure.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"clouddesign.com.br/storefront/pkg/models"
)

var (
	ErrEmptyCode   = errors.New("coupon code is empty")
	ErrInvalid     = errors.New("coupon is invalid or expired")
	ErrUnavailable = errors.New("coupon validation is unavailable")
	ErrMalformed   = errors.New("coupon validation response is malformed")
)

// Failure describes why a code could not be applied. Kind is one of
// ErrInvalid, ErrUnavailable or ErrMalformed and is reachable through
// errors.Is.
type Failure struct {
	Code   string
	Kind   error
	Status int
	Cause  error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("coupon %q: %v", f.Code, f.Kind)
	if f.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", f.Status)
	}
	if f.Cause != nil {
		msg += ": " + f.Cause.Error()
	}
	return msg
}

func (f *Failure) Unwrap() []error {
	if f.Cause != nil {
		return []error{f.Kind, f.Cause}
	}
	return []error{f.Kind}
}

// Validator is implemented by Client and RepositoryValidator.
type Validator interface {
	Validate(ctx context.Context, code string) (models.Coupon, error)
}

// Normalize strips every whitespace rune and upper-cases the code, so
// " save 10 " and "SAVE10" are the same coupon.
func Normalize(raw string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))
}

// RepositoryValidator checks codes against the local coupon collection.
type RepositoryValidator struct {
	repo Repository
}

type Repository interface {
	// FindActiveCoupon returns models.ErrNotFound when no active coupon
	// matches the normalized code.
	FindActiveCoupon(ctx context.Context, code string) (*models.Coupon, error)
}

func NewRepositoryValidator(repo Repository) *RepositoryValidator {
	return &RepositoryValidator{repo: repo}
}

func (v *RepositoryValidator) Validate(ctx context.Context, raw string) (models.Coupon, error) {
	code := Normalize(raw)
	if code == "" {
		return models.Coupon{}, ErrEmptyCode
	}

	found, err := v.repo.FindActiveCoupon(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return models.Coupon{}, &Failure{Code: code, Kind: ErrInvalid}
	}
	if err != nil {
		return models.Coupon{}, &Failure{Code: code, Kind: ErrUnavailable, Cause: err}
	}
	if !found.IsActive || !models.ValidPercentage(found.DiscountPercentage) {
		return models.Coupon{}, &Failure{Code: code, Kind: ErrInvalid}
	}
	return models.Coupon{Code: code, DiscountPercentage: found.DiscountPercentage, IsActive: true}, nil
}
