package checkout

import (
	"context"
	"errors"
	"fmt"

	"clouddesign.com.br/storefront/pkg/cart"
	"clouddesign.com.br/storefront/pkg/models"
)

// Step is a position in the checkout flow.
type Step string

const (
	StepCart           Step = "cart"
	StepIdentification Step = "identification"
	StepDispatched     Step = "dispatched"
)

var ErrInvalidTransition = errors.New("invalid checkout transition")

func StepKey(sessionID string) string { return "checkout:" + sessionID + ":step" }
func CustomerNameKey(sessionID string) string { return "customer:" + sessionID + ":name" }
func CustomerPhoneKey(sessionID string) string { return "customer:" + sessionID + ":phone" }

// Dispatch is what the storefront hands to the customer's browser once the
// order is ready to be sent.
type Dispatch struct {
	Message string  `json:"message"`
	Link    string  `json:"link"`
	Summary Summary `json:"summary"`
}

// Flow walks a session through cart -> identification -> dispatched. Going
// back from identification to cart is allowed until the order is
// dispatched. Dispatching never clears the cart.
type Flow struct {
	storage   cart.Storage
	sessionID string
	step      Step
	customer  models.Customer
}

// LoadFlow restores the session's step and the customer details saved by
// the last dispatch, if any.
func LoadFlow(ctx context.Context, storage cart.Storage, sessionID string) (*Flow, error) {
	f := &Flow{storage: storage, sessionID: sessionID, step: StepCart}

	step, err := f.get(ctx, StepKey(sessionID))
	if err != nil {
		return nil, err
	}
	switch Step(step) {
	case StepIdentification, StepDispatched:
		f.step = Step(step)
	}

	if f.customer.Name, err = f.get(ctx, CustomerNameKey(sessionID)); err != nil {
		return nil, err
	}
	if f.customer.Phone, err = f.get(ctx, CustomerPhoneKey(sessionID)); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Flow) Step() Step { return f.step }

// Customer returns the name and phone to pre-fill the identification form.
func (f *Flow) Customer() models.Customer { return f.customer }

// Identify moves from cart to identification. The cart must not be empty.
func (f *Flow) Identify(ctx context.Context, state models.CartState) error {
	switch f.step {
	case StepIdentification:
		return nil
	case StepDispatched:
		return fmt.Errorf("%w: order already dispatched", ErrInvalidTransition)
	}
	if len(state.Items) == 0 {
		return ErrEmptyCart
	}
	return f.setStep(ctx, StepIdentification)
}

// Back returns from identification to the cart.
func (f *Flow) Back(ctx context.Context) error {
	switch f.step {
	case StepCart:
		return nil
	case StepDispatched:
		return fmt.Errorf("%w: order already dispatched", ErrInvalidTransition)
	}
	return f.setStep(ctx, StepCart)
}

// Reset starts a new order from the cart step.
func (f *Flow) Reset(ctx context.Context) error {
	if f.step == StepCart {
		return nil
	}
	return f.setStep(ctx, StepCart)
}

// Dispatch validates the customer, builds the order message and link, and
// marks the flow dispatched. On any validation failure nothing is stored.
func (f *Flow) Dispatch(ctx context.Context, shop models.CompanyConfig, state models.CartState, summary Summary, customer models.Customer) (Dispatch, error) {
	if f.step != StepIdentification {
		return Dispatch{}, fmt.Errorf("%w: identify before dispatching (step %s)", ErrInvalidTransition, f.step)
	}
	if len(state.Items) == 0 {
		return Dispatch{}, ErrEmptyCart
	}

	customer = customer.Trimmed()
	msg, err := FormatMessage(shop.Name, state, summary, customer)
	if err != nil {
		return Dispatch{}, err
	}
	link, err := WhatsAppLink(shop.WhatsApp, msg)
	if err != nil {
		return Dispatch{}, err
	}

	if err := f.storage.Set(ctx, CustomerNameKey(f.sessionID), []byte(customer.Name)); err != nil {
		return Dispatch{}, fmt.Errorf("save customer name: %w", err)
	}
	if err := f.storage.Set(ctx, CustomerPhoneKey(f.sessionID), []byte(customer.Phone)); err != nil {
		return Dispatch{}, fmt.Errorf("save customer phone: %w", err)
	}
	f.customer = customer

	if err := f.setStep(ctx, StepDispatched); err != nil {
		return Dispatch{}, err
	}
	return Dispatch{Message: msg, Link: link, Summary: summary}, nil
}

func (f *Flow) setStep(ctx context.Context, step Step) error {
	if err := f.storage.Set(ctx, StepKey(f.sessionID), []byte(step)); err != nil {
		return fmt.Errorf("save checkout step: %w", err)
	}
	f.step = step
	return nil
}

func (f *Flow) get(ctx context.Context, key string) (string, error) {
	raw, err := f.storage.Get(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return string(raw), nil
}
