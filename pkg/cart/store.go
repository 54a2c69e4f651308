// Package cart is the per-session shopping cart: an ordered list of line
// items plus at most one applied coupon, persisted to an injected Storage
// after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clouddesign.com.br/storefront/pkg/coupon"
	"clouddesign.com.br/storefront/pkg/models"
)

var (
	// ErrSuperseded is returned by ApplyCoupon when a newer coupon request,
	// a coupon removal or a clear happened while this one was validating.
	// The stale result is discarded.
	ErrSuperseded = errors.New("coupon validation superseded by a newer request")
	// ErrBusy means the cart kept changing under a mutation and it gave up.
	ErrBusy = errors.New("cart is being updated concurrently")
)

// maxAttempts bounds the optimistic retries of one mutation.
const maxAttempts = 5

// Write is one atomic storage update. Keys in Guards must still hold the
// given counter value (a missing key counts as 0), otherwise nothing is
// written and models.ErrConflict is returned. Keys in Incr are incremented
// after Set and Remove are applied.
type Write struct {
	Set    map[string][]byte
	Remove []string
	Incr   []string
	Guards map[string]int64
}

// Storage is a byte-oriented key-value store. Get returns models.ErrNotFound
// for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// Incr atomically increments the counter at key and returns the new
	// value.
	Incr(ctx context.Context, key string) (int64, error)
	Commit(ctx context.Context, w Write) error
}

func ItemsKey(sessionID string) string     { return "cart:" + sessionID + ":items" }
func CouponKey(sessionID string) string    { return "cart:" + sessionID + ":coupon" }
func VersionKey(sessionID string) string   { return "cart:" + sessionID + ":version" }
func CouponSeqKey(sessionID string) string { return "cart:" + sessionID + ":coupon_seq" }

// Store owns one session's cart. Mutations through one Store are serialized
// and every mutation works on the freshly persisted cart, so Stores loaded by
// concurrent requests for the same session do not lose each other's writes.
// The coupon network call runs outside the lock.
type Store struct {
	mu        sync.Mutex
	storage   Storage
	validator coupon.Validator
	sessionID string
	state     models.CartState

	subscribers map[int]func(models.CartState)
	nextSub     int

	now   func() time.Time
	newID func() string
}

// Load builds a Store for sessionID from whatever is persisted. Unreadable
// persisted values are dropped and the cart starts empty.
func Load(ctx context.Context, storage Storage, sessionID string, validator coupon.Validator) (*Store, error) {
	s := &Store{
		storage:     storage,
		validator:   validator,
		sessionID:   sessionID,
		subscribers: make(map[int]func(models.CartState)),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	snap, err := s.read(ctx, false)
	if err != nil {
		return nil, err
	}
	s.state = snap.state
	return s, nil
}

// snapshot is the persisted cart together with the counters that guard
// writes to it.
type snapshot struct {
	state     models.CartState
	version   int64
	couponSeq int64
}

// read loads the persisted cart. The version is read first so that any write
// landing in between fails the guarded commit.
func (s *Store) read(ctx context.Context, withSeq bool) (snapshot, error) {
	snap := snapshot{state: models.CartState{Items: []models.LineItem{}}}

	var err error
	if snap.version, err = s.counter(ctx, VersionKey(s.sessionID)); err != nil {
		return snap, fmt.Errorf("load cart version: %w", err)
	}
	if withSeq {
		if snap.couponSeq, err = s.counter(ctx, CouponSeqKey(s.sessionID)); err != nil {
			return snap, fmt.Errorf("load coupon sequence: %w", err)
		}
	}

	raw, err := s.storage.Get(ctx, ItemsKey(s.sessionID))
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return snap, fmt.Errorf("load cart items: %w", err)
	default:
		var items []models.LineItem
		if err := json.Unmarshal(raw, &items); err != nil {
			zap.L().Warn("discarding unreadable cart items", zap.String("session", s.sessionID), zap.Error(err))
		} else if items != nil {
			snap.state.Items = items
		}
	}

	raw, err = s.storage.Get(ctx, CouponKey(s.sessionID))
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return snap, fmt.Errorf("load cart coupon: %w", err)
	default:
		var applied models.AppliedCoupon
		if err := json.Unmarshal(raw, &applied); err != nil || applied.Code == "" || !models.ValidPercentage(applied.DiscountPercent) {
			zap.L().Warn("discarding unreadable cart coupon", zap.String("session", s.sessionID))
		} else {
			snap.state.Coupon = &applied
		}
	}
	return snap, nil
}

func (s *Store) counter(ctx context.Context, key string) (int64, error) {
	raw, err := s.storage.Get(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) SessionID() string { return s.sessionID }

// State returns a copy of the current cart.
func (s *Store) State() models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn to receive the cart after every successful
// mutation. The returned func unregisters it.
func (s *Store) Subscribe(fn func(models.CartState)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Remove deletes the line at index. Out-of-range indexes are ignored.
func (s *Store) Remove(ctx context.Context, index int) error {
	return s.mutate(ctx, 0, func(st *models.CartState) bool {
		if index < 0 || index >= len(st.Items) {
			return false
		}
		items := make([]models.LineItem, 0, len(st.Items)-1)
		items = append(items, st.Items[:index]...)
		st.Items = append(items, st.Items[index+1:]...)
		return true
	})
}

// Clear empties the items and drops the coupon in one write. It also
// supersedes any coupon validation in flight.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.bumpCouponSeq(ctx); err != nil {
		return err
	}
	return s.mutate(ctx, 0, func(st *models.CartState) bool {
		st.Items = []models.LineItem{}
		st.Coupon = nil
		return true
	})
}

// ApplyCoupon validates raw and, on success, replaces the applied coupon. A
// failed validation clears any coupon already applied and returns the
// validation error. An empty code changes nothing.
//
// Each call takes a ticket from the session's coupon sequence in storage
// before validating. The result is written only while that ticket is still
// the latest, so a slower response never overwrites a newer request made
// through any Store of the same session.
func (s *Store) ApplyCoupon(ctx context.Context, raw string) (models.AppliedCoupon, error) {
	code := coupon.Normalize(raw)
	if code == "" {
		return models.AppliedCoupon{}, coupon.ErrEmptyCode
	}

	ticket, err := s.storage.Incr(ctx, CouponSeqKey(s.sessionID))
	if err != nil {
		return models.AppliedCoupon{}, fmt.Errorf("coupon sequence: %w", err)
	}

	found, verr := s.validator.Validate(ctx, code)

	var applied models.AppliedCoupon
	err = s.mutate(ctx, ticket, func(st *models.CartState) bool {
		if verr != nil {
			if st.Coupon == nil {
				return false
			}
			st.Coupon = nil
			return true
		}
		applied = models.AppliedCoupon{Code: found.Code, DiscountPercent: found.DiscountPercentage}
		st.Coupon = &applied
		return true
	})

	switch {
	case errors.Is(err, ErrSuperseded):
		return models.AppliedCoupon{}, err
	case verr != nil && err != nil:
		return models.AppliedCoupon{}, errors.Join(verr, err)
	case verr != nil:
		return models.AppliedCoupon{}, verr
	case err != nil:
		return models.AppliedCoupon{}, err
	}
	return applied, nil
}

// RemoveCoupon drops the applied coupon. Calling it on a cart without one is
// a no-op apart from superseding a validation in flight.
func (s *Store) RemoveCoupon(ctx context.Context) error {
	if err := s.bumpCouponSeq(ctx); err != nil {
		return err
	}
	return s.mutate(ctx, 0, func(st *models.CartState) bool {
		if st.Coupon == nil {
			return false
		}
		st.Coupon = nil
		return true
	})
}

func (s *Store) bumpCouponSeq(ctx context.Context) error {
	if _, err := s.storage.Incr(ctx, CouponSeqKey(s.sessionID)); err != nil {
		return fmt.Errorf("coupon sequence: %w", err)
	}
	return nil
}

// mutate reloads the persisted cart, applies fn and commits the result in one
// guarded write. fn reports whether it changed anything; unchanged carts are
// not written. A commit that loses to a concurrent writer is retried on the
// fresh state. A non-zero ticket must still be the session's latest coupon
// sequence or ErrSuperseded is returned. The in-memory state only moves
// forward on a successful commit.
func (s *Store) mutate(ctx context.Context, ticket int64, fn func(*models.CartState) bool) error {
	s.mu.Lock()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		snap, err := s.read(ctx, ticket != 0)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if ticket != 0 && snap.couponSeq != ticket {
			s.state = snap.state
			s.mu.Unlock()
			return ErrSuperseded
		}

		next := snap.state.Clone()
		if !fn(&next) {
			s.state = snap.state
			s.mu.Unlock()
			return nil
		}

		w, err := s.encode(next)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		w.Guards = map[string]int64{VersionKey(s.sessionID): snap.version}
		if ticket != 0 {
			w.Guards[CouponSeqKey(s.sessionID)] = ticket
		}
		w.Incr = []string{VersionKey(s.sessionID)}

		err = s.storage.Commit(ctx, w)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist cart: %w", err)
		}

		s.state = next
		published := next.Clone()
		subs := make([]func(models.CartState), 0, len(s.subscribers))
		for _, fn := range s.subscribers {
			subs = append(subs, fn)
		}
		s.mu.Unlock()

		for _, notify := range subs {
			notify(published.Clone())
		}
		return nil
	}
	s.mu.Unlock()
	return ErrBusy
}

// encode turns the cart into the write that replaces items and coupon
// together.
func (s *Store) encode(st models.CartState) (Write, error) {
	items, err := json.Marshal(st.Items)
	if err != nil {
		return Write{}, fmt.Errorf("encode cart items: %w", err)
	}
	w := Write{Set: map[string][]byte{ItemsKey(s.sessionID): items}}
	if st.Coupon == nil {
		w.Remove = []string{CouponKey(s.sessionID)}
		return w, nil
	}
	applied, err := json.Marshal(st.Coupon)
	if err != nil {
		return Write{}, fmt.Errorf("encode cart coupon: %w", err)
	}
	w.Set[CouponKey(s.sessionID)] = applied
	return w, nil
}
