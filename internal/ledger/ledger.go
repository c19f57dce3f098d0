// Package ledger places orders and charges them to user balances.
//
// An order, the orders_count increment, the balance decrement and the
// frecency recomputation are committed together by the Store or not at all.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tap_system/internal/domain"
	"tap_system/internal/frecency"
	"tap_system/internal/metrics"
)

// ScoreFunc turns the creation times of a user's most recent orders into a frecency score.
type ScoreFunc func(orderTimes []time.Time) int64

// Store is the transactional persistence the ledger needs.
type Store interface {
	FindProduct(ctx context.Context, id uint) (*domain.Product, error)
	// CommitOrder inserts order and, with the owner locked, increments its
	// orders_count, subtracts order.Total() from its balance and stores
	// score(times of its `recent` newest orders) as its frecency.
	CommitOrder(ctx context.Context, order *domain.Order, recent int, score ScoreFunc) (*domain.User, error)
	// Pay subtracts amount from the balance of userID without a floor.
	Pay(ctx context.Context, userID uint, amount int64) (*domain.User, error)
}

// Invalidator drops cached balances after they change.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uint)
}

// Ledger places orders.
type Ledger struct {
	store    Store
	scorer   frecency.Scorer
	balances Invalidator
	metrics  metrics.Recorder
	log      logrus.FieldLogger
	now      func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithInvalidator invalidates cached balances after every charge.
func WithInvalidator(inv Invalidator) Option { return func(l *Ledger) { l.balances = inv } }

// WithMetrics reports outcomes to r.
func WithMetrics(r metrics.Recorder) Option { return func(l *Ledger) { l.metrics = r } }

// WithLogger replaces the standard logrus logger.
func WithLogger(log logrus.FieldLogger) Option { return func(l *Ledger) { l.log = log } }

// WithClock sets the time source used for order timestamps and frecency.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// New creates a Ledger.
func New(store Store, scorer frecency.Scorer, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		scorer:  scorer,
		metrics: metrics.Nop{},
		log:     logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PlaceOrder creates an order of count units of productID for userID and charges it.
// Validation failures are returned as *ValidationError and leave everything untouched.
func (l *Ledger) PlaceOrder(ctx context.Context, userID, productID uint, count int) (*domain.Order, error) {
	if err := validateCount(count); err != nil {
		return nil, l.reject(userID, err)
	}
	product, err := l.store.FindProduct(ctx, productID)
	if errors.Is(err, domain.ErrProductNotFound) {
		return nil, l.reject(userID, &ValidationError{Field: "product", Message: "Product must exist"})
	}
	if err != nil {
		l.metrics.OrderFailed()
		return nil, fmt.Errorf("find product %d: %w", productID, err)
	}
	if err := validateProduct(product); err != nil {
		return nil, l.reject(userID, err)
	}

	createdAt := l.now()
	order := &domain.Order{
		UserID:    userID,
		CreatedAt: createdAt,
		Items: []domain.OrderItem{{
			ProductID: product.ID,
			Count:     count,
			Price:     product.Price,
		}},
	}
	score := func(times []time.Time) int64 { return l.scorer.Compute(times, createdAt) }

	user, err := l.store.CommitOrder(ctx, order, l.scorer.NumOrders, score)
	if err != nil {
		l.metrics.OrderFailed()
		l.log.WithFields(logrus.Fields{
			"user_id":    userID,
			"product_id": productID,
			"count":      count,
			"error":      err.Error(),
		}).Error("Order failed")
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("commit order: %w", err)
	}

	l.metrics.OrderPlaced(order.Total())
	l.invalidate(ctx, userID)
	l.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"order_id":     order.ID,
		"product_id":   productID,
		"count":        count,
		"amount":       order.Total(),
		"balance":      user.Balance,
		"orders_count": user.OrdersCount,
		"frecency":     user.Frecency,
		"timestamp":    createdAt.Format(time.RFC3339),
	}).Info("Order placed")
	return order, nil
}

// Quickpay orders one unit of the user's dagschotel.
func (l *Ledger) Quickpay(ctx context.Context, user *domain.User) (*domain.Order, error) {
	if user.DagschotelID == nil {
		return nil, l.reject(user.ID, &ValidationError{Field: "product", Message: "Product can't be blank"})
	}
	return l.PlaceOrder(ctx, user.ID, *user.DagschotelID, 1)
}

// Pay subtracts amount from the balance of userID. The balance may become negative.
func (l *Ledger) Pay(ctx context.Context, userID uint, amount int64) (*domain.User, error) {
	user, err := l.store.Pay(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("pay %d for user %d: %w", amount, userID, err)
	}
	l.invalidate(ctx, userID)
	l.log.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
		"balance": user.Balance,
	}).Info("Payment")
	return user, nil
}

func (l *Ledger) reject(userID uint, err *ValidationError) error {
	l.metrics.OrderRejected(err.Field)
	l.log.WithFields(logrus.Fields{"user_id": userID, "reason": err.Message}).Info("Order rejected")
	return err
}

func (l *Ledger) invalidate(ctx context.Context, userID uint) {
	if l.balances != nil {
		l.balances.Invalidate(ctx, userID)
	}
}
