// Package store is the MySQL persistence of users, products and orders.
package store

import (
	"context" // Request context
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"time"    // Order timestamps

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Row locking

	"tap_system/internal/domain" // Domain models
	"tap_system/internal/ledger" // Ledger store contract
	"tap_system/internal/scopes" // Membership scopes
)

// Store implements ledger.Store and the lookups used by the API on top of GORM
type Store struct {
	db *gorm.DB // Database handle
}

// New creates a Store
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ ledger.Store = (*Store)(nil)

// FindUser loads a user by primary key
func (s *Store) FindUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

// FindUserByNickname loads a user by nickname
func (s *Store) FindUserByNickname(ctx context.Context, nickname string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("nickname = ?", nickname).First(&user).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

// CreateUser validates and inserts a user
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	var taken int64
	// Check nickname uniqueness before relying on the unique index
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("nickname = ?", user.Nickname).Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return domain.ErrNicknameTaken
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrNicknameTaken // Lost a race on the unique index
		}
		return err
	}
	return nil
}

// UpdateProfile stores the editable profile attributes of a user
func (s *Store) UpdateProfile(ctx context.Context, userID uint, changes map[string]any) (*domain.User, error) {
	if len(changes) > 0 {
		res := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(changes)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return s.FindUser(ctx, userID)
}

// UserQuery selects a listing of users
type UserQuery struct {
	Scope      string // "members" (default), "publik" or "all"
	ByFrecency bool   // Rank by frecency instead of creation order
	Offset     int    // Rows to skip
	Limit      int    // Page size, 0 for everything
}

// ListUsers returns the users selected by q and the total count before pagination
func (s *Store) ListUsers(ctx context.Context, q UserQuery) ([]domain.User, int64, error) {
	filter, ok := scopes.Named(q.Scope)
	if !ok {
		return nil, 0, fmt.Errorf("unknown scope %q", q.Scope)
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := scopes.CreationOrder
	if q.ByFrecency {
		order = scopes.ByFrecency
	}
	query := s.db.WithContext(ctx).Scopes(filter, order)
	if q.Limit > 0 {
		query = query.Offset(q.Offset).Limit(q.Limit)
	}
	var users []domain.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Members lists every user except the koelkast, in creation order
func (s *Store) Members(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.db.WithContext(ctx).Scopes(scopes.Members).Find(&users).Error
	return users, err
}

// Publik lists the users that did not opt out of public listings, in creation order
func (s *Store) Publik(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.db.WithContext(ctx).Scopes(scopes.Publik).Find(&users).Error
	return users, err
}

// Koelkast returns the shared fridge account, creating it on first use
func (s *Store) Koelkast(ctx context.Context) (*domain.User, error) {
	return s.preset(ctx, domain.KoelkastPreset())
}

// Guest returns the fallback guest account, creating it on first use
func (s *Store) Guest(ctx context.Context) (*domain.User, error) {
	return s.preset(ctx, domain.GuestPreset())
}

// preset is an idempotent get-or-create keyed on nickname
func (s *Store) preset(ctx context.Context, attrs domain.User) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).
		Where(domain.User{Nickname: attrs.Nickname}).
		Attrs(attrs).
		FirstOrCreate(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another request created it first
		err = s.db.WithContext(ctx).Where("nickname = ?", attrs.Nickname).First(&user).Error
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindProduct loads a product by primary key
func (s *Store) FindProduct(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, notFound(err, domain.ErrProductNotFound)
	}
	return &product, nil
}

// ProductsForSale returns the orderable catalog grouped by category then name
func (s *Store) ProductsForSale(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := s.db.WithContext(ctx).Where("for_sale = ?", true).Order("category ASC, name ASC").Find(&products).Error
	return products, err
}

// CreateProduct inserts a product
func (s *Store) CreateProduct(ctx context.Context, product *domain.Product) error {
	return s.db.WithContext(ctx).Create(product).Error
}

// CommitOrder implements ledger.Store
func (s *Store) CommitOrder(ctx context.Context, order *domain.Order, recent int, score ledger.ScoreFunc) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the owner so concurrent orders serialize on it
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, order.UserID).Error; err != nil {
			return notFound(err, domain.ErrUserNotFound)
		}
		// Insert the order with its items
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		var times []time.Time // Creation times of the newest orders
		if err := tx.Model(&domain.Order{}).
			Where("user_id = ?", user.ID).
			Order("created_at DESC").
			Limit(recent).
			Pluck("created_at", &times).Error; err != nil {
			return err
		}
		// Counter and balance change in SQL, frecency from the fresh history
		if err := tx.Model(&user).Updates(map[string]any{
			"orders_count": gorm.Expr("orders_count + ?", 1),
			"balance":      gorm.Expr("balance - ?", order.Total()),
			"frecency":     score(times),
		}).Error; err != nil {
			return err
		}
		return tx.First(&user, user.ID).Error // Reload the committed values
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Pay implements ledger.Store
func (s *Store) Pay(ctx context.Context, userID uint, amount int64) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			return notFound(err, domain.ErrUserNotFound)
		}
		// No floor: the balance may go negative
		if err := tx.Model(&user).Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
			return err
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// notFound maps gorm.ErrRecordNotFound to sentinel
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
