package store_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tap_system/internal/db"
	"tap_system/internal/domain"
	"tap_system/internal/frecency"
	"tap_system/internal/ledger"
	"tap_system/internal/store"
)

// openTestDB connects to the MySQL named by TAP_TEST_MYSQL_DSN and empties it.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TAP_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TAP_TEST_MYSQL_DSN not set")
	}
	conn, err := db.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, conn.Migrator().DropTable(&domain.OrderItem{}, &domain.Order{}, &domain.User{}, &domain.Product{}))
	require.NoError(t, db.Migrate(context.Background(), conn))
	return conn
}

func createUser(t *testing.T, s *store.Store, nickname string, private bool) *domain.User {
	t.Helper()
	u := &domain.User{Nickname: nickname, Name: nickname, LastName: "Test", Private: private}
	require.NoError(t, u.SetPassword("password", "password"))
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func createProduct(t *testing.T, s *store.Store) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: "Spaghetti", Price: 350, Category: domain.CategoryFood, ForSale: true}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestStore_PresetsAreIdempotent(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()

	k1, err := s.Koelkast(ctx)
	require.NoError(t, err)
	k2, err := s.Koelkast(ctx)
	require.NoError(t, err)
	assert.Equal(t, k1.ID, k2.ID)
	assert.True(t, k1.Koelkast)
	assert.False(t, k1.Admin)

	g, err := s.Guest(ctx)
	require.NoError(t, err)
	assert.True(t, g.IsGuest())
	assert.False(t, g.Admin)
	assert.False(t, g.Private)
}

func TestStore_NicknameUnique(t *testing.T) {
	s := store.New(openTestDB(t))
	createUser(t, s, "jan", false)

	dup := &domain.User{Nickname: "jan", Name: "Other", LastName: "Jan"}
	assert.ErrorIs(t, s.CreateUser(context.Background(), dup), domain.ErrNicknameTaken)
}

func TestStore_Scopes(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()

	first := createUser(t, s, "first", false)
	second := createUser(t, s, "second", false)
	createUser(t, s, "hidden", true)

	publik, err := s.Publik(ctx)
	require.NoError(t, err)
	var names []string
	for _, u := range publik {
		names = append(names, u.Nickname)
	}
	// The guest preset is public and was seeded first.
	assert.Equal(t, []string{domain.GuestNickname, first.Nickname, second.Nickname}, names)

	members, err := s.Members(ctx)
	require.NoError(t, err)
	for _, u := range members {
		assert.False(t, u.Koelkast)
	}
	assert.Len(t, members, 4)
}

func TestStore_CommitOrderThroughLedger(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()
	user := createUser(t, s, "jan", false)
	product := createProduct(t, s)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	now := today.Add(-24 * time.Hour)
	l := ledger.New(s, frecency.Default(), ledger.WithClock(func() time.Time { return now }))

	_, err := l.PlaceOrder(ctx, user.ID, product.ID, 1)
	require.NoError(t, err)
	now = today
	_, err = l.PlaceOrder(ctx, user.ID, product.ID, 2)
	require.NoError(t, err)

	got, err := s.FindUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.OrdersCount)
	assert.Equal(t, int64(-3*350), got.Balance)
	assert.InDelta(t, 10025915, got.Frecency, 50)
}

func TestStore_ConcurrentOrders(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()
	user := createUser(t, s, "jan", false)
	product := createProduct(t, s)
	l := ledger.New(s, frecency.Default())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.PlaceOrder(ctx, user.ID, product.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.FindUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.OrdersCount)
	assert.Equal(t, int64(-n*350), got.Balance)
}

func TestStore_PayUnknownUser(t *testing.T) {
	s := store.New(openTestDB(t))
	_, err := s.Pay(context.Background(), 12345, 10)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
