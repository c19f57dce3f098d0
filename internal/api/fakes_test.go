package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"tap_system/internal/domain"
	"tap_system/internal/frecency"
	"tap_system/internal/ledger"
	"tap_system/internal/scopes"
	"tap_system/internal/store"
	"tap_system/internal/utils"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
}

// memStore backs the handlers and the ledger with maps.
type memStore struct {
	mu       sync.Mutex
	users    map[uint]*domain.User
	products map[uint]*domain.Product
	orders   []domain.Order
	nextID   uint
	clock    time.Time
}

func newMemStore() *memStore {
	s := &memStore{
		users:    map[uint]*domain.User{},
		products: map[uint]*domain.Product{},
		clock:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	s.products[10] = &domain.Product{ID: 10, Name: "Spaghetti", Price: 350, Category: domain.CategoryFood, ForSale: true}
	s.products[11] = &domain.Product{ID: 11, Name: "Cola", Price: 120, Category: domain.CategoryDrink, ForSale: true}
	s.products[12] = &domain.Product{ID: 12, Name: "Old soup", Price: 200, Category: domain.CategoryFood, ForSale: false}
	koelkast := domain.KoelkastPreset()
	s.insert(&koelkast)
	guest := domain.GuestPreset()
	s.insert(&guest)
	return s
}

func (s *memStore) insert(u *domain.User) {
	s.nextID++
	s.clock = s.clock.Add(time.Minute)
	u.ID = s.nextID
	u.CreatedAt = s.clock
	u.UpdatedAt = s.clock
	s.users[u.ID] = u
}

// addUser creates a member with password "secret123".
func (s *memStore) addUser(t *testing.T, nickname string, admin bool) *domain.User {
	t.Helper()
	u := &domain.User{Nickname: nickname, Name: strings.ToUpper(nickname[:1]) + nickname[1:], LastName: "Test", Admin: admin}
	require.NoError(t, u.SetPassword("secret123", "secret123"))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(u)
	return u
}

func (s *memStore) user(id uint) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memStore) FindUser(_ context.Context, id uint) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindUserByNickname(_ context.Context, nickname string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Nickname == nickname {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memStore) CreateUser(_ context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Nickname == user.Nickname {
			return domain.ErrNicknameTaken
		}
	}
	cp := *user
	s.insert(&cp)
	user.ID, user.CreatedAt, user.UpdatedAt = cp.ID, cp.CreatedAt, cp.UpdatedAt
	return nil
}

func (s *memStore) UpdateProfile(_ context.Context, userID uint, changes map[string]any) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	for k, v := range changes {
		switch k {
		case "avatar":
			u.Avatar = v.(string)
		case "private":
			u.Private = v.(bool)
		case "quickpay_hidden":
			u.QuickpayHidden = v.(bool)
		case "dagschotel_id":
			if id, ok := v.(uint); ok {
				u.DagschotelID = &id
			} else {
				u.DagschotelID = nil
			}
		}
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) ListUsers(_ context.Context, q store.UserQuery) ([]domain.User, int64, error) {
	s.mu.Lock()
	all := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, *u)
	}
	s.mu.Unlock()

	switch q.Scope {
	case "", "members":
		all = scopes.FilterMembers(all)
	case "publik":
		all = scopes.FilterPublik(all)
	}
	sort.Slice(all, func(i, j int) bool {
		if q.ByFrecency && all[i].Frecency != all[j].Frecency {
			return all[i].Frecency > all[j].Frecency
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	total := int64(len(all))
	if q.Limit > 0 {
		if q.Offset >= len(all) {
			return []domain.User{}, total, nil
		}
		all = all[q.Offset:]
		if len(all) > q.Limit {
			all = all[:q.Limit]
		}
	}
	return all, total, nil
}

func (s *memStore) Guest(ctx context.Context) (*domain.User, error) {
	return s.FindUserByNickname(ctx, domain.GuestNickname)
}

func (s *memStore) FindProduct(_ context.Context, id uint) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) ProductsForSale(context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Product
	for _, p := range s.products {
		if p.ForSale {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) CreateProduct(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	product.ID = uint(100 + len(s.products))
	cp := *product
	s.products[cp.ID] = &cp
	return nil
}

func (s *memStore) CommitOrder(_ context.Context, order *domain.Order, recent int, score ledger.ScoreFunc) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[order.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	order.ID = uint(len(s.orders) + 1)
	s.orders = append(s.orders, *order)
	var times []time.Time
	for _, o := range s.orders {
		if o.UserID == u.ID {
			times = append(times, o.CreatedAt)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].After(times[j]) })
	if len(times) > recent {
		times = times[:recent]
	}
	u.OrdersCount++
	u.Balance -= order.Total()
	u.Frecency = score(times)
	cp := *u
	return &cp, nil
}

func (s *memStore) Pay(_ context.Context, userID uint, amount int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Balance -= amount
	cp := *u
	return &cp, nil
}

// memCache is a ResponseCache holding JSON documents.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// fixedBalances answers every lookup with the same result.
type fixedBalances struct {
	mu      sync.Mutex
	balance int64
	known   bool
	calls   int
}

func (f *fixedBalances) FetchBalance(context.Context, uint, string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.balance, f.known
}

type harness struct {
	store    *memStore
	cache    *memCache
	balances *fixedBalances
	router   *gin.Engine
}

func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		store:    newMemStore(),
		cache:    newMemCache(),
		balances: &fixedBalances{balance: 1234, known: true},
	}
	l := ledger.New(h.store, frecency.Default())
	d := Deps{
		Users:     h.store,
		Products:  h.store,
		Ledger:    l,
		Balances:  h.balances,
		Cache:     h.cache,
		JWTSecret: secret,
	}
	for _, opt := range opts {
		opt(&d)
	}
	h.router = NewRouter(d)
	return h
}

func (h *harness) token(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, err := utils.GenerateJWT(u.ID, u.Nickname, secret, time.Now())
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func nicknames(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Users []struct {
			Nickname string `json:"nickname"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	out := make([]string, len(body.Users))
	for i, u := range body.Users {
		out[i] = u.Nickname
	}
	return out
}
