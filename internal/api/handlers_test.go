package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arn384/Buy-Sell-Website/internal/auth"
	"github.com/arn384/Buy-Sell-Website/internal/models"
)

type fakeUserStore struct {
	usersByEmail map[string]*models.User
	nextID       int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{usersByEmail: make(map[string]*models.User), nextID: 1}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, exists := f.usersByEmail[user.Email]; exists {
		return nil, models.ErrEmailTaken
	}
	created := *user
	created.ID = f.nextID
	created.CreatedAt = time.Now()
	f.nextID++
	f.usersByEmail[created.Email] = &created
	return &created, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.usersByEmail[email]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

type stubOrderService struct {
	receipts []models.CheckoutReceipt
	history  models.OrderHistory
	err      error

	lastCaller int
	lastOrder  int
	lastCode   string
}

func (s *stubOrderService) Checkout(ctx context.Context, buyerID int) ([]models.CheckoutReceipt, error) {
	s.lastCaller = buyerID
	if s.err != nil {
		return nil, s.err
	}
	return s.receipts, nil
}

func (s *stubOrderService) ConfirmDelivery(ctx context.Context, callerID, orderID int, code string) error {
	s.lastCaller = callerID
	s.lastOrder = orderID
	s.lastCode = code
	return s.err
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID int) (models.OrderHistory, error) {
	s.lastCaller = userID
	if s.err != nil {
		return models.OrderHistory{}, s.err
	}
	return s.history, nil
}

type testEnv struct {
	router  *chi.Mux
	orders  *stubOrderService
	handler *Handler
}

func newTestEnv() *testEnv {
	authService := auth.NewAuthService(newFakeUserStore(), "test-secret", "iiit.ac.in")
	orders := &stubOrderService{}
	handler := NewHandler(nil, orders, authService, zap.NewNop())

	router := chi.NewRouter()
	router.Post("/auth/register", handler.Register)
	router.Post("/auth/login", handler.Login)
	router.Group(func(r chi.Router) {
		r.Use(handler.JWTAuthMiddleware)
		r.Post("/orders/place", handler.PlaceOrders)
		r.Get("/orders", handler.GetOrders)
		r.Post("/orders/complete/{orderId}", handler.CompleteOrder)
	})

	return &testEnv{router: router, orders: orders, handler: handler}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]interface{}{
		"first_name": "Asha",
		"last_name":  "Rao",
		"email":      email,
		"password":   "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegister(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name           string
		body           map[string]interface{}
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]interface{}{
				"first_name": "Asha", "last_name": "Rao",
				"email": "asha@iiit.ac.in", "password": "hunter2hunter2",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "DuplicateEmail",
			body: map[string]interface{}{
				"first_name": "Asha", "last_name": "Rao",
				"email": "asha@iiit.ac.in", "password": "hunter2hunter2",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "NonCampusEmail",
			body: map[string]interface{}{
				"first_name": "Asha", "last_name": "Rao",
				"email": "asha@gmail.com", "password": "hunter2hunter2",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "MissingName",
			body: map[string]interface{}{
				"email": "ravi@iiit.ac.in", "password": "hunter2hunter2",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv()
	env.registerAndLogin(t, "asha@iiit.ac.in")

	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "asha@iiit.ac.in",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect email or password")
}

func TestProtectedEndpoints_RequireToken(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/orders/place", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrders(t *testing.T) {
	env := newTestEnv()
	token := env.registerAndLogin(t, "asha@iiit.ac.in")
	env.orders.receipts = []models.CheckoutReceipt{
		{OrderID: 1, OTP: "042137"},
		{OrderID: 2, OTP: "900001"},
	}

	rec := env.do(t, http.MethodPost, "/orders/place", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Orders []models.CheckoutReceipt `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "042137", resp.Orders[0].OTP)
	assert.Equal(t, 1, env.orders.lastCaller)
}

func TestPlaceOrders_Errors(t *testing.T) {
	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
	}{
		{name: "OwnItem", serviceErr: models.ErrOwnItemInCart, expectedStatus: http.StatusBadRequest},
		{name: "UserNotFound", serviceErr: models.ErrUserNotFound, expectedStatus: http.StatusNotFound},
		{name: "StorageFailure", serviceErr: context.DeadlineExceeded, expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			token := env.registerAndLogin(t, "asha@iiit.ac.in")
			env.orders.err = tt.serviceErr

			rec := env.do(t, http.MethodPost, "/orders/place", token, nil)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestCompleteOrder(t *testing.T) {
	env := newTestEnv()
	token := env.registerAndLogin(t, "bob@iiit.ac.in")

	rec := env.do(t, http.MethodPost, "/orders/complete/7", token, map[string]string{"otp": "042137"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Order completed successfully")
	assert.Equal(t, 7, env.orders.lastOrder)
	assert.Equal(t, "042137", env.orders.lastCode)
	assert.Equal(t, 1, env.orders.lastCaller)
}

func TestCompleteOrder_Errors(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		serviceErr     error
		expectedStatus int
	}{
		{name: "NotFound", path: "/orders/complete/7", serviceErr: models.ErrOrderNotFound, expectedStatus: http.StatusNotFound},
		{name: "NotSeller", path: "/orders/complete/7", serviceErr: models.ErrNotOrderSeller, expectedStatus: http.StatusForbidden},
		{name: "AlreadyCompleted", path: "/orders/complete/7", serviceErr: models.ErrOrderCompleted, expectedStatus: http.StatusConflict},
		{name: "InvalidOTP", path: "/orders/complete/7", serviceErr: models.ErrInvalidOTP, expectedStatus: http.StatusBadRequest},
		{name: "InvalidOrderID", path: "/orders/complete/not-a-number", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			token := env.registerAndLogin(t, "bob@iiit.ac.in")
			env.orders.err = tt.serviceErr

			rec := env.do(t, http.MethodPost, tt.path, token, map[string]string{"otp": "042137"})
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestGetOrders(t *testing.T) {
	env := newTestEnv()
	token := env.registerAndLogin(t, "asha@iiit.ac.in")
	env.orders.history = models.OrderHistory{
		Buying:  []models.OrderView{{ID: 1, Status: models.OrderStatusPending, Amount: 100}},
		Selling: []models.OrderView{},
	}

	rec := env.do(t, http.MethodGet, "/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history models.OrderHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Buying, 1)
	assert.Empty(t, history.Selling)

	// Empty partitions serialize as arrays, not null
	assert.Contains(t, rec.Body.String(), `"selling":[]`)
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv()
	limited := chi.NewRouter()
	limited.With(LoginRateLimit(2)).Post("/auth/login", env.handler.Login)

	body := func() *bytes.Buffer {
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(map[string]string{"email": "a@iiit.ac.in", "password": "x"})
		return &buf
	}

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", body())
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusUnauthorized, codes[0])
	assert.Equal(t, http.StatusUnauthorized, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])

	// A different client is not affected
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body())
	req.RemoteAddr = "10.0.0.2:4000"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestID(t *testing.T) {
	router := chi.NewRouter()
	router.Use(RequestID(zap.NewNop()))
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	// A client-supplied id is echoed back
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "client-id-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "client-id-1", rec.Header().Get(requestIDHeader))
}
