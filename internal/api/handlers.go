package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/arn384/Buy-Sell-Website/internal/auth"
	"github.com/arn384/Buy-Sell-Website/internal/db"
	"github.com/arn384/Buy-Sell-Website/internal/models"
)

// OrderService is the order workflow surface the handlers call
type OrderService interface {
	Checkout(ctx context.Context, buyerID int) ([]models.CheckoutReceipt, error)
	ConfirmDelivery(ctx context.Context, callerID, orderID int, code string) error
	ListOrders(ctx context.Context, userID int) (models.OrderHistory, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	DB          *db.DB
	Orders      OrderService
	AuthService *auth.AuthService
	Logger      *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(database *db.DB, orders OrderService, authService *auth.AuthService, logger *zap.Logger) *Handler {
	return &Handler{DB: database, Orders: orders, AuthService: authService, Logger: logger}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName     string `json:"first_name"`
		LastName      string `json:"last_name"`
		Email         string `json:"email"`
		Age           int    `json:"age"`
		ContactNumber string `json:"contact_number"`
		Password      string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Register(r.Context(), auth.RegisterInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Age:           req.Age,
		ContactNumber: req.ContactNumber,
		Password:      req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmailTaken):
			http.Error(w, `{"error": "User already exists"}`, http.StatusConflict)
		case errors.Is(err, models.ErrInvalidEmail):
			http.Error(w, `{"error": "Email must be a campus address"}`, http.StatusBadRequest)
		default:
			h.Logger.Warn("registration failed", zap.Error(err))
			http.Error(w, `{"error": "Failed to register user"}`, http.StatusBadRequest)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	token, user, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, `{"error": "Incorrect email or password"}`, http.StatusUnauthorized)
			return
		}
		h.Logger.Error("login failed", zap.Error(err))
		http.Error(w, `{"error": "Failed to log in"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": token,
		"user":  profilePayload(user),
	})
}

func profilePayload(user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"email":          user.Email,
		"age":            user.Age,
		"contact_number": user.ContactNumber,
	}
}

// GetProfile returns the caller's display fields
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.DB.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			http.Error(w, `{"error": "User not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("failed to get profile", zap.Error(err))
		http.Error(w, `{"error": "Failed to retrieve profile"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(profilePayload(user))
}

// UpdateProfile updates the caller's display fields
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		FirstName     string `json:"first_name"`
		LastName      string `json:"last_name"`
		Age           int    `json:"age"`
		ContactNumber string `json:"contact_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	user, err := h.DB.UpdateProfile(r.Context(), userID, req.FirstName, req.LastName, req.Age, req.ContactNumber)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			http.Error(w, `{"error": "User not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("failed to update profile", zap.Error(err))
		http.Error(w, `{"error": "Failed to update profile"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(profilePayload(user))
}

// ListItems returns browsable listings, excluding the caller's own
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	search := r.URL.Query().Get("search")
	var categories []string
	if raw := r.URL.Query().Get("categories"); raw != "" {
		categories = strings.Split(raw, ",")
	}

	items, err := h.DB.ListItems(r.Context(), userID, search, categories)
	if err != nil {
		h.Logger.Error("failed to list items", zap.Error(err))
		http.Error(w, `{"error": "Failed to retrieve items"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(items)
}

// GetItem returns a single listing
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "Invalid item ID"}`, http.StatusBadRequest)
		return
	}

	item, err := h.DB.GetItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, models.ErrItemNotFound) {
			http.Error(w, `{"error": "Item not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("failed to get item", zap.Error(err))
		http.Error(w, `{"error": "Failed to retrieve item"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(item)
}

// AddToCart puts an item in the caller's cart
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		ItemID int `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := h.DB.AddToCart(r.Context(), userID, req.ItemID); err != nil {
		if errors.Is(err, models.ErrItemNotFound) {
			http.Error(w, `{"error": "Item not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("failed to add to cart", zap.Error(err))
		http.Error(w, `{"error": "Failed to add to cart"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Item added to cart"})
}

// GetCart returns the caller's cart contents
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	items, err := h.DB.CartItems(r.Context(), userID)
	if err != nil {
		h.Logger.Error("failed to get cart", zap.Error(err))
		http.Error(w, `{"error": "Failed to retrieve cart"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(items)
}

// RemoveFromCart takes an item out of the caller's cart
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	itemID, err := strconv.Atoi(chi.URLParam(r, "itemId"))
	if err != nil {
		http.Error(w, `{"error": "Invalid item ID"}`, http.StatusBadRequest)
		return
	}

	if err := h.DB.RemoveFromCart(r.Context(), userID, itemID); err != nil {
		h.Logger.Error("failed to remove from cart", zap.Error(err))
		http.Error(w, `{"error": "Failed to remove from cart"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Item removed from cart"})
}

// PlaceOrders converts the caller's cart into orders and returns the
// one-time delivery codes, each surfaced here exactly once.
func (h *Handler) PlaceOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	receipts, err := h.Orders.Checkout(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUserNotFound):
			http.Error(w, `{"error": "User not found"}`, http.StatusNotFound)
		case errors.Is(err, models.ErrOwnItemInCart):
			http.Error(w, `{"error": "Cannot order your own item"}`, http.StatusBadRequest)
		default:
			h.Logger.Error("checkout failed", zap.Error(err), zap.Int("buyer_id", userID))
			http.Error(w, `{"error": "Failed to place orders"}`, http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{"orders": receipts})
}

// GetOrders retrieves the caller's orders, split by role
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	history, err := h.Orders.ListOrders(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			http.Error(w, `{"error": "User not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("failed to list orders", zap.Error(err), zap.Int("user_id", userID))
		http.Error(w, `{"error": "Failed to retrieve orders"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(history)
}

// CompleteOrder verifies a delivery code and finalizes the order
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	orderID, err := strconv.Atoi(chi.URLParam(r, "orderId"))
	if err != nil {
		http.Error(w, `{"error": "Invalid order ID"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		OTP string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := h.Orders.ConfirmDelivery(r.Context(), userID, orderID, req.OTP); err != nil {
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			http.Error(w, `{"error": "Order not found"}`, http.StatusNotFound)
		case errors.Is(err, models.ErrNotOrderSeller):
			http.Error(w, `{"error": "Only the seller can complete this order"}`, http.StatusForbidden)
		case errors.Is(err, models.ErrOrderCompleted):
			http.Error(w, `{"error": "Order already completed"}`, http.StatusConflict)
		case errors.Is(err, models.ErrInvalidOTP):
			http.Error(w, `{"error": "Invalid OTP"}`, http.StatusBadRequest)
		default:
			h.Logger.Error("order completion failed", zap.Error(err), zap.Int("order_id", orderID))
			http.Error(w, `{"error": "Failed to complete order"}`, http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Order completed successfully"})
}
