// Package orders implements the order workflow: cart checkout, OTP-verified
// delivery confirmation, and per-role order history.
package orders

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/arn384/Buy-Sell-Website/internal/models"
	"github.com/arn384/Buy-Sell-Website/internal/otp"
)

// Store is the persistence surface the workflow needs. Methods called inside
// the WithTx callback share a single storage transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	UserExists(ctx context.Context, userID int) (bool, error)
	CartItems(ctx context.Context, userID int) ([]models.Item, error)
	ClearCart(ctx context.Context, userID int) error
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID int) (*models.Order, error)
	CompleteOrder(ctx context.Context, orderID int) error
	OrdersByBuyer(ctx context.Context, userID int) ([]models.OrderView, error)
	OrdersBySeller(ctx context.Context, userID int) ([]models.OrderView, error)
}

// Service runs the order workflow against a Store
type Service struct {
	store Store
}

// NewService creates a new order service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Checkout converts the buyer's cart into one pending order per item and
// clears the cart, all in a single transaction. The returned receipts carry
// the only copy of each plaintext delivery code; items deleted since being
// carted are skipped, and a cart holding the buyer's own listing aborts the
// whole checkout.
func (s *Service) Checkout(ctx context.Context, buyerID int) ([]models.CheckoutReceipt, error) {
	receipts := []models.CheckoutReceipt{}

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		exists, err := s.store.UserExists(txCtx, buyerID)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrUserNotFound
		}

		items, err := s.store.CartItems(txCtx, buyerID)
		if err != nil {
			return err
		}

		for _, item := range items {
			if item.SellerID == buyerID {
				return models.ErrOwnItemInCart
			}

			code, err := otp.GenerateCode()
			if err != nil {
				return err
			}
			hash, err := otp.Hash(code)
			if err != nil {
				return err
			}

			order := &models.Order{
				TransactionID: newTransactionID(),
				BuyerID:       buyerID,
				SellerID:      item.SellerID,
				ItemID:        item.ID,
				Amount:        item.Price,
				Status:        models.OrderStatusPending,
				OTPHash:       hash,
			}
			created, err := s.store.CreateOrder(txCtx, order)
			if err != nil {
				return err
			}

			receipts = append(receipts, models.CheckoutReceipt{
				OrderID: created.ID,
				OTP:     code,
			})
		}

		return s.store.ClearCart(txCtx, buyerID)
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// ConfirmDelivery verifies a delivery code against an order and marks it
// completed. Only the order's seller may confirm; a completed order is
// rejected before the code is even compared, and the status flip itself is
// conditional on the order still being pending so concurrent confirms cannot
// both succeed.
func (s *Service) ConfirmDelivery(ctx context.Context, callerID, orderID int, code string) error {
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.store.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if order.SellerID != callerID {
			return models.ErrNotOrderSeller
		}
		if order.Status == models.OrderStatusCompleted {
			return models.ErrOrderCompleted
		}
		if !otp.Verify(code, order.OTPHash) {
			return models.ErrInvalidOTP
		}
		return s.store.CompleteOrder(txCtx, orderID)
	})
}

// ListOrders returns the user's orders partitioned by role
func (s *Service) ListOrders(ctx context.Context, userID int) (models.OrderHistory, error) {
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return models.OrderHistory{}, err
	}
	if !exists {
		return models.OrderHistory{}, models.ErrUserNotFound
	}

	buying, err := s.store.OrdersByBuyer(ctx, userID)
	if err != nil {
		return models.OrderHistory{}, fmt.Errorf("failed to list buying orders: %w", err)
	}
	selling, err := s.store.OrdersBySeller(ctx, userID)
	if err != nil {
		return models.OrderHistory{}, fmt.Errorf("failed to list selling orders: %w", err)
	}

	// Empty partitions render as [] rather than null
	if buying == nil {
		buying = []models.OrderView{}
	}
	if selling == nil {
		selling = []models.OrderView{}
	}
	return models.OrderHistory{Buying: buying, Selling: selling}, nil
}

const txnIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newTransactionID returns the short shareable token that identifies a
// transaction to humans, distinct from the row id.
func newTransactionID() string {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	for i := range b {
		b[i] = txnIDAlphabet[int(b[i])%len(txnIDAlphabet)]
	}
	return string(b)
}
