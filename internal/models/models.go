package models

import "time"

// User represents a registered campus user
type User struct {
	ID            int       `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Age           int       `json:"age"`
	ContactNumber string    `json:"contact_number"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Item represents a listing put up for sale by a user
type Item struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	SellerID    int     `json:"seller_id"`
	// Seller display fields, populated on reads that join users
	SellerFirstName string `json:"seller_first_name,omitempty"`
	SellerLastName  string `json:"seller_last_name,omitempty"`
	SellerEmail     string `json:"seller_email,omitempty"`
}

// Order represents a single buyer/seller/item transaction.
// OTPHash holds only the bcrypt hash of the delivery code; the plaintext
// code is surfaced once at checkout and never stored.
type Order struct {
	ID            int       `json:"id"`
	TransactionID string    `json:"transaction_id"`
	BuyerID       int       `json:"buyer_id"`
	SellerID      int       `json:"seller_id"`
	ItemID        int       `json:"item_id"`
	Amount        float64   `json:"amount"` // price snapshot at checkout
	Status        string    `json:"status"` // "pending" or "completed"
	OTPHash       string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// UserSummary carries the display fields of a counterparty
type UserSummary struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// ItemSummary carries the display fields of an ordered item
type ItemSummary struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// OrderView is an order enriched for history listings: the item and the
// counterparty (seller for the buying partition, buyer for the selling one)
type OrderView struct {
	ID            int         `json:"id"`
	TransactionID string      `json:"transaction_id"`
	Amount        float64     `json:"amount"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	Item          ItemSummary `json:"item"`
	Counterparty  UserSummary `json:"counterparty"`
}

// OrderHistory partitions a user's orders by role
type OrderHistory struct {
	Buying  []OrderView `json:"buying"`
	Selling []OrderView `json:"selling"`
}

// CheckoutReceipt pairs a freshly created order with its plaintext delivery
// code. The code appears here and nowhere else.
type CheckoutReceipt struct {
	OrderID int    `json:"order_id"`
	OTP     string `json:"otp"`
}
