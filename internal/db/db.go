package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arn384/Buy-Sell-Website/internal/models"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close(ctx context.Context) error {
	db.Pool.Close()
	return nil
}

type txKey struct{}

// WithTx runs fn inside a single transaction. Store methods called with the
// context fn receives join that transaction; a nested call reuses the outer
// one.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (db *DB) conn(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db.Pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	created := &models.User{}
	err := db.conn(ctx).QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, email, age, contact_number, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, first_name, last_name, email, age, contact_number, password_hash, created_at`,
		user.FirstName, user.LastName, user.Email, user.Age, user.ContactNumber, user.PasswordHash).Scan(
		&created.ID, &created.FirstName, &created.LastName, &created.Email,
		&created.Age, &created.ContactNumber, &created.PasswordHash, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// GetUserByEmail retrieves a user by email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := db.conn(ctx).QueryRow(ctx,
		`SELECT id, first_name, last_name, email, age, contact_number, password_hash, created_at
		 FROM users WHERE email = $1`,
		email).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.Age, &user.ContactNumber, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by id
func (db *DB) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	user := &models.User{}
	err := db.conn(ctx).QueryRow(ctx,
		`SELECT id, first_name, last_name, email, age, contact_number, password_hash, created_at
		 FROM users WHERE id = $1`,
		userID).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.Age, &user.ContactNumber, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UserExists reports whether a user with the given id exists
func (db *DB) UserExists(ctx context.Context, userID int) (bool, error) {
	var exists bool
	err := db.conn(ctx).QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile updates a user's display fields and returns the new state
func (db *DB) UpdateProfile(ctx context.Context, userID int, firstName, lastName string, age int, contactNumber string) (*models.User, error) {
	user := &models.User{}
	err := db.conn(ctx).QueryRow(ctx,
		`UPDATE users SET first_name = $2, last_name = $3, age = $4, contact_number = $5
		 WHERE id = $1
		 RETURNING id, first_name, last_name, email, age, contact_number, password_hash, created_at`,
		userID, firstName, lastName, age, contactNumber).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.Age, &user.ContactNumber, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

const itemColumns = `i.id, i.name, i.price, i.description, i.category, i.seller_id,
	u.first_name, u.last_name, u.email`

func scanItem(row pgx.Row) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(
		&item.ID, &item.Name, &item.Price, &item.Description, &item.Category,
		&item.SellerID, &item.SellerFirstName, &item.SellerLastName, &item.SellerEmail)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems retrieves items for browsing: optional case-insensitive name
// search and category filter, always excluding the caller's own listings.
func (db *DB) ListItems(ctx context.Context, callerID int, search string, categories []string) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + `
		 FROM items i JOIN users u ON i.seller_id = u.id
		 WHERE i.seller_id <> $1`
	args := []any{callerID}

	if search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(" AND i.name ILIKE $%d", len(args))
	}
	if len(categories) > 0 {
		args = append(args, categories)
		query += fmt.Sprintf(" AND i.category = ANY($%d)", len(args))
	}
	query += " ORDER BY i.id"

	rows, err := db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItem retrieves a single item with its seller's display fields
func (db *DB) GetItem(ctx context.Context, itemID int) (*models.Item, error) {
	item, err := scanItem(db.conn(ctx).QueryRow(ctx,
		`SELECT `+itemColumns+`
		 FROM items i JOIN users u ON i.seller_id = u.id
		 WHERE i.id = $1`,
		itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// AddToCart puts an item in the user's cart; adding an item already present
// is a no-op.
func (db *DB) AddToCart(ctx context.Context, userID, itemID int) error {
	var exists bool
	err := db.conn(ctx).QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)", itemID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check item existence: %w", err)
	}
	if !exists {
		return models.ErrItemNotFound
	}

	_, err = db.conn(ctx).Exec(ctx,
		`INSERT INTO cart_items (user_id, item_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, item_id) DO NOTHING`,
		userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	return nil
}

// CartItems retrieves the still-existing items in a user's cart. Items
// deleted since being carted simply drop out of the join.
func (db *DB) CartItems(ctx context.Context, userID int) ([]models.Item, error) {
	rows, err := db.conn(ctx).Query(ctx,
		`SELECT `+itemColumns+`
		 FROM cart_items c
		 JOIN items i ON c.item_id = i.id
		 JOIN users u ON i.seller_id = u.id
		 WHERE c.user_id = $1
		 ORDER BY c.added_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// RemoveFromCart takes an item out of the user's cart
func (db *DB) RemoveFromCart(ctx context.Context, userID, itemID int) error {
	_, err := db.conn(ctx).Exec(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND item_id = $2",
		userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

// ClearCart empties the user's cart
func (db *DB) ClearCart(ctx context.Context, userID int) error {
	_, err := db.conn(ctx).Exec(ctx,
		"DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// CreateOrder inserts a new order
func (db *DB) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	created := &models.Order{}
	err := db.conn(ctx).QueryRow(ctx,
		`INSERT INTO orders (transaction_id, buyer_id, seller_id, item_id, amount, status, otp_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, transaction_id, buyer_id, seller_id, item_id, amount, status, otp_hash, created_at`,
		order.TransactionID, order.BuyerID, order.SellerID, order.ItemID,
		order.Amount, order.Status, order.OTPHash).Scan(
		&created.ID, &created.TransactionID, &created.BuyerID, &created.SellerID,
		&created.ItemID, &created.Amount, &created.Status, &created.OTPHash, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return created, nil
}

// GetOrderForUpdate retrieves an order, locking the row against concurrent
// confirms for the rest of the surrounding transaction.
func (db *DB) GetOrderForUpdate(ctx context.Context, orderID int) (*models.Order, error) {
	const query = `SELECT id, transaction_id, buyer_id, seller_id, item_id, amount, status, otp_hash, created_at
		 FROM orders WHERE id = $1 FOR UPDATE`

	order := &models.Order{}
	err := db.conn(ctx).QueryRow(ctx, query, orderID).Scan(
		&order.ID, &order.TransactionID, &order.BuyerID, &order.SellerID,
		&order.ItemID, &order.Amount, &order.Status, &order.OTPHash, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// CompleteOrder flips a pending order to completed. The update is
// conditional on the current status, so of two concurrent confirms only the
// first takes effect.
func (db *DB) CompleteOrder(ctx context.Context, orderID int) error {
	tag, err := db.conn(ctx).Exec(ctx,
		"UPDATE orders SET status = 'completed' WHERE id = $1 AND status = 'pending'",
		orderID)
	if err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.conn(ctx).QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return models.ErrOrderNotFound
		}
		return models.ErrOrderCompleted
	}
	return nil
}

const orderViewColumns = `o.id, o.transaction_id, o.amount, o.status, o.created_at,
	i.id, i.name, i.price, i.category,
	u.id, u.first_name, u.last_name, u.email`

func scanOrderViews(rows pgx.Rows) ([]models.OrderView, error) {
	views := []models.OrderView{}
	for rows.Next() {
		var v models.OrderView
		err := rows.Scan(
			&v.ID, &v.TransactionID, &v.Amount, &v.Status, &v.CreatedAt,
			&v.Item.ID, &v.Item.Name, &v.Item.Price, &v.Item.Category,
			&v.Counterparty.ID, &v.Counterparty.FirstName, &v.Counterparty.LastName, &v.Counterparty.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// OrdersByBuyer retrieves the orders a user placed, newest first, with the
// item and the seller's display fields.
func (db *DB) OrdersByBuyer(ctx context.Context, userID int) ([]models.OrderView, error) {
	rows, err := db.conn(ctx).Query(ctx,
		`SELECT `+orderViewColumns+`
		 FROM orders o
		 JOIN items i ON o.item_id = i.id
		 JOIN users u ON o.seller_id = u.id
		 WHERE o.buyer_id = $1
		 ORDER BY o.created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get buying orders: %w", err)
	}
	defer rows.Close()
	return scanOrderViews(rows)
}

// OrdersBySeller retrieves the orders placed against a user's listings,
// newest first, with the item and the buyer's display fields.
func (db *DB) OrdersBySeller(ctx context.Context, userID int) ([]models.OrderView, error) {
	rows, err := db.conn(ctx).Query(ctx,
		`SELECT `+orderViewColumns+`
		 FROM orders o
		 JOIN items i ON o.item_id = i.id
		 JOIN users u ON o.buyer_id = u.id
		 WHERE o.seller_id = $1
		 ORDER BY o.created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get selling orders: %w", err)
	}
	defer rows.Close()
	return scanOrderViews(rows)
}
