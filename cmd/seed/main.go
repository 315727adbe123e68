package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/arn384/Buy-Sell-Website/internal/config"
	"github.com/arn384/Buy-Sell-Website/internal/db"
	"github.com/arn384/Buy-Sell-Website/internal/models"
)

// Seed the database with demo users and listings
func main() {
	ctx := context.Background()

	cfg := config.Load()
	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(ctx)

	// Apply schema
	migration, err := os.ReadFile("migrations/001_init.sql")
	if err != nil {
		log.Fatalf("Failed to read migration: %v", err)
	}
	if _, err := database.Pool.Exec(ctx, string(migration)); err != nil {
		log.Fatalf("Failed to apply migration: %v", err)
	}

	// Skip when listings already exist
	var itemCount int
	if err := database.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM items").Scan(&itemCount); err != nil {
		log.Fatalf("Failed to count items: %v", err)
	}
	if itemCount > 0 {
		fmt.Printf("Database already has %d items. No need to seed.\n", itemCount)
		os.Exit(0)
	}

	users := []struct {
		firstName, lastName, email, contact string
		age                                 int
	}{
		{"Asha", "Rao", "asha.rao@" + cfg.EmailDomain, "9876543210", 21},
		{"Ravi", "Teja", "ravi.teja@" + cfg.EmailDomain, "9876500001", 22},
		{"Meera", "Iyer", "meera.iyer@" + cfg.EmailDomain, "9876500002", 20},
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	userIDs := make([]int, 0, len(users))
	for _, u := range users {
		created, err := database.CreateUser(ctx, &models.User{
			FirstName:     u.firstName,
			LastName:      u.lastName,
			Email:         u.email,
			Age:           u.age,
			ContactNumber: u.contact,
			PasswordHash:  string(passwordHash),
		})
		if err == models.ErrEmailTaken {
			existing, err := database.GetUserByEmail(ctx, u.email)
			if err != nil {
				log.Fatalf("Failed to look up existing user %s: %v", u.email, err)
			}
			userIDs = append(userIDs, existing.ID)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", u.email, err)
		}
		userIDs = append(userIDs, created.ID)
	}

	items := []struct {
		name, description, category string
		price                       float64
		sellerIdx                   int
	}{
		{"Introduction to Algorithms", "CLRS, third edition, lightly used", "books", 450, 0},
		{"Scientific Calculator", "Casio fx-991ES, works fine", "electronics", 250, 0},
		{"Study Lamp", "LED desk lamp with adjustable arm", "furniture", 300, 1},
		{"Bicycle", "Single speed, new tires last semester", "vehicles", 1800, 1},
		{"Drafting Table", "A2 size, foldable", "furniture", 900, 2},
		{"USB Keyboard", "Mechanical, blue switches", "electronics", 1200, 2},
	}

	for _, it := range items {
		_, err := database.Pool.Exec(ctx,
			"INSERT INTO items (name, price, description, category, seller_id) VALUES ($1, $2, $3, $4, $5)",
			it.name, it.price, it.description, it.category, userIDs[it.sellerIdx])
		if err != nil {
			log.Fatalf("Failed to create item %s: %v", it.name, err)
		}
	}

	fmt.Printf("Seeded %d users and %d items. All demo accounts use password 'password123'.\n", len(users), len(items))
}
