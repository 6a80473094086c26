package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/meta556-debug/bid2buy-try/config"
	"github.com/meta556-debug/bid2buy-try/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	seller := seedUser(db, "seller@example.com", "password123", "Demo Seller")
	bidder := seedUser(db, "bidder@example.com", "password123", "Demo Bidder")

	// Give the bidder spendable funds
	if _, err := db.Exec(`
		UPDATE wallets SET balance = 500.00, updated_at = now() WHERE user_id = $1
	`, bidder); err != nil {
		log.Fatalf("failed to fund wallet: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO transactions (wallet_id, user_id, amount, type, description)
		SELECT id, user_id, 500.00, 'DEPOSIT', 'Added funds to wallet' FROM wallets WHERE user_id = $1
	`, bidder); err != nil {
		log.Fatalf("failed to record deposit: %v", err)
	}

	now := time.Now().UTC()
	var productID string
	err = db.QueryRow(`
		INSERT INTO products (seller_id, title, description, category, condition, location,
			starting_price, current_price, media_type, images, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, 'image', $8, 'ACTIVE', $9, $10)
		RETURNING id
	`, seller,
		"Vintage mechanical keyboard",
		"IBM Model M, 1989, fully working with original cable.",
		"electronics", "used", "Berlin",
		"75.00",
		`{"https://placehold.co/600x400?text=Keyboard"}`,
		now, now.Add(72*time.Hour),
	).Scan(&productID)
	if err != nil {
		log.Fatalf("failed to seed auction: %v", err)
	}

	fmt.Printf("seeded seller=%s bidder=%s auction=%s\n", seller, bidder, productID)
	fmt.Println("login with seller@example.com / bidder@example.com, password: password123")
}

func seedUser(db *sql.DB, email, password, name string) string {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password, name, avatar_url)
		VALUES ($1, $2, $3, '')
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, email, hash, name).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user %s: %v", email, err)
	}
	if _, err := db.Exec(`
		INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, id); err != nil {
		log.Fatalf("failed to seed wallet for %s: %v", email, err)
	}
	return id
}
