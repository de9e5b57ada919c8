// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"retailcore/internal/core/id"
	"retailcore/internal/infrastructure/storage/postgres"
	"retailcore/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedRoles(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed roles", "error", err)
	}

	if err := seedAdminUser(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedRoles installs the well-known system roles.
func seedRoles(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	roles := []struct {
		code        string
		name        string
		description string
	}{
		{"admin", "Administrator", "Full access to every operation"},
		{"manager", "Store Manager", "Catalog management, document review, reports"},
		{"cashier", "Cashier", "Register sales and stock counting"},
	}

	for _, r := range roles {
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO roles (id, code, name, description, is_system, created_at, updated_at)
			VALUES ($1, $2, $3, $4, true, NOW(), NOW())
			ON CONFLICT (code) DO NOTHING
		`, id.New(), r.code, r.name, r.description)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.code, err)
		}
	}

	log.Info("system roles seeded")
	return nil
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@retailcore.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	// Check if admin already exists
	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1 AND deleted_at IS NULL`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	now := time.Now().UTC()

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			is_active, is_admin, created_at, updated_at, version
		) VALUES ($1, $2, $3, 'System', 'Admin', true, true, $4, $4, 1)
	`, userID, adminEmail, string(passwordHash), now)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	// Assign admin role
	var adminRoleID id.ID
	err = pool.Pool.QueryRow(ctx,
		`SELECT id FROM roles WHERE code = 'admin'`,
	).Scan(&adminRoleID)
	if err != nil {
		log.Warnw("admin role not found, skipping role assignment", "error", err)
	} else {
		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id, granted_by)
			VALUES ($1, $2, NULL)
			ON CONFLICT (user_id, role_id) DO NOTHING
		`, userID, adminRoleID)
		if err != nil {
			log.Warnw("failed to assign admin role", "error", err)
		}
	}

	log.Infow("admin user created", "email", adminEmail, "user_id", userID)
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo data...")

	// 1. Categories
	categories := []struct {
		code string
		name string
	}{
		{"CAT-00001", "Beverages"},
		{"CAT-00002", "Snacks"},
		{"CAT-00003", "Household"},
	}

	categoryIDs := make(map[string]id.ID)
	for _, c := range categories {
		cid := id.New()
		tag, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_categories (id, code, name, sort_order, is_active, version, deletion_mark)
			VALUES ($1, $2, $3, 0, true, 1, false)
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, cid, c.code, c.name)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.name, err)
		}
		if tag.RowsAffected() == 0 {
			err = pool.Pool.QueryRow(ctx, `
				SELECT id FROM cat_categories WHERE code = $1 AND deletion_mark = FALSE
			`, c.code).Scan(&cid)
			if err != nil {
				return fmt.Errorf("fetch existing category %s: %w", c.code, err)
			}
		}
		categoryIDs[c.code] = cid
	}

	// 2. Products
	products := []struct {
		sku          string
		name         string
		categoryCode string
		price        decimal.Decimal
		cost         decimal.Decimal
		minStock     int64
	}{
		{"SKU-00001", "Sparkling Water 0.5L", "CAT-00001", decimal.NewFromFloat(1.20), decimal.NewFromFloat(0.55), 24},
		{"SKU-00002", "Cola 0.33L Can", "CAT-00001", decimal.NewFromFloat(1.50), decimal.NewFromFloat(0.70), 48},
		{"SKU-00003", "Salted Peanuts 200g", "CAT-00002", decimal.NewFromFloat(2.80), decimal.NewFromFloat(1.40), 12},
		{"SKU-00004", "Potato Chips 150g", "CAT-00002", decimal.NewFromFloat(2.10), decimal.NewFromFloat(0.95), 20},
		{"SKU-00005", "Paper Towels 2-pack", "CAT-00003", decimal.NewFromFloat(3.40), decimal.NewFromFloat(1.80), 10},
	}

	for _, p := range products {
		categoryID := categoryIDs[p.categoryCode].String()
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_products (
				id, code, name, category_id, price, cost,
				min_stock_level, max_stock_level, is_active, version, deletion_mark
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, true, 1, false)
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, id.New(), p.sku, p.name, categoryID, p.price, p.cost, p.minStock)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.name, err)
		}
	}

	log.Infow("demo data seeded",
		"categories", len(categories),
		"products", len(products),
	)
	return nil
}
