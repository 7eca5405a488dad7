package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"salonlink.app/cloud/models"
)

// SQLiteStorage is the local development store. Production runs on Postgres.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{
		db:   db,
		path: path,
	}

	if err := storage.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) migrate(ctx context.Context) error {
	schema := `
      CREATE TABLE IF NOT EXISTS profiles (
          id TEXT PRIMARY KEY,
          email TEXT UNIQUE NOT NULL,
          full_name TEXT,
          company_name TEXT,
          stripe_customer_id TEXT,
          setup_fee_paid BOOLEAN NOT NULL DEFAULT 0,
          subscription_status TEXT NOT NULL DEFAULT 'none',
          subscription_plan TEXT,
          created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
          updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
      );
      `

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStorage) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`
	return scanProfile(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) FindProfileByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	if customerID == "" {
		return nil, nil
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_customer_id = ?`
	return scanProfile(s.db.QueryRowContext(ctx, query, customerID))
}

func (s *SQLiteStorage) SaveProfile(ctx context.Context, profile *models.Profile) error {
	query := `INSERT OR REPLACE INTO profiles (` + profileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		profile.ID,
		profile.Email,
		nullable(profile.FullName),
		nullable(profile.CompanyName),
		nullable(profile.StripeCustomerID),
		profile.SetupFeePaid,
		profile.SubscriptionStatus,
		nullable(profile.SubscriptionPlan),
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
