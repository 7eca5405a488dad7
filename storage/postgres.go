package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"salonlink.app/cloud/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStorage backs the profile store with the hosted Postgres
// (Supabase in production). Schema is managed through embedded migrations.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(databaseURL string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	storage := &PostgresStorage{db: db}
	if err := storage.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

const profileColumns = `id, email, full_name, company_name, stripe_customer_id, setup_fee_paid, subscription_status, subscription_plan, created_at, updated_at`

func (s *PostgresStorage) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStorage) FindProfileByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	if customerID == "" {
		return nil, nil
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_customer_id = $1`
	return scanProfile(s.db.QueryRowContext(ctx, query, customerID))
}

func (s *PostgresStorage) SaveProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			company_name = EXCLUDED.company_name,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			setup_fee_paid = EXCLUDED.setup_fee_paid,
			subscription_status = EXCLUDED.subscription_status,
			subscription_plan = EXCLUDED.subscription_plan,
			updated_at = EXCLUDED.updated_at`

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

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

type row interface {
	Scan(dest ...any) error
}

func scanProfile(r row) (*models.Profile, error) {
	var profile models.Profile
	var fullName, companyName, customerID, plan sql.NullString

	err := r.Scan(
		&profile.ID,
		&profile.Email,
		&fullName,
		&companyName,
		&customerID,
		&profile.SetupFeePaid,
		&profile.SubscriptionStatus,
		&plan,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	profile.FullName = fullName.String
	profile.CompanyName = companyName.String
	profile.StripeCustomerID = customerID.String
	profile.SubscriptionPlan = plan.String

	return &profile, nil
}

// nullable stores empty strings as NULL so the secondary index on
// stripe_customer_id never matches profiles without a billing relationship.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
