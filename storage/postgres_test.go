package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"salonlink.app/cloud/models"
)

func newMockStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PostgresStorage{db: db}, mock
}

func profileRows(profile *models.Profile) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "full_name", "company_name", "stripe_customer_id",
		"setup_fee_paid", "subscription_status", "subscription_plan",
		"created_at", "updated_at",
	}).AddRow(
		profile.ID, profile.Email, profile.FullName, profile.CompanyName,
		profile.StripeCustomerID, profile.SetupFeePaid, profile.SubscriptionStatus,
		profile.SubscriptionPlan, profile.CreatedAt, profile.UpdatedAt,
	)
}

func TestPostgresStorage_GetProfile(t *testing.T) {
	store, mock := newMockStorage(t)

	want := testProfile("u1")
	want.StripeCustomerID = "cus_1"
	want.SubscriptionStatus = models.StatusActive
	want.SubscriptionPlan = models.PlanStandard

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+profileColumns+` FROM profiles WHERE id = $1`)).
		WithArgs("u1").
		WillReturnRows(profileRows(want))

	got, err := store.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got == nil || got.ID != "u1" || got.SubscriptionPlan != models.PlanStandard {
		t.Errorf("Unexpected profile: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostgresStorage_GetProfile_NotFound(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+profileColumns+` FROM profiles WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := store.GetProfile(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Expected no error for a missing row, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil, got %+v", got)
	}
}

func TestPostgresStorage_FindProfileByStripeCustomerID(t *testing.T) {
	store, mock := newMockStorage(t)

	want := testProfile("u1")
	want.StripeCustomerID = "cus_1"

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+profileColumns+` FROM profiles WHERE stripe_customer_id = $1`)).
		WithArgs("cus_1").
		WillReturnRows(profileRows(want))

	got, err := store.FindProfileByStripeCustomerID(context.Background(), "cus_1")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got == nil || got.ID != "u1" {
		t.Errorf("Unexpected profile: %+v", got)
	}
}

func TestPostgresStorage_FindProfileByStripeCustomerID_Empty(t *testing.T) {
	store, mock := newMockStorage(t)

	// No query may be issued for an empty customer id.
	got, err := store.FindProfileByStripeCustomerID(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil, got %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected query: %v", err)
	}
}

func TestPostgresStorage_SaveProfile(t *testing.T) {
	store, mock := newMockStorage(t)

	now := time.Now()
	profile := &models.Profile{
		ID:                 "u1",
		Email:              "u1@example.com",
		StripeCustomerID:   "cus_1",
		SetupFeePaid:       true,
		SubscriptionStatus: models.StatusActive,
		SubscriptionPlan:   models.PlanPro,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO profiles`)).
		WithArgs(
			"u1", "u1@example.com",
			nullable(""), nullable(""), nullable("cus_1"),
			true, models.StatusActive, nullable(models.PlanPro),
			now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SaveProfile(context.Background(), profile); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
