package tenants

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
)

var tenantCols = []string{"identity", "shard", "quota_gb", "used_bytes", "uploads_count",
	"downloads_count", "subscription_until", "last_activity_at", "created_at"}

func tenantRow(identity string, used int64) *sqlmock.Rows {
	now := time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)
	return sqlmock.NewRows(tenantCols).
		AddRow(identity, "local", 10, used, 3, 7, now.Add(24*time.Hour), now, now)
}

func TestGetByIdentity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM tenants WHERE identity = \$1`).
		WithArgs("3912607696116679").
		WillReturnRows(tenantRow("3912607696116679", 2048))

	r := NewPostgresRepository(db)
	tenant, err := r.GetByIdentity(context.Background(), "3912607696116679")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant.Identity != "3912607696116679" || tenant.UsedBytes != 2048 {
		t.Errorf("unexpected tenant: %+v", tenant)
	}
	if tenant.QuotaBytes() != 10<<30 {
		t.Errorf("unexpected quota: %d", tenant.QuotaBytes())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetByIdentity_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM tenants WHERE identity = \$1`).
		WithArgs("0000000000000000").
		WillReturnError(sql.ErrNoRows)

	r := NewPostgresRepository(db)
	_, err = r.GetByIdentity(context.Background(), "0000000000000000")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestApplyUsageDelta(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE tenants SET`).
		WithArgs("3912607696116679", int64(-1024), int64(0), int64(0)).
		WillReturnRows(tenantRow("3912607696116679", 1024))

	r := NewPostgresRepository(db)
	tenant, err := r.ApplyUsageDelta(context.Background(), "3912607696116679", -1024, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant.UsedBytes != 1024 {
		t.Errorf("unexpected used_bytes: %d", tenant.UsedBytes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestApplyUsageDelta_UnknownTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE tenants SET`).
		WithArgs("0000000000000000", int64(100), int64(1), int64(0)).
		WillReturnError(sql.ErrNoRows)

	r := NewPostgresRepository(db)
	_, err = r.ApplyUsageDelta(context.Background(), "0000000000000000", 100, 1, 0)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}
