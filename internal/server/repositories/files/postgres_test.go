package files

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

var fileCols = []string{"id", "tenant_identity", "storage_key", "size_bytes", "mime_type",
	"status", "created_at", "deleted_at"}

const (
	testFileID   = "0f8fad5b-d9cb-469f-a165-70867728950e"
	testIdentity = "3912607696116679"
	testKey      = "_3912607696116679/2024/3/0f8fad5b-d9cb-469f-a165-70867728950e"
)

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO files`).
		WithArgs(testFileID, testIdentity, testKey, int64(1024), "image/png", models.FileStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostgresRepository(db)
	err = r.Create(context.Background(), &models.File{
		ID:             testFileID,
		TenantIdentity: testIdentity,
		StorageKey:     testKey,
		SizeBytes:      1024,
		MimeType:       "image/png",
		Status:         models.FileStatusPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM files WHERE id = \$1 AND tenant_identity = \$2`).
		WithArgs(testFileID, testIdentity).
		WillReturnRows(sqlmock.NewRows(fileCols).
			AddRow(testFileID, testIdentity, testKey, int64(1024), "image/png",
				models.FileStatusActive, now, nil))

	r := NewPostgresRepository(db)
	f, err := r.GetByID(context.Background(), testFileID, testIdentity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.StorageKey != testKey || f.Status != models.FileStatusActive {
		t.Errorf("unexpected file: %+v", f)
	}
}

func TestGetByID_WrongTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM files WHERE id = \$1 AND tenant_identity = \$2`).
		WithArgs(testFileID, "1111222233334444").
		WillReturnError(sql.ErrNoRows)

	r := NewPostgresRepository(db)
	_, err = r.GetByID(context.Background(), testFileID, "1111222233334444")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM files WHERE tenant_identity = \$1 AND status = 'active'`).
		WithArgs(testIdentity).
		WillReturnRows(sqlmock.NewRows(fileCols).
			AddRow("a1", testIdentity, "_k/1", int64(10), "text/plain", models.FileStatusActive, now, nil).
			AddRow("a2", testIdentity, "_k/2", int64(20), "text/plain", models.FileStatusActive, now.Add(time.Minute), nil))

	r := NewPostgresRepository(db)
	list, err := r.ListActive(context.Background(), testIdentity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a1" || list[1].ID != "a2" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestMarkActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE files SET status = 'active'`).
		WithArgs(testFileID, int64(2048), "image/png").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostgresRepository(db)
	if err := r.MarkActive(context.Background(), testFileID, 2048, "image/png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkActive_NoRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE files SET status = 'active'`).
		WithArgs(testFileID, int64(2048), "image/png").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewPostgresRepository(db)
	if err := r.MarkActive(context.Background(), testFileID, 2048, "image/png"); err == nil {
		t.Fatal("expected error for missing row")
	}
}

func TestMarkDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE files SET status = 'deleted'`).
		WithArgs(testFileID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostgresRepository(db)
	if err := r.MarkDeleted(context.Background(), testFileID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
