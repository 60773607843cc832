package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}
	if got := countRows(t, db); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}

	boom := errors.New("second statement failed")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled back"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if got := countRows(t, db); got != 1 {
		t.Fatalf("expected rollback to keep 1 record, got %d", got)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&testModel{Name: "panicky"})
			panic("boom")
		})
	}()

	if got := countRows(t, db); got != 0 {
		t.Fatalf("expected panic rollback, got %d rows", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_outbox_events_dedupe_key"}
	if !IsUniqueViolation(pgErr, "ux_outbox_events_dedupe_key") {
		t.Fatal("expected pg unique violation to match")
	}
	if IsUniqueViolation(pgErr, "other_constraint") {
		t.Fatal("constraint name should be honoured")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: outbox_events.dedupe_key"), "") {
		t.Fatal("expected sqlite unique violation to match")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatal("unexpected match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error should not match")
	}
}
