// Package dbtest opens throwaway sqlite databases carrying the production models.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
)

var seq atomic.Int64

// Open returns an isolated in-memory database with every core table migrated.
// A single connection backs it, so code under test must use the tx handle
// inside transactions.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.Supplier{},
		&models.Bid{},
		&models.BidPayment{},
		&models.AcceptedBid{},
		&models.Checkout{},
		&models.Review{},
		&models.ReviewIssue{},
		&models.LedgerEvent{},
		&models.Notification{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// MigrateQuotationTables creates one quotation table per name.
func MigrateQuotationTables(t testing.TB, conn *gorm.DB, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if err := conn.Table(table).AutoMigrate(&models.Quotation{}); err != nil {
			t.Fatalf("migrate %s: %v", table, err)
		}
	}
}
