// Package bidstest seeds ledger rows for tests that run against sqlite.
package bidstest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/money"
)

// Fixture describes one accepted bid and its ledger rows.
type Fixture struct {
	BidID          int64
	OrderID        string
	SupplierID     int64
	QuotationType  enums.QuotationType
	QuotationID    int64
	FinalPrice     decimal.Decimal
	PaymentStatus  enums.PaymentStatus
	OrderStatus    enums.OrderStatus
	InitialPaid    bool
	RemainingPaid  bool
	CompletionDate *time.Time
}

func (f *Fixture) defaults() {
	if f.SupplierID == 0 {
		f.SupplierID = 1
	}
	if f.QuotationType == "" {
		f.QuotationType = enums.QuotationPrivateMove
	}
	if f.QuotationID == 0 {
		f.QuotationID = 1
	}
	if f.PaymentStatus == "" {
		f.PaymentStatus = enums.PaymentStatusAwaitingInitialPayment
	}
	if f.OrderStatus == "" {
		f.OrderStatus = enums.OrderStatusActive
	}
}

func legStatus(paid bool) enums.LegStatus {
	if paid {
		return enums.LegStatusPaid
	}
	return enums.LegStatusPending
}

// SeedPartial writes a bids + bid_payments pair.
func SeedPartial(t testing.TB, db *gorm.DB, f Fixture) {
	t.Helper()
	f.defaults()
	initial, remaining := money.Split(f.FinalPrice)
	bid := models.Bid{
		ID:             f.BidID,
		SupplierID:     f.SupplierID,
		QuotationType:  f.QuotationType,
		QuotationID:    f.QuotationID,
		TotalPrice:     f.FinalPrice,
		Status:         enums.BidStatusAccepted,
		PaymentStatus:  f.PaymentStatus,
		OrderStatus:    f.OrderStatus,
		CompletionDate: f.CompletionDate,
	}
	if err := db.Create(&bid).Error; err != nil {
		t.Fatalf("seed bid: %v", err)
	}
	payment := models.BidPayment{
		BidID:                  f.BidID,
		FinalPrice:             f.FinalPrice,
		InitialPaymentAmount:   initial,
		RemainingPaymentAmount: remaining,
		InitialPaymentStatus:   legStatus(f.InitialPaid),
		RemainingPaymentStatus: legStatus(f.RemainingPaid),
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("seed bid payment: %v", err)
	}
}

// SeedCheckout writes a bids + accepted_bids + checkouts triple.
func SeedCheckout(t testing.TB, db *gorm.DB, f Fixture) {
	t.Helper()
	f.defaults()
	initial, remaining := money.Split(f.FinalPrice)
	bid := models.Bid{
		ID:            f.BidID,
		SupplierID:    f.SupplierID,
		QuotationType: f.QuotationType,
		QuotationID:   f.QuotationID,
		TotalPrice:    f.FinalPrice,
		Status:        enums.BidStatusAccepted,
	}
	if err := db.Create(&bid).Error; err != nil {
		t.Fatalf("seed bid: %v", err)
	}
	accepted := models.AcceptedBid{
		OrderID:          f.OrderID,
		BidID:            f.BidID,
		QuotationType:    f.QuotationType,
		QuotationID:      f.QuotationID,
		SupplierID:       f.SupplierID,
		FinalPrice:       f.FinalPrice,
		InitialPayment:   initial,
		RemainingPayment: remaining,
		PaymentStatus:    f.PaymentStatus,
		OrderStatus:      f.OrderStatus,
		CompletionDate:   f.CompletionDate,
	}
	if err := db.Create(&accepted).Error; err != nil {
		t.Fatalf("seed accepted bid: %v", err)
	}
	checkout := models.Checkout{
		OrderID:                f.OrderID,
		TotalPrice:             f.FinalPrice,
		InitialPaymentAmount:   initial,
		RemainingPaymentAmount: remaining,
		InitialPaymentStatus:   legStatus(f.InitialPaid),
		RemainingPaymentStatus: legStatus(f.RemainingPaid),
	}
	if err := db.Create(&checkout).Error; err != nil {
		t.Fatalf("seed checkout: %v", err)
	}
}

// Age rewinds the money row's updated_at without touching anything else.
func Age(t testing.TB, db *gorm.DB, flow enums.PaymentFlow, key any, at time.Time) {
	t.Helper()
	var err error
	if flow == enums.PaymentFlowCheckout {
		err = db.Model(&models.Checkout{}).Where("order_id = ?", key).UpdateColumn("updated_at", at).Error
	} else {
		err = db.Model(&models.BidPayment{}).Where("bid_id = ?", key).UpdateColumn("updated_at", at).Error
	}
	if err != nil {
		t.Fatalf("age ledger: %v", err)
	}
}
