package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

// AcceptedBid is the status half of the full-order checkout ledger.
type AcceptedBid struct {
	ID                    int64               `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID               string              `gorm:"column:order_id;not null;uniqueIndex"`
	BidID                 int64               `gorm:"column:bid_id;not null;index"`
	QuotationType         enums.QuotationType `gorm:"column:quotation_type;not null"`
	QuotationID           int64               `gorm:"column:quotation_id;not null"`
	SupplierID            int64               `gorm:"column:supplier_id;not null"`
	FinalPrice            decimal.Decimal     `gorm:"column:final_price;type:numeric(12,2);not null"`
	InitialPayment        decimal.Decimal     `gorm:"column:initial_payment;type:numeric(12,2);not null"`
	RemainingPayment      decimal.Decimal     `gorm:"column:remaining_payment;type:numeric(12,2);not null"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;not null;default:pending"`
	OrderStatus           enums.OrderStatus   `gorm:"column:order_status;not null;default:active"`
	RequiresPaymentMethod bool                `gorm:"column:requires_payment_method;not null;default:false"`
	CompletionDate        *time.Time          `gorm:"column:completion_date"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	// scheduler markers; a set value means the reminder is already queued
	PaymentReleaseFlaggedAt *time.Time `gorm:"column:payment_release_flagged_at"`
	ReviewRequestedAt       *time.Time `gorm:"column:review_requested_at"`
}

func (AcceptedBid) TableName() string { return "accepted_bids" }

// Checkout is the money half of the full-order checkout ledger.
type Checkout struct {
	ID                       int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID                  string          `gorm:"column:order_id;not null;uniqueIndex"`
	TotalPrice               decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	InitialPaymentAmount     decimal.Decimal `gorm:"column:initial_payment_amount;type:numeric(12,2);not null"`
	RemainingPaymentAmount   decimal.Decimal `gorm:"column:remaining_payment_amount;type:numeric(12,2);not null"`
	InitialPaymentStatus     enums.LegStatus `gorm:"column:initial_payment_status;not null;default:pending"`
	RemainingPaymentStatus   enums.LegStatus `gorm:"column:remaining_payment_status;not null;default:pending"`
	InitialPaymentDate       *time.Time      `gorm:"column:initial_payment_date"`
	RemainingPaymentDate     *time.Time      `gorm:"column:remaining_payment_date"`
	InitialPaymentIntentID   *string         `gorm:"column:initial_payment_intent_id"`
	RemainingPaymentIntentID *string         `gorm:"column:remaining_payment_intent_id"`
	CreatedAt                time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Checkout) TableName() string { return "checkouts" }
