package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

// LedgerEvent is an append-only audit row for every applied payment transition.
type LedgerEvent struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Flow            enums.PaymentFlow     `gorm:"column:flow;not null"`
	LedgerKey       string                `gorm:"column:ledger_key;not null;index"`
	Leg             enums.PaymentLeg      `gorm:"column:leg;not null"`
	Type            enums.LedgerEventType `gorm:"column:type;not null"`
	AmountMinor     int64                 `gorm:"column:amount_minor;not null"`
	Currency        string                `gorm:"column:currency;not null"`
	PaymentIntentID string                `gorm:"column:payment_intent_id"`
	StripeEventID   string                `gorm:"column:stripe_event_id"`
	FromStatus      enums.PaymentStatus   `gorm:"column:from_status"`
	ToStatus        enums.PaymentStatus   `gorm:"column:to_status"`
	Metadata        datatypes.JSON        `gorm:"column:metadata;type:jsonb"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }

func (e *LedgerEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
