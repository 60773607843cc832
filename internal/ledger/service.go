package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

// Service records the audit trail of applied payment transitions.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	ListForLedger(ctx context.Context, flow enums.PaymentFlow, key string) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
type RecordLedgerEventInput struct {
	Flow            enums.PaymentFlow     `json:"flow"`
	LedgerKey       string                `json:"ledger_key"`
	Leg             enums.PaymentLeg      `json:"leg"`
	Type            enums.LedgerEventType `json:"type"`
	AmountMinor     int64                 `json:"amount_minor"`
	Currency        string                `json:"currency"`
	PaymentIntentID string                `json:"payment_intent_id"`
	StripeEventID   string                `json:"stripe_event_id"`
	FromStatus      enums.PaymentStatus   `json:"from_status"`
	ToStatus        enums.PaymentStatus   `json:"to_status"`
	Metadata        map[string]any        `json:"metadata"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent appends one audit row. With a non-nil tx the row commits or
// rolls back with the transition it describes.
func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if !input.Flow.IsValid() {
		return nil, fmt.Errorf("invalid payment flow %q", input.Flow)
	}
	if strings.TrimSpace(input.LedgerKey) == "" {
		return nil, fmt.Errorf("ledger key is required")
	}
	if !input.Leg.IsValid() {
		return nil, fmt.Errorf("invalid payment leg %q", input.Leg)
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.AmountMinor < 0 {
		return nil, fmt.Errorf("amount must be non-negative")
	}

	var metadata datatypes.JSON
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode ledger metadata: %w", err)
		}
		metadata = datatypes.JSON(raw)
	}

	event := &models.LedgerEvent{
		Flow:            input.Flow,
		LedgerKey:       input.LedgerKey,
		Leg:             input.Leg,
		Type:            input.Type,
		AmountMinor:     input.AmountMinor,
		Currency:        strings.ToLower(input.Currency),
		PaymentIntentID: input.PaymentIntentID,
		StripeEventID:   input.StripeEventID,
		FromStatus:      input.FromStatus,
		ToStatus:        input.ToStatus,
		Metadata:        metadata,
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) ListForLedger(ctx context.Context, flow enums.PaymentFlow, key string) ([]models.LedgerEvent, error) {
	if !flow.IsValid() {
		return nil, fmt.Errorf("invalid payment flow %q", flow)
	}
	return s.repo.ListByLedger(ctx, flow, key)
}
