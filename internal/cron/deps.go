package cron

import (
	"context"
	"time"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"gorm.io/gorm"
)

// rowLimit bounds how many orders a single tick scans per flow.
const rowLimit = 500

var flows = []enums.PaymentFlow{enums.PaymentFlowPartial, enums.PaymentFlowCheckout}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

type completedLedgerReader interface {
	WithTx(tx *gorm.DB) bids.Repository
	ListCompletedBefore(ctx context.Context, flow enums.PaymentFlow, cutoff time.Time, limit int) ([]bids.Ledger, error)
	ListAwaitingReview(ctx context.Context, flow enums.PaymentFlow, from, to time.Time, limit int) ([]bids.Ledger, error)
}

type supplierReader interface {
	FindByID(ctx context.Context, id int64) (*models.Supplier, error)
}

type quotationReader interface {
	FindByID(ctx context.Context, qt enums.QuotationType, id int64) (*models.Quotation, error)
}
