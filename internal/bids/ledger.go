package bids

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

// Ledger is the flow-neutral view of a status row (bids or accepted_bids)
// joined with its money row (bid_payments or checkouts).
type Ledger struct {
	Flow enums.PaymentFlow
	// Key is the bid id for the partial flow and the order id for checkout.
	Key     string
	OrderID string

	BidID         int64
	QuotationType enums.QuotationType
	QuotationID   int64
	SupplierID    int64

	FinalPrice      decimal.Decimal
	InitialAmount   decimal.Decimal
	RemainingAmount decimal.Decimal

	PaymentStatus         enums.PaymentStatus
	OrderStatus           enums.OrderStatus
	RequiresPaymentMethod bool
	CompletionDate        *time.Time

	InitialLegStatus   enums.LegStatus
	RemainingLegStatus enums.LegStatus
	InitialIntentID    *string
	RemainingIntentID  *string

	// MoneyUpdatedAt is the last write to the money row.
	MoneyUpdatedAt time.Time
}

// LegAmount is the stored installment amount in major units.
func (l *Ledger) LegAmount(leg enums.PaymentLeg) decimal.Decimal {
	if leg == enums.PaymentLegRemaining {
		return l.RemainingAmount
	}
	return l.InitialAmount
}

// LegPaid reports whether the money row already records the leg as paid.
func (l *Ledger) LegPaid(leg enums.PaymentLeg) bool {
	if leg == enums.PaymentLegRemaining {
		return l.RemainingLegStatus == enums.LegStatusPaid
	}
	return l.InitialLegStatus == enums.LegStatusPaid
}

// Room is the realtime room watchers of this ledger row join.
func (l *Ledger) Room() string {
	if l.Flow == enums.PaymentFlowCheckout {
		return "order:" + l.Key
	}
	return "bid:" + l.Key
}

// Reference is the human label used in emails and notifications.
func (l *Ledger) Reference() string {
	if l.Flow == enums.PaymentFlowCheckout {
		return "order " + l.OrderID
	}
	return "bid #" + BidKey(l.BidID)
}

// BidKey formats a bid id as a partial-flow ledger key.
func BidKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
