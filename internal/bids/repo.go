package bids

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
)

// Repository persists both ledger flows behind the Ledger view.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBid(ctx context.Context, id int64) (*models.Bid, error)
	FindByBid(ctx context.Context, bidID int64) (*Ledger, error)
	Load(ctx context.Context, flow enums.PaymentFlow, key string) (*Ledger, error)
	LoadForUpdate(ctx context.Context, flow enums.PaymentFlow, key string) (*Ledger, error)
	Apply(ctx context.Context, ledger *Ledger, change Change) error
	ListCompletedBefore(ctx context.Context, flow enums.PaymentFlow, cutoff time.Time, limit int) ([]Ledger, error)
	ListAwaitingReview(ctx context.Context, flow enums.PaymentFlow, from, to time.Time, limit int) ([]Ledger, error)
	MarkReleaseFlagged(ctx context.Context, flow enums.PaymentFlow, key string, at time.Time) error
	MarkReviewRequested(ctx context.Context, flow enums.PaymentFlow, key string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBid(ctx context.Context, id int64) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&bid).Error; err != nil {
		return nil, mapLookupErr(err, "bid not found", "budet hittades inte", "load bid")
	}
	return &bid, nil
}

// FindByBid returns the ledger a bid is paid through: the checkout order that
// references it when one exists, else the per-bid ledger.
func (r *repository) FindByBid(ctx context.Context, bidID int64) (*Ledger, error) {
	var accepted models.AcceptedBid
	err := r.db.WithContext(ctx).Where("bid_id = ?", bidID).Order("id DESC").Take(&accepted).Error
	switch {
	case err == nil:
		return r.Load(ctx, enums.PaymentFlowCheckout, accepted.OrderID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.Load(ctx, enums.PaymentFlowPartial, BidKey(bidID))
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted bid")
	}
}

func (r *repository) Load(ctx context.Context, flow enums.PaymentFlow, key string) (*Ledger, error) {
	return r.load(ctx, r.db.WithContext(ctx), flow, key)
}

// LoadForUpdate takes row locks on the status and money rows. It must run
// inside a transaction.
func (r *repository) LoadForUpdate(ctx context.Context, flow enums.PaymentFlow, key string) (*Ledger, error) {
	return r.load(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), flow, key)
}

func (r *repository) load(ctx context.Context, q *gorm.DB, flow enums.PaymentFlow, key string) (*Ledger, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger key is required")
	}
	switch flow {
	case enums.PaymentFlowPartial:
		bidID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bid id")
		}
		var bid models.Bid
		if err := q.Session(&gorm.Session{}).Where("id = ?", bidID).Take(&bid).Error; err != nil {
			return nil, mapLookupErr(err, "bid not found", "budet hittades inte", "load bid")
		}
		var payment models.BidPayment
		if err := q.Session(&gorm.Session{}).Where("bid_id = ?", bidID).Take(&payment).Error; err != nil {
			return nil, mapLookupErr(err, "bid payment not found", "betalningen hittades inte", "load bid payment")
		}
		return partialLedger(&bid, &payment), nil
	case enums.PaymentFlowCheckout:
		var accepted models.AcceptedBid
		if err := q.Session(&gorm.Session{}).Where("order_id = ?", key).Take(&accepted).Error; err != nil {
			return nil, mapLookupErr(err, "order not found", "ordern hittades inte", "load accepted bid")
		}
		var checkout models.Checkout
		if err := q.Session(&gorm.Session{}).Where("order_id = ?", key).Take(&checkout).Error; err != nil {
			return nil, mapLookupErr(err, "checkout not found", "kassan hittades inte", "load checkout")
		}
		return checkoutLedger(&accepted, &checkout), nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment flow %q", flow))
	}
}

// Apply writes the change to the money row first and the status row second.
// Callers run it inside a transaction so both land or neither does.
func (r *repository) Apply(ctx context.Context, ledger *Ledger, change Change) error {
	if ledger == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "ledger required")
	}
	db := r.db.WithContext(ctx)

	var statusModel, moneyModel any
	var statusWhere, moneyWhere string
	var statusArg, moneyArg any
	switch ledger.Flow {
	case enums.PaymentFlowPartial:
		statusModel, statusWhere, statusArg = &models.Bid{}, "id = ?", ledger.BidID
		moneyModel, moneyWhere, moneyArg = &models.BidPayment{}, "bid_id = ?", ledger.BidID
	case enums.PaymentFlowCheckout:
		statusModel, statusWhere, statusArg = &models.AcceptedBid{}, "order_id = ?", ledger.Key
		moneyModel, moneyWhere, moneyArg = &models.Checkout{}, "order_id = ?", ledger.Key
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment flow %q", ledger.Flow))
	}

	if change.Succeeded {
		prefix := change.Leg.String() + "_payment_"
		moneyUpdates := map[string]any{
			prefix + "status": enums.LegStatusPaid,
			prefix + "date":   change.At,
		}
		if change.IntentID != "" {
			moneyUpdates[prefix+"intent_id"] = change.IntentID
		}
		if err := updateOne(db, moneyModel, moneyWhere, moneyArg, moneyUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment leg")
		}
	}

	statusUpdates := map[string]any{
		"payment_status":          change.PaymentStatus,
		"requires_payment_method": change.RequiresPaymentMethod,
	}
	if change.CompleteOrder {
		statusUpdates["order_status"] = enums.OrderStatusCompleted
		statusUpdates["completion_date"] = change.At
	}
	if err := updateOne(db, statusModel, statusWhere, statusArg, statusUpdates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	return nil
}

func updateOne(db *gorm.DB, model any, where string, arg any, updates map[string]any) error {
	res := db.Model(model).Where(where, arg).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("expected 1 row updated, got %d", res.RowsAffected)
	}
	return nil
}

// ListCompletedBefore returns completed orders whose money row has not changed
// since cutoff and whose payout reminder has not been queued yet.
func (r *repository) ListCompletedBefore(ctx context.Context, flow enums.PaymentFlow, cutoff time.Time, limit int) ([]Ledger, error) {
	var keys []string
	db := r.db.WithContext(ctx)
	switch flow {
	case enums.PaymentFlowPartial:
		var ids []int64
		if err := db.Model(&models.Bid{}).
			Joins("JOIN bid_payments ON bid_payments.bid_id = bids.id").
			Where("bids.order_status = ?", enums.OrderStatusCompleted).
			Where("bid_payments.updated_at <= ?", cutoff).
			Where("bids.payment_release_flagged_at IS NULL").
			Order("bids.id ASC").
			Limit(limitOrDefault(limit)).
			Pluck("bids.id", &ids).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed bids")
		}
		for _, id := range ids {
			keys = append(keys, BidKey(id))
		}
	case enums.PaymentFlowCheckout:
		if err := db.Model(&models.AcceptedBid{}).
			Joins("JOIN checkouts ON checkouts.order_id = accepted_bids.order_id").
			Where("accepted_bids.order_status = ?", enums.OrderStatusCompleted).
			Where("checkouts.updated_at <= ?", cutoff).
			Where("accepted_bids.payment_release_flagged_at IS NULL").
			Order("accepted_bids.id ASC").
			Limit(limitOrDefault(limit)).
			Pluck("accepted_bids.order_id", &keys).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed orders")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment flow %q", flow))
	}
	return r.loadAll(ctx, flow, keys)
}

// ListAwaitingReview returns orders completed inside [from, to] with no review
// and no review request yet.
func (r *repository) ListAwaitingReview(ctx context.Context, flow enums.PaymentFlow, from, to time.Time, limit int) ([]Ledger, error) {
	var keys []string
	db := r.db.WithContext(ctx)
	switch flow {
	case enums.PaymentFlowPartial:
		var ids []int64
		if err := db.Model(&models.Bid{}).
			Where("order_status = ?", enums.OrderStatusCompleted).
			Where("completion_date BETWEEN ? AND ?", from, to).
			Where("NOT EXISTS (SELECT 1 FROM reviews WHERE reviews.bid_id = bids.id)").
			Where("review_requested_at IS NULL").
			Order("id ASC").
			Limit(limitOrDefault(limit)).
			Pluck("id", &ids).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids awaiting review")
		}
		for _, id := range ids {
			keys = append(keys, BidKey(id))
		}
	case enums.PaymentFlowCheckout:
		if err := db.Model(&models.AcceptedBid{}).
			Where("order_status = ?", enums.OrderStatusCompleted).
			Where("completion_date BETWEEN ? AND ?", from, to).
			Where("NOT EXISTS (SELECT 1 FROM reviews WHERE reviews.bid_id = accepted_bids.bid_id)").
			Where("review_requested_at IS NULL").
			Order("id ASC").
			Limit(limitOrDefault(limit)).
			Pluck("order_id", &keys).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders awaiting review")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment flow %q", flow))
	}
	return r.loadAll(ctx, flow, keys)
}

// MarkReleaseFlagged stamps the status row so later release scans skip it.
func (r *repository) MarkReleaseFlagged(ctx context.Context, flow enums.PaymentFlow, key string, at time.Time) error {
	return r.stamp(ctx, flow, key, "payment_release_flagged_at", at)
}

// MarkReviewRequested stamps the status row so later review scans skip it.
func (r *repository) MarkReviewRequested(ctx context.Context, flow enums.PaymentFlow, key string, at time.Time) error {
	return r.stamp(ctx, flow, key, "review_requested_at", at)
}

// stamp writes a scheduler marker without touching updated_at.
func (r *repository) stamp(ctx context.Context, flow enums.PaymentFlow, key, column string, at time.Time) error {
	var model any
	var where string
	var arg any
	switch flow {
	case enums.PaymentFlowPartial:
		bidID, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bid id")
		}
		model, where, arg = &models.Bid{}, "id = ?", bidID
	case enums.PaymentFlowCheckout:
		model, where, arg = &models.AcceptedBid{}, "order_id = ?", strings.TrimSpace(key)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment flow %q", flow))
	}
	res := r.db.WithContext(ctx).Model(model).Where(where, arg).UpdateColumn(column, at)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "stamp "+column)
	}
	if res.RowsAffected != 1 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stamp %s: expected 1 row, got %d", column, res.RowsAffected))
	}
	return nil
}

func (r *repository) loadAll(ctx context.Context, flow enums.PaymentFlow, keys []string) ([]Ledger, error) {
	out := make([]Ledger, 0, len(keys))
	for _, key := range keys {
		ledger, err := r.Load(ctx, flow, key)
		if err != nil {
			return nil, err
		}
		out = append(out, *ledger)
	}
	return out, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 500
	}
	return limit
}

func mapLookupErr(err error, notFound, notFoundSv, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NewBilingual(pkgerrors.CodeNotFound, notFound, notFoundSv)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func partialLedger(bid *models.Bid, payment *models.BidPayment) *Ledger {
	return &Ledger{
		Flow:                  enums.PaymentFlowPartial,
		Key:                   BidKey(bid.ID),
		BidID:                 bid.ID,
		QuotationType:         bid.QuotationType,
		QuotationID:           bid.QuotationID,
		SupplierID:            bid.SupplierID,
		FinalPrice:            payment.FinalPrice,
		InitialAmount:         payment.InitialPaymentAmount,
		RemainingAmount:       payment.RemainingPaymentAmount,
		PaymentStatus:         bid.PaymentStatus,
		OrderStatus:           bid.OrderStatus,
		RequiresPaymentMethod: bid.RequiresPaymentMethod,
		CompletionDate:        bid.CompletionDate,
		InitialLegStatus:      payment.InitialPaymentStatus,
		RemainingLegStatus:    payment.RemainingPaymentStatus,
		InitialIntentID:       payment.InitialPaymentIntentID,
		RemainingIntentID:     payment.RemainingPaymentIntentID,
		MoneyUpdatedAt:        payment.UpdatedAt,
	}
}

func checkoutLedger(accepted *models.AcceptedBid, checkout *models.Checkout) *Ledger {
	return &Ledger{
		Flow:                  enums.PaymentFlowCheckout,
		Key:                   accepted.OrderID,
		OrderID:               accepted.OrderID,
		BidID:                 accepted.BidID,
		QuotationType:         accepted.QuotationType,
		QuotationID:           accepted.QuotationID,
		SupplierID:            accepted.SupplierID,
		FinalPrice:            accepted.FinalPrice,
		InitialAmount:         checkout.InitialPaymentAmount,
		RemainingAmount:       checkout.RemainingPaymentAmount,
		PaymentStatus:         accepted.PaymentStatus,
		OrderStatus:           accepted.OrderStatus,
		RequiresPaymentMethod: accepted.RequiresPaymentMethod,
		CompletionDate:        accepted.CompletionDate,
		InitialLegStatus:      checkout.InitialPaymentStatus,
		RemainingLegStatus:    checkout.RemainingPaymentStatus,
		InitialIntentID:       checkout.InitialPaymentIntentID,
		RemainingIntentID:     checkout.RemainingPaymentIntentID,
		MoneyUpdatedAt:        checkout.UpdatedAt,
	}
}
