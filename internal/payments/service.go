package payments

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/internal/quotations"
	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/money"
	"github.com/angelmondragon/movemarket-backend/pkg/stripe"
)

// Metadata keys stamped on every payment intent.
const (
	MetadataBidID         = "bid_id"
	MetadataOrderID       = "order_id"
	MetadataQuotationType = "quotation_type"
	MetadataPaymentType   = "payment_type"
	MetadataPaymentFlow   = "payment_flow"
)

// Service opens payment sheets for either ledger flow. It never writes the
// ledger; only the webhook confirms a payment.
type Service interface {
	CreatePaymentSheet(ctx context.Context, bidID int64, customerEmail string) (*PaymentSheet, error)
	CreateOrderPaymentSheet(ctx context.Context, orderID, customerEmail string) (*PaymentSheet, error)
}

// PaymentSheet is what the mobile payment sheet needs to collect a payment.
type PaymentSheet struct {
	PaymentIntent  string     `json:"paymentIntent"`
	EphemeralKey   string     `json:"ephemeralKey"`
	Customer       string     `json:"customer"`
	PublishableKey string     `json:"publishableKey"`
	BidDetails     BidDetails `json:"bid_details"`
}

// BidDetails summarizes the charge the sheet represents.
type BidDetails struct {
	BidID         int64               `json:"bid_id"`
	OrderID       string              `json:"order_id,omitempty"`
	QuotationType enums.QuotationType `json:"quotation_type"`
	PaymentType   enums.PaymentLeg    `json:"payment_type"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	FinalPrice    decimal.Decimal     `json:"final_price"`
	LegAmount     decimal.Decimal     `json:"leg_amount"`
	AmountMinor   int64               `json:"amount"`
	Currency      string              `json:"currency"`
	RUTApplied    bool                `json:"rut_applied"`
}

// ServiceParams groups dependencies for the payment sheet service.
type ServiceParams struct {
	Bids           bids.Repository
	Quotations     quotations.Repository
	Gateway        stripe.Gateway
	PublishableKey string
	Currency       string
	Logger         *logger.Logger
}

type service struct {
	bids           bids.Repository
	quotations     quotations.Repository
	gateway        stripe.Gateway
	publishableKey string
	currency       string
	logg           *logger.Logger
}

// NewService constructs a payment sheet service.
func NewService(params ServiceParams) (Service, error) {
	if params.Bids == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bids repository required")
	}
	if params.Quotations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quotations repository required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "sek"
	}
	return &service{
		bids:           params.Bids,
		quotations:     params.Quotations,
		gateway:        params.Gateway,
		publishableKey: params.PublishableKey,
		currency:       currency,
		logg:           params.Logger,
	}, nil
}

func (s *service) CreatePaymentSheet(ctx context.Context, bidID int64, customerEmail string) (*PaymentSheet, error) {
	if bidID <= 0 {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeValidation, "bid_id is required", "bid_id krävs")
	}
	return s.create(ctx, enums.PaymentFlowPartial, bids.BidKey(bidID), customerEmail)
}

func (s *service) CreateOrderPaymentSheet(ctx context.Context, orderID, customerEmail string) (*PaymentSheet, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeValidation, "order_id is required", "order_id krävs")
	}
	return s.create(ctx, enums.PaymentFlowCheckout, orderID, customerEmail)
}

func (s *service) create(ctx context.Context, flow enums.PaymentFlow, key, customerEmail string) (*PaymentSheet, error) {
	email := strings.TrimSpace(customerEmail)
	if email == "" {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeValidation, "customer_email is required", "customer_email krävs")
	}
	ctx = s.logg.WithPayment(ctx, flow.String(), key, "")

	ledger, err := s.bids.Load(ctx, flow, key)
	if err != nil {
		return nil, err
	}
	if !sheetAllowed(ledger.PaymentStatus) {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeValidation,
			"payment already completed or in progress",
			"betalningen är redan genomförd eller pågår").
			WithDetails(map[string]any{"payment_status": ledger.PaymentStatus})
	}

	quotation, err := s.quotations.FindByID(ctx, ledger.QuotationType, ledger.QuotationID)
	if err != nil {
		return nil, err
	}
	if !emailsMatch(quotation, email) {
		s.logg.Warn(ctx, "payment sheet email mismatch")
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeForbidden,
			"email does not match quotation",
			"e-postadressen matchar inte offertförfrågan")
	}

	leg := legForSheet(ledger.PaymentStatus)
	rut := quotations.RUTApplies(ledger.QuotationType, quotation)
	legAmount := ledger.LegAmount(leg)
	amount := money.ChargeMinorUnits(legAmount, rut)
	if money.BelowMinimum(amount) {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeValidation,
			"amount is below the minimum charge of 0.50",
			"beloppet understiger minsta debitering på 0,50").
			WithDetails(map[string]any{"amount": amount})
	}

	customerID, err := s.gateway.CreateCustomer(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}
	ephemeralKey, err := s.gateway.CreateEphemeralKey(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ephemeral key")
	}
	intent, err := s.gateway.CreatePaymentIntent(ctx, stripe.PaymentIntentInput{
		Amount:     amount,
		Currency:   s.currency,
		CustomerID: customerID,
		Metadata:   intentMetadata(ledger, leg),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	ctx = s.logg.WithField(ctx, "payment_intent_id", intent.ID)
	s.logg.Info(ctx, "payment sheet created")

	return &PaymentSheet{
		PaymentIntent:  intent.ClientSecret,
		EphemeralKey:   ephemeralKey,
		Customer:       customerID,
		PublishableKey: s.publishableKey,
		BidDetails: BidDetails{
			BidID:         ledger.BidID,
			OrderID:       ledger.OrderID,
			QuotationType: ledger.QuotationType,
			PaymentType:   leg,
			PaymentStatus: ledger.PaymentStatus,
			FinalPrice:    ledger.FinalPrice,
			LegAmount:     legAmount,
			AmountMinor:   amount,
			Currency:      s.currency,
			RUTApplied:    rut,
		},
	}, nil
}

// sheetAllowed lists the statuses from which a customer may open a sheet.
// awaiting_remaining_payment is where a failed remaining leg lands, so it
// admits a retry with a fresh intent.
func sheetAllowed(status enums.PaymentStatus) bool {
	switch status {
	case enums.PaymentStatusPending,
		enums.PaymentStatusAwaitingInitialPayment,
		enums.PaymentStatusInitialPaid,
		enums.PaymentStatusInitialPaymentCompleted,
		enums.PaymentStatusAwaitingRemaining:
		return true
	default:
		return false
	}
}

// legForSheet charges the initial leg until it settles.
func legForSheet(status enums.PaymentStatus) enums.PaymentLeg {
	if status.InitialSettled() {
		return enums.PaymentLegRemaining
	}
	return enums.PaymentLegInitial
}

func emailsMatch(q *models.Quotation, email string) bool {
	if q == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(q.CustomerEmail), strings.TrimSpace(email))
}

func intentMetadata(l *bids.Ledger, leg enums.PaymentLeg) map[string]string {
	meta := map[string]string{
		MetadataBidID:         strconv.FormatInt(l.BidID, 10),
		MetadataQuotationType: l.QuotationType.String(),
		MetadataPaymentType:   leg.String(),
		MetadataPaymentFlow:   l.Flow.String(),
	}
	if l.OrderID != "" {
		meta[MetadataOrderID] = l.OrderID
	}
	return meta
}
