package reviews

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/pkg/db"
	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
)

const (
	maxIssues         = 10
	maxCommentLength  = 2000
	maxDescriptionLen = 1000
)

type SubmitInput struct {
	BidID         int64
	CustomerEmail string
	Rating        int
	Comment       string
	Issues        []IssueInput
}

type IssueInput struct {
	Category    string
	Description string
}

// Service accepts one review per completed bid from the customer who paid for it.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Review, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerFinder interface {
	FindByBid(ctx context.Context, bidID int64) (*bids.Ledger, error)
}

type quotationReader interface {
	FindByID(ctx context.Context, qt enums.QuotationType, id int64) (*models.Quotation, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	DB         txRunner
	Repository Repository
	Ledgers    ledgerFinder
	Quotations quotationReader
	Outbox     outboxEmitter
	Logger     *logger.Logger
	PublicURL  string
}

type service struct {
	db         txRunner
	repo       Repository
	ledgers    ledgerFinder
	quotations quotationReader
	outbox     outboxEmitter
	logg       *logger.Logger
	publicURL  string
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("reviews repository is required")
	}
	if params.Ledgers == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if params.Quotations == nil {
		return nil, fmt.Errorf("quotations repository is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	return &service{
		db:         params.DB,
		repo:       params.Repository,
		ledgers:    params.Ledgers,
		quotations: params.Quotations,
		outbox:     params.Outbox,
		logg:       params.Logger,
		publicURL:  strings.TrimRight(params.PublicURL, "/"),
	}, nil
}

func validate(input SubmitInput) error {
	if input.BidID <= 0 {
		return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "bid_id is required", "bid_id krävs")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "rating must be between 1 and 5", "betyget måste vara mellan 1 och 5")
	}
	if len(input.Comment) > maxCommentLength {
		return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "comment is too long", "kommentaren är för lång")
	}
	if len(input.Issues) > maxIssues {
		return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "too many issues", "för många problem angivna")
	}
	for i, issue := range input.Issues {
		if strings.TrimSpace(issue.Category) == "" || strings.TrimSpace(issue.Description) == "" {
			return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "issue category and description are required", "kategori och beskrivning krävs").
				WithDetails(map[string]any{"index": i})
		}
		if len(issue.Description) > maxDescriptionLen {
			return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "issue description is too long", "beskrivningen är för lång").
				WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Review, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	if email == "" {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeUnauthorized, "customer email required", "kundens e-postadress krävs")
	}

	ledger, err := s.ledgers.FindByBid(ctx, input.BidID)
	if err != nil {
		return nil, err
	}
	if ledger.OrderStatus != enums.OrderStatusCompleted {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeStateConflict, "order is not completed", "ordern är inte slutförd")
	}
	quotation, err := s.quotations.FindByID(ctx, ledger.QuotationType, ledger.QuotationID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(quotation.CustomerEmail), email) {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeForbidden, "only the customer can review this order", "endast kunden kan recensera denna order")
	}

	review := &models.Review{
		BidID:      input.BidID,
		SupplierID: ledger.SupplierID,
		Email:      email,
		Rating:     input.Rating,
	}
	if comment := strings.TrimSpace(input.Comment); comment != "" {
		review.Comment = &comment
	}
	for _, issue := range input.Issues {
		review.Issues = append(review.Issues, models.ReviewIssue{
			Category:    strings.ToLower(strings.TrimSpace(issue.Category)),
			Description: strings.TrimSpace(issue.Description),
		})
	}

	bidKey := bids.BidKey(input.BidID)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, review); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateReview,
			AggregateID:   bidKey,
			Version:       1,
			OccurredAt:    time.Now().UTC(),
			Data: payloads.NotificationRequestedEvent{
				RecipientType: enums.RoleSupplier,
				RecipientID:   strconv.FormatInt(ledger.SupplierID, 10),
				Type:          enums.NotificationReviewReceived,
				Title:         "Ny recension / New review",
				Message:       fmt.Sprintf("Du fick %d av 5 för %s. / You received %d of 5 for %s.", input.Rating, ledger.Reference(), input.Rating, ledger.Reference()),
				Link:          fmt.Sprintf("%s/supplier/reviews?bid_id=%s", s.publicURL, bidKey),
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.NewBilingual(pkgerrors.CodeConflict, "a review already exists for this bid", "en recension finns redan för detta bud")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store review")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"bid_id": input.BidID, "rating": input.Rating, "issues": len(review.Issues)})
	s.logg.Info(logCtx, "review.submitted")
	return review, nil
}
