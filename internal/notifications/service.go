package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Recipient identifies whose inbox a notification lands in. ID is the
// supplier id for suppliers and the email address for admins and customers.
type Recipient struct {
	Type enums.Role
	ID   string
}

func (r Recipient) validate() error {
	if !r.Type.IsValid() {
		return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "recipient type required", "mottagartyp saknas")
	}
	if strings.TrimSpace(r.ID) == "" {
		return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "recipient id required", "mottagar-id saknas")
	}
	return nil
}

// Service defines notification list/read operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipient Recipient) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Recipient  Recipient
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := params.Recipient.validate(); err != nil {
		return nil, err
	}

	query := listNotificationsParams{
		Recipient:  params.Recipient,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
				WithSwedish("ogiltig markör")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	if rows == nil {
		rows = []models.Notification{}
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID) error {
	if err := recipient.validate(); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.NewBilingual(pkgerrors.CodeValidation, "notification id required", "notis-id saknas")
	}

	result, err := s.repo.MarkRead(ctx, recipient, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.NewBilingual(pkgerrors.CodeNotFound, "notification not found", "notisen hittades inte")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipient Recipient) (int64, error) {
	if err := recipient.validate(); err != nil {
		return 0, err
	}

	count, err := s.repo.MarkAllRead(ctx, recipient, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
