// Package rooms decides which realtime rooms a caller may watch.
package rooms

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
)

const (
	prefixBid   = "bid:"
	prefixOrder = "order:"
)

type ledgerLoader interface {
	Load(ctx context.Context, flow enums.PaymentFlow, key string) (*bids.Ledger, error)
}

type quotationReader interface {
	FindByID(ctx context.Context, qt enums.QuotationType, id int64) (*models.Quotation, error)
}

// Caller is who is asking to join.
type Caller struct {
	Role  enums.Role
	Email string
	// Subject is the supplier id for suppliers.
	Subject string
}

// Access answers room join requests. Admins watch any room; suppliers watch
// their own bids and orders; customers watch the ones on their quotations.
type Access struct {
	ledgers    ledgerLoader
	quotations quotationReader
}

func NewAccess(ledgers ledgerLoader, quotations quotationReader) (*Access, error) {
	if ledgers == nil {
		return nil, errors.New("ledger repository required")
	}
	if quotations == nil {
		return nil, errors.New("quotation repository required")
	}
	return &Access{ledgers: ledgers, quotations: quotations}, nil
}

// ParseRoom maps a room name to the ledger it watches.
func ParseRoom(room string) (enums.PaymentFlow, string, bool) {
	switch {
	case strings.HasPrefix(room, prefixBid):
		key := strings.TrimPrefix(room, prefixBid)
		if id, err := strconv.ParseInt(key, 10, 64); err != nil || id <= 0 {
			return "", "", false
		}
		return enums.PaymentFlowPartial, key, true
	case strings.HasPrefix(room, prefixOrder):
		key := strings.TrimPrefix(room, prefixOrder)
		if strings.TrimSpace(key) == "" {
			return "", "", false
		}
		return enums.PaymentFlowCheckout, key, true
	default:
		return "", "", false
	}
}

// CanJoin reports whether caller may join room. Unknown rooms and ledgers are
// refused without an error.
func (a *Access) CanJoin(ctx context.Context, caller Caller, room string) (bool, error) {
	flow, key, ok := ParseRoom(room)
	if !ok || !caller.Role.IsValid() {
		return false, nil
	}
	if caller.Role == enums.RoleAdmin {
		return true, nil
	}

	ledger, err := a.ledgers.Load(ctx, flow, key)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}

	switch caller.Role {
	case enums.RoleSupplier:
		return caller.Subject != "" && caller.Subject == strconv.FormatInt(ledger.SupplierID, 10), nil
	case enums.RoleCustomer:
		quotation, err := a.quotations.FindByID(ctx, ledger.QuotationType, ledger.QuotationID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return false, nil
			}
			return false, err
		}
		email := strings.TrimSpace(caller.Email)
		return email != "" && strings.EqualFold(strings.TrimSpace(quotation.CustomerEmail), email), nil
	default:
		return false, nil
	}
}
