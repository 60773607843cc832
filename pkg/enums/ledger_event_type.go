package enums

// LedgerEventType labels rows in the append-only ledger_events audit table.
type LedgerEventType string

const (
	LedgerEventLegPaid        LedgerEventType = "leg_paid"
	LedgerEventLegFailed      LedgerEventType = "leg_failed"
	LedgerEventAmountAdjusted LedgerEventType = "amount_adjusted"
)

func (l LedgerEventType) IsValid() bool {
	switch l {
	case LedgerEventLegPaid, LedgerEventLegFailed, LedgerEventAmountAdjusted:
		return true
	}
	return false
}
