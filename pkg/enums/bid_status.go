package enums

import "fmt"

// BidStatus is the supplier offer lifecycle.
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

var validBidStatuses = []BidStatus{BidStatusPending, BidStatusAccepted, BidStatusRejected}

func (b BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

func ParseBidStatus(value string) (BidStatus, error) {
	for _, candidate := range validBidStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid status %q", value)
}

// LegStatus is the per-installment status kept on bid_payments and checkouts.
type LegStatus string

const (
	LegStatusPending LegStatus = "pending"
	LegStatusPaid    LegStatus = "paid"
)

func (l LegStatus) IsValid() bool {
	return l == LegStatusPending || l == LegStatusPaid
}
