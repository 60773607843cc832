package enums

import "fmt"

// QuotationType names the service a customer requested. Each variant is stored
// in its own table; internal/quotations owns the variant to table mapping.
type QuotationType string

const (
	QuotationCompanyRelocation  QuotationType = "company_relocation"
	QuotationMoveOutCleaning    QuotationType = "move_out_cleaning"
	QuotationHeavyLifting       QuotationType = "heavy_lifting"
	QuotationPrivateMove        QuotationType = "private_move"
	QuotationCarryingAssistance QuotationType = "carrying_assistance"
	QuotationJunkRemoval        QuotationType = "junk_removal"
	QuotationEstateClearance    QuotationType = "estate_clearance"
	QuotationEvacuationMove     QuotationType = "evacuation_move"
	QuotationSecrecyMove        QuotationType = "secrecy_move"
	QuotationStorage            QuotationType = "storage"
)

var validQuotationTypes = []QuotationType{
	QuotationCompanyRelocation,
	QuotationMoveOutCleaning,
	QuotationHeavyLifting,
	QuotationPrivateMove,
	QuotationCarryingAssistance,
	QuotationJunkRemoval,
	QuotationEstateClearance,
	QuotationEvacuationMove,
	QuotationSecrecyMove,
	QuotationStorage,
}

// QuotationTypes returns every known variant.
func QuotationTypes() []QuotationType {
	out := make([]QuotationType, len(validQuotationTypes))
	copy(out, validQuotationTypes)
	return out
}

func (q QuotationType) String() string {
	return string(q)
}

func (q QuotationType) IsValid() bool {
	for _, candidate := range validQuotationTypes {
		if candidate == q {
			return true
		}
	}
	return false
}

func ParseQuotationType(value string) (QuotationType, error) {
	for _, candidate := range validQuotationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quotation type %q", value)
}
