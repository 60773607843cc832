package quotations

import (
	"fmt"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

type variant struct {
	table       string
	supportsRUT bool
}

// variants is the only place a quotation type becomes a table name. Queries
// never interpolate caller input into SQL.
var variants = map[enums.QuotationType]variant{
	enums.QuotationCompanyRelocation:  {table: "company_relocation", supportsRUT: false},
	enums.QuotationMoveOutCleaning:    {table: "move_out_cleaning", supportsRUT: true},
	enums.QuotationHeavyLifting:       {table: "heavy_lifting", supportsRUT: true},
	enums.QuotationPrivateMove:        {table: "private_move", supportsRUT: true},
	enums.QuotationCarryingAssistance: {table: "carrying_assistance", supportsRUT: true},
	enums.QuotationJunkRemoval:        {table: "junk_removal", supportsRUT: true},
	enums.QuotationEstateClearance:    {table: "estate_clearance", supportsRUT: true},
	enums.QuotationEvacuationMove:     {table: "evacuation_move", supportsRUT: true},
	enums.QuotationSecrecyMove:        {table: "secrecy_move", supportsRUT: true},
	enums.QuotationStorage:            {table: "storage", supportsRUT: false},
}

// TableFor returns the storage table backing a quotation type.
func TableFor(qt enums.QuotationType) (string, error) {
	v, ok := variants[qt]
	if !ok {
		return "", fmt.Errorf("unknown quotation type %q", qt)
	}
	return v.table, nil
}

// TableNames lists every quotation table, in enum order.
func TableNames() []string {
	types := enums.QuotationTypes()
	out := make([]string, 0, len(types))
	for _, qt := range types {
		out = append(out, variants[qt].table)
	}
	return out
}

// SupportsRUT reports whether the service type qualifies for the RUT deduction
// at all. Company relocations and storage never do.
func SupportsRUT(qt enums.QuotationType) bool {
	return variants[qt].supportsRUT
}

// RUTApplies combines the variant rule with the customer's opt-in.
func RUTApplies(qt enums.QuotationType, q *models.Quotation) bool {
	if q == nil {
		return false
	}
	return SupportsRUT(qt) && q.RUTEligible
}
