package model

// LedgerAttributes is a sparse set of disclosure flags. Which flags apply
// depends only on the ledger's current grouping; see ApplicableAttributes.
type LedgerAttributes struct {
	IsMSME            bool   `json:"isMSME,omitempty"`
	IsRelatedParty    bool   `json:"isRelatedParty,omitempty"`
	SecuredUnsecured  string `json:"securedUnsecured,omitempty"` // "Secured" | "Unsecured"
	IsDisputed        bool   `json:"isDisputed,omitempty"`
	IsCashNonCash     string `json:"isCashNonCash,omitempty"` // "Cash" | "Non-Cash"
	AgeingApplicable  bool   `json:"ageingApplicable,omitempty"`
	IsForeignCurrency bool   `json:"isForeignCurrency,omitempty"`
	IsExceptional     bool   `json:"isExceptional,omitempty"`
}

// AttributeKey names one field of LedgerAttributes.
type AttributeKey string

const (
	AttrMSME             AttributeKey = "isMSME"
	AttrRelatedParty     AttributeKey = "isRelatedParty"
	AttrSecuredUnsecured AttributeKey = "securedUnsecured"
	AttrDisputed         AttributeKey = "isDisputed"
	AttrCashNonCash      AttributeKey = "isCashNonCash"
	AttrAgeing           AttributeKey = "ageingApplicable"
	AttrForeignCurrency  AttributeKey = "isForeignCurrency"
	AttrExceptional      AttributeKey = "isExceptional"
)

var attributeApplicability = map[string][]AttributeKey{
	// Trade payables
	"B.80.01": {AttrMSME, AttrDisputed, AttrAgeing, AttrForeignCurrency},
	"B.80.02": {AttrDisputed, AttrAgeing, AttrForeignCurrency},
	// Trade receivables
	"A.110.01": {AttrRelatedParty, AttrDisputed, AttrAgeing, AttrForeignCurrency},
	"A.110.02": {AttrRelatedParty, AttrDisputed, AttrAgeing, AttrForeignCurrency},
	"A.110.03": {AttrRelatedParty, AttrAgeing},
	"A.110.04": {AttrRelatedParty, AttrAgeing},
	// Borrowings
	"B.30.01": {AttrSecuredUnsecured, AttrRelatedParty},
	"B.30.02": {AttrSecuredUnsecured, AttrRelatedParty},
	"B.30.05": {AttrSecuredUnsecured, AttrRelatedParty},
	"B.70.01": {AttrSecuredUnsecured},
	"B.70.02": {AttrSecuredUnsecured},
	"B.70.05": {AttrSecuredUnsecured, AttrRelatedParty},
	// Loans and advances
	"A.60.02":  {AttrRelatedParty, AttrSecuredUnsecured},
	"A.130.03": {AttrRelatedParty, AttrSecuredUnsecured},
	// Income and expenses
	"C.20.01": {AttrForeignCurrency},
	"C.20.03": {AttrExceptional},
	"C.20.04": {AttrForeignCurrency},
	"C.70.01": {AttrRelatedParty},
}

// ApplicableAttributes returns the attributes that apply to a grouping code.
// isCashNonCash applies everywhere.
func ApplicableAttributes(groupingCode string) []AttributeKey {
	keys := append([]AttributeKey(nil), attributeApplicability[groupingCode]...)
	return append(keys, AttrCashNonCash)
}

// IsAttributeApplicable reports whether key applies to groupingCode.
func IsAttributeApplicable(groupingCode string, key AttributeKey) bool {
	for _, k := range ApplicableAttributes(groupingCode) {
		if k == key {
			return true
		}
	}
	return false
}

// EffectiveAttributes returns the ledger's attributes with every flag that does
// not apply to its current grouping zeroed. The stored record is not touched.
func EffectiveAttributes(item LedgerItem) LedgerAttributes {
	code := item.GroupingCode()
	in := item.Attributes
	var out LedgerAttributes
	for _, k := range ApplicableAttributes(code) {
		switch k {
		case AttrMSME:
			out.IsMSME = in.IsMSME
		case AttrRelatedParty:
			out.IsRelatedParty = in.IsRelatedParty
		case AttrSecuredUnsecured:
			out.SecuredUnsecured = in.SecuredUnsecured
		case AttrDisputed:
			out.IsDisputed = in.IsDisputed
		case AttrCashNonCash:
			out.IsCashNonCash = in.IsCashNonCash
		case AttrAgeing:
			out.AgeingApplicable = in.AgeingApplicable
		case AttrForeignCurrency:
			out.IsForeignCurrency = in.IsForeignCurrency
		case AttrExceptional:
			out.IsExceptional = in.IsExceptional
		}
	}
	return out
}
