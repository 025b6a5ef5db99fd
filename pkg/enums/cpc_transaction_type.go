package enums

import "fmt"

// CpcTransactionType classifies a ledger entry as funding or spend.
type CpcTransactionType string

const (
	CpcTransactionTypeCredit CpcTransactionType = "credit"
	CpcTransactionTypeDebit  CpcTransactionType = "debit"
)

var validCpcTransactionTypes = []CpcTransactionType{
	CpcTransactionTypeCredit,
	CpcTransactionTypeDebit,
}

// String implements fmt.Stringer.
func (t CpcTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t CpcTransactionType) IsValid() bool {
	for _, candidate := range validCpcTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCpcTransactionType converts raw input into a CpcTransactionType.
func ParseCpcTransactionType(value string) (CpcTransactionType, error) {
	for _, candidate := range validCpcTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cpc transaction type %q", value)
}
