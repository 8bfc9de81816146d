package enums

import "fmt"

// LedgerEntryType is the direction of a supplier ledger movement.
type LedgerEntryType string

const (
	LedgerEntryCredit LedgerEntryType = "CREDIT"
	LedgerEntryDebit  LedgerEntryType = "DEBIT"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryCredit,
	LedgerEntryDebit,
}

func (t LedgerEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known LedgerEntryType.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into a LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}

// LedgerReferenceType names the record a ledger entry points at.
type LedgerReferenceType string

const (
	LedgerReferenceAllocation LedgerReferenceType = "SUPPLIER_PAYMENT_ALLOCATION"
	LedgerReferenceRefund     LedgerReferenceType = "REFUND_REQUEST"
	LedgerReferenceAdjustment LedgerReferenceType = "ADJUSTMENT"
)
