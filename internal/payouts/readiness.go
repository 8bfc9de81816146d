package payouts

import (
	"strings"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

// ReadinessError lists what keeps a supplier from receiving payouts.
type ReadinessError struct {
	SupplierID string   `json:"supplier_id"`
	Missing    []string `json:"missing"`
}

// CheckReadiness fails with a precondition error naming every unmet
// requirement. An empty supportedCountries list waives the country check.
func CheckReadiness(supplier *models.Supplier, supportedCountries []string) error {
	if supplier == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	missing := []string{}
	if supplier.PayoutDisabled {
		missing = append(missing, "payouts_enabled")
	}
	if supplier.BankVerificationStatus != enums.BankVerificationVerified {
		missing = append(missing, "bank_verification")
	}
	if blank(supplier.AccountNumber) {
		missing = append(missing, "account_number")
	}
	if blank(supplier.AccountName) {
		missing = append(missing, "account_name")
	}
	if blank(supplier.BankCode) {
		missing = append(missing, "bank_code")
	}
	if len(supportedCountries) > 0 && !countrySupported(supplier.Country, supportedCountries) {
		missing = append(missing, "country")
	}
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodePrecondition, "supplier is not ready for payouts").
		WithDetails(ReadinessError{SupplierID: supplier.ID.String(), Missing: missing})
}

func blank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

func countrySupported(country *string, supported []string) bool {
	if blank(country) {
		return false
	}
	for _, c := range supported {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(*country)) {
			return true
		}
	}
	return false
}
