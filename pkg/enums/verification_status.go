package enums

// BankVerificationStatus is the state of a supplier's bank profile review.
type BankVerificationStatus string

const (
	BankVerificationPending  BankVerificationStatus = "pending"
	BankVerificationVerified BankVerificationStatus = "verified"
	BankVerificationRejected BankVerificationStatus = "rejected"
)
