package enums

// PayoutStatus tracks whether a purchase order's supplier funds were released.
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "PENDING"
	PayoutStatusReleased PayoutStatus = "RELEASED"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusReleased,
}

func (p PayoutStatus) String() string {
	return string(p)
}

func (p PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// AllocationStatus is the hold state of a payment share earmarked for one purchase order.
type AllocationStatus string

const (
	AllocationStatusPending AllocationStatus = "PENDING"
	AllocationStatusPaid    AllocationStatus = "PAID"
)

var validAllocationStatuses = []AllocationStatus{
	AllocationStatusPending,
	AllocationStatusPaid,
}

func (a AllocationStatus) String() string {
	return string(a)
}

func (a AllocationStatus) IsValid() bool {
	for _, candidate := range validAllocationStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}
