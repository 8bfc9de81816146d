package enums

import "fmt"

// NotificationType categorizes an in-app notification.
type NotificationType string

const (
	NotificationTypePurchaseOrderStatus NotificationType = "purchase_order_status"
	NotificationTypeDeliveryCode        NotificationType = "delivery_code"
	NotificationTypeRiderAssigned       NotificationType = "rider_assigned"
	NotificationTypeActionCode          NotificationType = "action_code"
	NotificationTypePayoutReleased      NotificationType = "payout_released"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePurchaseOrderStatus,
	NotificationTypeDeliveryCode,
	NotificationTypeRiderAssigned,
	NotificationTypeActionCode,
	NotificationTypePayoutReleased,
}

func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationGroup addresses every user holding a role rather than one user.
type NotificationGroup string

const (
	NotificationGroupAdmins NotificationGroup = "admin"
)
