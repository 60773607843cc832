package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationPaymentReceived   NotificationType = "payment_received"
	NotificationPaymentFailed     NotificationType = "payment_failed"
	NotificationOrderCompleted    NotificationType = "order_completed"
	NotificationPaymentReleaseDue NotificationType = "payment_release_due"
	NotificationReviewReceived    NotificationType = "review_received"
)

var validNotificationTypes = []NotificationType{
	NotificationPaymentReceived,
	NotificationPaymentFailed,
	NotificationOrderCompleted,
	NotificationPaymentReleaseDue,
	NotificationReviewReceived,
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// Role is both the JWT role claim and the notification recipient type.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSupplier Role = "supplier"
	RoleCustomer Role = "customer"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleSupplier || r == RoleCustomer
}

func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role %q", value)
	}
	return role, nil
}
