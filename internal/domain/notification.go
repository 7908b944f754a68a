package domain

import "time"

// NotificationType categorizes outbound notifications.
type NotificationType string

const (
	NotificationTypeAssignment NotificationType = "ASSIGNMENT"
	NotificationTypeEscalation NotificationType = "ESCALATION"
	NotificationTypeCrisis     NotificationType = "CRISIS"
)

// NotificationRecord is an outbound message handed to the notification
// sink. Delivery and rendering are the sink's problem.
type NotificationRecord struct {
	ID          string
	RecipientID string
	Title       string
	Message     string
	Type        NotificationType
	ActionURL   *string
	Metadata    map[string]any
	CreatedAt   time.Time
}
