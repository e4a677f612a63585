// internal/models/notification.go
package models

import "time"

// NotificationKind classifies a user-facing message.
type NotificationKind string

const (
	NotificationValidationError NotificationKind = "validation-error"
	NotificationSuccess         NotificationKind = "success"
	NotificationFailure         NotificationKind = "failure"
)

// Notification is one toast-style message surfaced to the visitor.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// EmailStatus tracks the email capture form on the results step.
type EmailStatus string

const (
	EmailIdle    EmailStatus = "idle"
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
)

// EmailSubmission is the results step's email capture state.
type EmailSubmission struct {
	Address   string      `json:"address"`
	Status    EmailStatus `json:"status"`
	MessageID string      `json:"messageId,omitempty"`
}

// DeliveryReceipt is returned by an email dispatcher on success.
type DeliveryReceipt struct {
	MessageID string    `json:"messageId"`
	Provider  string    `json:"provider"`
	SentAt    time.Time `json:"sentAt"`
}
