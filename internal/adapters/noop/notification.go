package noop

import (
	"context"

	"github.com/arumata/nautback/internal/usecase"
)

// NotificationAdapter discards notifications. It backs the engine when
// desktop notifications are turned off.
type NotificationAdapter struct{}

// NewNotificationAdapter creates a no-op notification adapter.
func NewNotificationAdapter() *NotificationAdapter {
	return &NotificationAdapter{}
}

// Send does nothing and returns nil.
func (n *NotificationAdapter) Send(ctx context.Context, _ usecase.Notification) error {
	return nil
}
