//go:build !linux && !darwin

package notification

import (
	"context"

	"github.com/arumata/nautback/internal/usecase"
)

// Send logs the notification; this platform has no supported backend.
func (a *Adapter) Send(ctx context.Context, n usecase.Notification) error {
	a.logger.Debug("notification", "title", n.Title, "message", n.Message)
	return nil
}
