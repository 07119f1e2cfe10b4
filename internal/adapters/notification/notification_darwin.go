//go:build darwin

package notification

import (
	"context"
	"io"
	"log/slog"
	"os/exec"

	"github.com/arumata/nautback/internal/usecase"
)

// Send sends a desktop notification on macOS.
func (a *Adapter) Send(ctx context.Context, n usecase.Notification) error {
	if ctx.Err() != nil {
		return nil
	}

	notifierPath, err := exec.LookPath("terminal-notifier")
	if err == nil {
		args := []string{"-title", n.Title, "-message", n.Message}
		if a.sound != "" {
			args = append(args, "-sound", a.sound)
		}
		// #nosec G204 -- arguments are passed directly, no shell is involved.
		cmd := exec.CommandContext(ctx, notifierPath, args...)
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
		if runErr := cmd.Run(); runErr != nil {
			a.logger.Debug("notification failed", slog.Any("err", runErr))
		}
		return nil
	}

	if ctx.Err() != nil {
		return nil
	}

	// #nosec G204 -- the script is built from escaped strings.
	cmd := exec.CommandContext(ctx, "osascript", "-e", buildAppleScriptNotification(n, a.sound))
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if runErr := cmd.Run(); runErr != nil {
		a.logger.Debug("notification failed", slog.Any("err", runErr))
	}
	return nil
}
