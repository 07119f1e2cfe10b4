package notification

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/arumata/nautback/internal/usecase"
)

const displayMillis = "3000"

// Adapter implements usecase.NotificationPort with the desktop notifier of
// the running OS. Missing backends and failed deliveries are logged at debug
// level and never reported to the caller.
type Adapter struct {
	logger *slog.Logger
	sound  string
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithSound sets the sound name played with each notification.
func WithSound(sound string) Option {
	return func(a *Adapter) {
		a.sound = strings.TrimSpace(sound)
	}
}

// New creates a new notification adapter.
func New(logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func icon(n usecase.Notification) string {
	if n.Severity == usecase.SeverityError {
		return "dialog-error"
	}
	return "emblem-default"
}

// notifySendArgs builds the notify-send command line.
func notifySendArgs(n usecase.Notification, sound string) []string {
	args := []string{"-i", icon(n), "-t", displayMillis}
	if n.Severity == usecase.SeverityError {
		args = append(args, "-u", "critical")
	}
	if sound != "" {
		args = append(args, "-h", "string:sound-name:"+sound)
	}
	return append(args, n.Title, n.Message)
}

func buildAppleScriptNotification(n usecase.Notification, sound string) string {
	script := fmt.Sprintf("display notification \"%s\" with title \"%s\"",
		escapeAppleScriptString(n.Message), escapeAppleScriptString(n.Title))
	if sound != "" {
		script += fmt.Sprintf(" sound name \"%s\"", escapeAppleScriptString(sound))
	}
	return script
}

func escapeAppleScriptString(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	escaped = strings.ReplaceAll(escaped, "\n", " ")
	escaped = strings.ReplaceAll(escaped, "\r", " ")
	escaped = strings.ReplaceAll(escaped, "\t", " ")
	return escaped
}
