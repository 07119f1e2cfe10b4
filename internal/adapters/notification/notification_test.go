package notification

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/arumata/nautback/internal/usecase"
)

func TestAdapterSend_NoError(t *testing.T) {
	t.Setenv("PATH", "")
	adapter := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := adapter.Send(context.Background(), usecase.Notification{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestAdapterSend_ContextCanceled(t *testing.T) {
	t.Setenv("PATH", "")
	adapter := New(nil, WithSound("Glass"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := usecase.Notification{Title: "title", Message: "message"}
	if err := adapter.Send(ctx, n); err != nil {
		t.Fatalf("expected nil error for canceled context, got %v", err)
	}
}

func TestNotifySendArgs(t *testing.T) {
	tests := []struct {
		name  string
		n     usecase.Notification
		sound string
		want  []string
	}{
		{
			name: "info",
			n:    usecase.Notification{Title: "Backup Complete ✓", Message: "Backed up to:\n/home/u"},
			want: []string{"-i", "emblem-default", "-t", "3000", "Backup Complete ✓", "Backed up to:\n/home/u"},
		},
		{
			name:  "error with sound",
			n:     usecase.Notification{Title: "Backup Failed", Message: "boom", Severity: usecase.SeverityError},
			sound: "bell",
			want: []string{
				"-i", "dialog-error", "-t", "3000", "-u", "critical",
				"-h", "string:sound-name:bell", "Backup Failed", "boom",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := notifySendArgs(tt.n, tt.sound)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("notifySendArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildAppleScriptNotification(t *testing.T) {
	n := usecase.Notification{Title: `Say "hi"`, Message: "line1\nline2"}
	got := buildAppleScriptNotification(n, "Glass")
	want := `display notification "line1 line2" with title "Say \"hi\"" sound name "Glass"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
