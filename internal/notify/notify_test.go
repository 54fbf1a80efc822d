package notify

import (
	"log/slog"
	"os"
	"testing"

	"tunepull/internal/config"
)

func newTestLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestNewMethodResolution(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Notify
		want string
	}{
		{
			name: "disabled forces none",
			cfg:  config.Notify{Enabled: false, Method: "notify-send"},
			want: methodNone,
		},
		{
			name: "explicit notify-send",
			cfg:  config.Notify{Enabled: true, Method: "notify-send"},
			want: methodNotifySend,
		},
		{
			name: "explicit osascript",
			cfg:  config.Notify{Enabled: true, Method: "osascript"},
			want: methodOsascript,
		},
		{
			name: "explicit none",
			cfg:  config.Notify{Enabled: true, Method: "none"},
			want: methodNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(newTestLog(), tt.cfg)
			if svc.method != tt.want {
				t.Errorf("expected %q, got %q", tt.want, svc.method)
			}
		})
	}
}

func TestNewAutoPicksPlatformMethod(t *testing.T) {
	svc := New(newTestLog(), config.Notify{Enabled: true, Method: "auto"})

	switch svc.method {
	case methodNotifySend, methodOsascript, methodNone:
	default:
		t.Errorf("auto resolved to unknown method %q", svc.method)
	}
}

func TestSendNoneIsNoop(t *testing.T) {
	svc := New(newTestLog(), config.Notify{Enabled: false})

	// must not shell out or block
	svc.Send(t.Context(), "title", "message")
}
