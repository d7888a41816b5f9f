package assistant_test

import (
	"context"
	"errors"
	"testing"

	"kbchat/src/core/assistant"
)

func TestCheckHealth(t *testing.T) {
	healthy := func(ctx context.Context) error { return nil }
	broken := func(ctx context.Context) error { return errors.New("unreachable") }

	tests := []struct {
		name       string
		checks     []assistant.ComponentCheck
		wantStatus string
		wantDown   []string
	}{
		{
			name: "all components up",
			checks: []assistant.ComponentCheck{
				{Name: "postgres", Check: healthy},
				{Name: "minio", Check: healthy},
			},
			wantStatus: "healthy",
		},
		{
			name: "one component down",
			checks: []assistant.ComponentCheck{
				{Name: "postgres", Check: healthy},
				{Name: "redis", Check: broken},
			},
			wantStatus: "unhealthy",
			wantDown:   []string{"redis"},
		},
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: "healthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := assistant.NewSystemService(tt.checks...)
			status := svc.CheckHealth(context.Background())

			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Components) != len(tt.checks) {
				t.Errorf("len(Components) = %d, want %d", len(status.Components), len(tt.checks))
			}
			for _, name := range tt.wantDown {
				if status.Components[name] != assistant.StatusDown {
					t.Errorf("Components[%q] = %q, want down", name, status.Components[name])
				}
			}
		})
	}
}
