package assistant

import (
	"context"
	"time"
)

type ComponentStatus string

const (
	StatusUp   ComponentStatus = "up"
	StatusDown ComponentStatus = "down"
)

// HealthStatus reports the reachability of each external collaborator.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
}

// ComponentCheck probes a single dependency.
type ComponentCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type systemService struct {
	checks  []ComponentCheck
	timeout time.Duration
}

func NewSystemService(checks ...ComponentCheck) SystemService {
	return &systemService{
		checks:  checks,
		timeout: 5 * time.Second,
	}
}

func (s *systemService) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:     "healthy",
		Components: make(map[string]ComponentStatus, len(s.checks)),
	}

	for _, c := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := c.Check(checkCtx)
		cancel()

		if err != nil {
			status.Components[c.Name] = StatusDown
			status.Status = "unhealthy"
			continue
		}
		status.Components[c.Name] = StatusUp
	}

	return status
}
