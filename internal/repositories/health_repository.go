package repositories

import (
	"context"
	"strings"
	"time"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// DependencyCheck describes a dependency probe executed during readiness checks.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

type dependencyHealthRepository struct {
	checks         []DependencyCheck
	defaultTimeout time.Duration
	now            func() time.Time
}

// NewDependencyHealthRepository builds a HealthRepository probing the given dependencies.
func NewDependencyHealthRepository(checks ...DependencyCheck) HealthRepository {
	valid := make([]DependencyCheck, 0, len(checks))
	for _, check := range checks {
		if strings.TrimSpace(check.Name) == "" || check.Check == nil {
			continue
		}
		valid = append(valid, check)
	}
	return &dependencyHealthRepository{
		checks:         valid,
		defaultTimeout: defaultDependencyTimeout,
		now:            time.Now,
	}
}

// Check runs every dependency probe and aggregates the results.
func (r *dependencyHealthRepository) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Details: make(map[string]string, len(r.checks)),
		At:      r.now().UTC(),
	}

	for _, check := range r.checks {
		timeout := check.Timeout
		if timeout <= 0 {
			timeout = r.defaultTimeout
		}
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		err := check.Check(probeCtx)
		cancel()

		if err != nil {
			status.Healthy = false
			status.Details[check.Name] = err.Error()
			continue
		}
		status.Details[check.Name] = "ok"
	}
	return status
}
