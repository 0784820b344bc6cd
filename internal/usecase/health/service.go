package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates storage is down and no request can succeed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckNotLoaded indicates a lazily loaded component that has not started yet.
	CheckNotLoaded CheckResult = "not_loaded"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	ai        CompletionChecker
}

// New creates a Service. embedding and ai can be nil.
func New(db DBPinger, embedding EmbeddingChecker, ai CompletionChecker) *Service {
	return &Service{db: db, embedding: embedding, ai: ai}
}

// Check runs health checks against all components.
// AI failures only degrade: ingestion and search fall back without it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		status = Unhealthy
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		switch {
		case !s.embedding.Loaded():
			checks["embedding"] = CheckNotLoaded
		case s.embedding.HealthCheck(ctx) != nil:
			checks["embedding"] = CheckError
		default:
			checks["embedding"] = CheckOK
		}
	}

	if s.ai != nil {
		if err := s.ai.HealthCheck(ctx); err != nil {
			checks["ai"] = CheckError
		} else {
			checks["ai"] = CheckOK
		}
	}

	if status == Healthy {
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks}
}
