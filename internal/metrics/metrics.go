// Package metrics records validation and persistence outcomes as Prometheus
// counters.
package metrics

import (
	"errors"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeAccepted = "accepted"
	OutcomeWarned   = "warned"
	OutcomeRejected = "rejected"
	OutcomeSuccess  = "success"
)

// Recorder implements persistence.MetricsRecorder on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	validations *prometheus.CounterVec
	issues      *prometheus.CounterVec
	operations  *prometheus.CounterVec
}

var _ persistence.MetricsRecorder = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hobbies_validations_total",
				Help: "Records validated, by hobby type and outcome",
			},
			[]string{"hobby_type", "outcome"},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hobbies_validation_issues_total",
				Help: "Validation issues found, by issue code",
			},
			[]string{"code"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hobbies_operations_total",
				Help: "Persistence operations, by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
	r.registry.MustRegister(r.validations, r.issues, r.operations)
	return r
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveValidation counts one validated record and its issues. A record
// accepted with issues under the log policy counts as warned.
func (r *Recorder) ObserveValidation(hobbyType string, result *schema.ValidationResult) {
	if result == nil {
		return
	}
	outcome := OutcomeAccepted
	switch {
	case !result.Valid:
		outcome = OutcomeRejected
	case len(result.Issues) > 0:
		outcome = OutcomeWarned
	}
	r.validations.WithLabelValues(hobbyType, outcome).Inc()
	for _, issue := range result.Issues {
		r.issues.WithLabelValues(issue.Code).Inc()
	}
}

// ObserveOperation counts one service operation. Failures are labelled with
// the sentinel they wrap.
func (r *Recorder) ObserveOperation(operation string, err error) {
	r.operations.WithLabelValues(operation, errorOutcome(err)).Inc()
}

func errorOutcome(err error) string {
	var verr *schema.ValidationError
	var defErr *schema.DefinitionError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &defErr):
		return "bad_definition"
	case errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case errors.Is(err, persistence.ErrForbidden):
		return "forbidden"
	case errors.Is(err, persistence.ErrConflict):
		return "conflict"
	case errors.Is(err, persistence.ErrInvalidTag):
		return "invalid_tag"
	case errors.Is(err, persistence.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

// WriteToTextfile writes the current values in the node exporter textfile
// format.
func (r *Recorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
