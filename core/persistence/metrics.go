package persistence

import "github.com/asaidimu/go-hobbies/core/schema"

// MetricsRecorder receives measurements from the persistence service.
type MetricsRecorder interface {
	// ObserveValidation is called once per validated record.
	ObserveValidation(hobbyType string, result *schema.ValidationResult)
	// ObserveOperation is called once per service operation with its outcome.
	ObserveOperation(operation string, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveValidation(string, *schema.ValidationResult) {}
func (nopMetrics) ObserveOperation(string, error) {}
