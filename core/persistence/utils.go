package persistence

import (
	"errors"
	"time"

	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/asaidimu/go-hobbies/utils"
)

// snapshot detaches struct inputs from the caller, so subscribers never share
// maps such as EntryInput.Data with the running operation. Other values are
// passed through.
func snapshot(input any) any {
	if input == nil {
		return nil
	}
	m, err := utils.StructToMap(input)
	if err != nil {
		return input
	}
	return m
}

func createEvent(
	eventType PersistenceEventType,
	operation string,
	owner string,
	hobbyType string,
	input any,
	output any,
	err *string,
	issues []schema.Issue,
	startTime time.Time,
) PersistenceEvent {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	var hobbyTypePtr *string
	if hobbyType != "" {
		hobbyTypePtr = &hobbyType
	}

	return PersistenceEvent{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Operation: operation,
		Owner:     owner,
		HobbyType: hobbyTypePtr,
		Input:     snapshot(input),
		Output:    output,
		Error:     err,
		Issues:    issues,
		Duration:  duration,
	}
}

// issuesOf extracts the validation issues carried by err, if any.
func issuesOf(err error) []schema.Issue {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return verr.Issues
	}
	return nil
}
