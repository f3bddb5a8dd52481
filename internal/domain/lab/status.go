package lab

import (
	"errors"
	"fmt"
)

const (
	ResultPending   = "Pending"
	ResultCompleted = "Completed"

	// EventRecord is a result value being entered or corrected.
	EventRecord = "record"
)

var ErrInvalidTransition = errors.New("invalid result status transition")

// resultTransitions maps current status -> event -> next status. Recording on
// a Completed result is a correction and stays Completed.
var resultTransitions = map[string]map[string]string{
	"":              {EventRecord: ResultCompleted},
	ResultPending:   {EventRecord: ResultCompleted},
	ResultCompleted: {EventRecord: ResultCompleted},
}

// NextResultStatus returns the status a LabTestResult moves to when event
// happens in status current.
func NextResultStatus(current, event string) (string, error) {
	events, ok := resultTransitions[current]
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
	}
	next, ok := events[event]
	if !ok {
		return "", fmt.Errorf("%w: %q not allowed from %q", ErrInvalidTransition, event, current)
	}
	return next, nil
}
