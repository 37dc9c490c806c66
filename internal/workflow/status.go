package workflow

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusIdle         Status = "IDLE"
	StatusValidating   Status = "VALIDATING"
	StatusReady        Status = "READY"
	StatusTranscribing Status = "TRANSCRIBING"
	StatusTextReady    Status = "TEXT_READY"
	StatusAligning     Status = "ALIGNING"
	StatusCompleted    Status = "COMPLETED"
	StatusError        Status = "ERROR"
)

// allowed moves besides "anything -> ERROR"
var transitions = map[Status][]Status{
	StatusIdle:         {StatusValidating, StatusTranscribing},
	StatusValidating:   {StatusReady},
	StatusReady:        {StatusTranscribing, StatusValidating},
	StatusTranscribing: {StatusTextReady},
	StatusTextReady:    {StatusAligning, StatusTranscribing},
	StatusAligning:     {StatusCompleted},
	StatusCompleted:    {StatusValidating, StatusTranscribing},
	StatusError:        {StatusIdle, StatusValidating},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// states in which a step is running
func (s Status) InProgress() bool {
	switch s {
	case StatusValidating, StatusTranscribing, StatusAligning:
		return true
	}
	return false
}

func (s Status) CanTransition(to Status) bool {
	if !s.Valid() || !to.Valid() {
		return false
	}
	if to == StatusError {
		return true
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrItemBusy is returned when a step is started on an item that already
// has one running.
var ErrItemBusy = errors.New("item is busy")

// ErrBlockingFindings is returned when drafting is started on an item whose
// validation report has errors. The item stays READY.
var ErrBlockingFindings = errors.New("validation errors block the next step")

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}
