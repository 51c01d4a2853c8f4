package pipeline

import (
	"errors"
	"fmt"
)

// Stage is the position of a pipeline in the ingestion flow
type Stage int

const (
	StageIdle Stage = iota
	StageProcessing
	StageReview
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageProcessing:
		return "processing"
	case StageReview:
		return "review"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StageIdle
	case "processing":
		*s = StageProcessing
	case "review":
		*s = StageReview
	case "done":
		*s = StageDone
	default:
		return fmt.Errorf("unknown stage %q", text)
	}
	return nil
}

// Event drives a stage transition
type Event int

const (
	EventUpload Event = iota
	EventProcessed
	EventSubmit
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventUpload:
		return "upload"
	case EventProcessed:
		return "processed"
	case EventSubmit:
		return "submit"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidEdits      = errors.New("invalid edits")
	ErrRunCancelled      = errors.New("processing was cancelled by reset")
)

// TransitionError reports an event that is not allowed in the current stage
type TransitionError struct {
	From  Stage
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

var transitions = map[Stage]map[Event]Stage{
	StageIdle: {
		EventUpload: StageProcessing,
		EventReset:  StageIdle,
	},
	StageProcessing: {
		EventProcessed: StageReview,
		EventReset:     StageIdle,
	},
	StageReview: {
		EventSubmit: StageDone,
		EventReset:  StageIdle,
	},
	StageDone: {
		EventReset: StageIdle,
	},
}

// Next returns the stage reached by applying ev in from
func Next(from Stage, ev Event) (Stage, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, &TransitionError{From: from, Event: ev}
	}
	return to, nil
}
