package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoInspirations is returned when an explicitly empty batch is supplied.
var ErrNoInspirations = errors.New("no inspirations supplied")

// ErrPipelineDisabled is returned when pipeline.enabled is false.
var ErrPipelineDisabled = errors.New("pipeline is disabled")

// StageExhaustedError reports a required stage that produced no output. The
// run stops before the next stage.
type StageExhaustedError struct {
	Stage  string
	Reason string
}

func (e *StageExhaustedError) Error() string {
	return fmt.Sprintf("stage %s exhausted: %s", e.Stage, e.Reason)
}

// ArtifactError reports a failed artifact or run record write.
type ArtifactError struct {
	Path  string
	Cause error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("failed to write artifact %s: %v", e.Path, e.Cause)
}

func (e *ArtifactError) Unwrap() error {
	return e.Cause
}
