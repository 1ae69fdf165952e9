package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/content-pipeline/internal/pipeline"
	"github.com/jonathan/content-pipeline/internal/schemas"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// ErrRunNotFound indicates no persisted record has the requested id.
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return "run not found: " + e.RunID
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var notFound *ErrRunNotFound
	var invalid *schemas.ValidationError
	var schemaErr *schemas.SchemaLoadError
	switch {
	case errors.Is(err, ErrRunInProgress):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.As(err, &schemaErr):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoInspirations), errors.Is(err, pipeline.ErrPipelineDisabled):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
