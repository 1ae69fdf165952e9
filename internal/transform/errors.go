package transform

import "fmt"

// Stage names used in TransformError.
const (
	StageOutline = "outline"
	StageWrite   = "write"
	StageFormat  = "format"
)

// TransformError is a per-item failure inside one stage.
type TransformError struct {
	Stage   string
	Item    string
	Message string
	Cause   error
}

func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed for %q: %s: %v", e.Stage, e.Item, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s failed for %q: %s", e.Stage, e.Item, e.Message)
}

func (e *TransformError) Unwrap() error {
	return e.Cause
}
