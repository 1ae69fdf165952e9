package config

import "fmt"

// LoadError represents a failure to read or parse a configuration file.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		if e.Cause != nil {
			return fmt.Sprintf("config load error: %s %s: %v", e.Message, e.Path, e.Cause)
		}
		return fmt.Sprintf("config load error: %s %s", e.Message, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("config load error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("config load error: %s", e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
