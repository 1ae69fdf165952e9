// Package steps defines the pipeline stages and the dependencies between them.
package steps

import "fmt"

// Stage names.
const (
	Outline = "outline"
	Write   = "write"
	Format  = "format"
	Publish = "publish"
)

// Config module names gating each stage.
const (
	ModuleOutline   = "outline"
	ModuleWriter    = "writer"
	ModuleFormatter = "formatter"
	ModulePublisher = "publisher"
)

// StageDefinition defines metadata for a pipeline stage
type StageDefinition struct {
	Name         string
	Module       string
	Dependencies []string
	// Required stages end the run when they produce nothing.
	Required bool
}

// Order is the fixed execution order.
var Order = []string{Outline, Write, Format, Publish}

// StageRegistry holds all stage definitions
var StageRegistry = map[string]StageDefinition{
	Outline: {
		Name:         Outline,
		Module:       ModuleOutline,
		Dependencies: []string{},
		Required:     true,
	},
	Write: {
		Name:         Write,
		Module:       ModuleWriter,
		Dependencies: []string{Outline},
		Required:     true,
	},
	Format: {
		Name:         Format,
		Module:       ModuleFormatter,
		Dependencies: []string{Write},
		Required:     true,
	},
	Publish: {
		Name:         Publish,
		Module:       ModulePublisher,
		Dependencies: []string{Format},
	},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Stage               string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s missing dependencies: %v", e.Stage, e.MissingDependencies)
}

// ValidateDependencies checks that every dependency of stage has completed.
func ValidateDependencies(stage string, completed map[string]bool) error {
	def, ok := StageRegistry[stage]
	if !ok {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{
			Stage:               stage,
			MissingDependencies: missing,
		}
	}
	return nil
}

// Available returns the stages, in order, that have not completed and whose
// dependencies have.
func Available(completed map[string]bool) []string {
	var available []string
	for _, name := range Order {
		if completed[name] {
			continue
		}
		if err := ValidateDependencies(name, completed); err != nil {
			continue
		}
		available = append(available, name)
	}
	return available
}

// Blocked returns the stages, in order, whose dependencies have not completed.
func Blocked(completed map[string]bool) []string {
	var blocked []string
	for _, name := range Order {
		if completed[name] {
			continue
		}
		if err := ValidateDependencies(name, completed); err != nil {
			blocked = append(blocked, name)
		}
	}
	return blocked
}
