package rendering

import (
	"errors"
	"fmt"
	"os"
)

// TemplateError represents an error loading or filling a Typst template
type TemplateError struct {
	Name    string
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s: %s", e.Name, e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// NotFound reports whether the template does not exist.
func (e *TemplateError) NotFound() bool {
	return errors.Is(e.Cause, os.ErrNotExist)
}

// RenderError represents a failure preparing or running a render outside the compiler itself
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// CompilationError represents a Typst compilation failure.
// Diagnostics holds the compiler's diagnostic output.
type CompilationError struct {
	Message     string
	Diagnostics string
	Cause       error
}

func (e *CompilationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("typst compilation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("typst compilation error: %s", e.Message)
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// ImageError represents an embedded image that could not be decoded or normalized
type ImageError struct {
	Message string
	Cause   error
}

func (e *ImageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("image error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("image error: %s", e.Message)
}

func (e *ImageError) Unwrap() error {
	return e.Cause
}
