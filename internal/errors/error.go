package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryServer   Category = "server"
	CategoryProtocol Category = "protocol"
	CategoryRuntime  Category = "runtime"
	CategoryRender   Category = "render"
	CategoryPublish  Category = "publish"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// RetainError is a structured error with an optional location and a fix hint.
type RetainError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (config, server, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is where the error occurred, if it relates to a file.
	Location *Location

	// Context contains the lines surrounding Location, starting at
	// ContextStart.
	Context      []string
	ContextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *RetainError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *RetainError) Unwrap() error {
	return e.Wrapped
}

// WithLocation points the error at a file position and loads the
// surrounding lines when the file is readable.
func (e *RetainError) WithLocation(file string, line, column int) *RetainError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context, e.ContextStart = readContextLines(file, line, 5)
	return e
}

// WithOffset is WithLocation for a byte offset into data, as reported by
// encoding/json syntax errors.
func (e *RetainError) WithOffset(file string, data []byte, offset int64) *RetainError {
	line, col := 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return e.WithLocation(file, line, col)
}

// WithSuggestion adds a fix suggestion to the error.
func (e *RetainError) WithSuggestion(s string) *RetainError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *RetainError) WithDetail(d string) *RetainError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *RetainError) Wrap(err error) *RetainError {
	e.Wrapped = err
	return e
}

// readContextLines reads up to size lines centred on target and returns
// them with the number of the first one.
func readContextLines(filename string, target, size int) ([]string, int) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	n := 0
	start := max(target-size/2, 1)
	end := target + size/2
	for scanner.Scan() {
		n++
		if n >= start && n <= end {
			lines = append(lines, scanner.Text())
		}
		if n > end {
			break
		}
	}
	return lines, start
}

// New creates a RetainError from a registered error code.
func New(code string) *RetainError {
	template, ok := registry[code]
	if !ok {
		return &RetainError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &RetainError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates an uncoded RetainError with a formatted message.
func Newf(category Category, format string, args ...any) *RetainError {
	return &RetainError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err under code unless it already is a RetainError.
func FromError(err error, code string) *RetainError {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RetainError); ok {
		return re
	}
	return New(code).Wrap(err)
}
