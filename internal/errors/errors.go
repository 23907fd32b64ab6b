// Package errors provides categorized errors for the map toolkit.
//
// Every fatal condition of a run is reported as an *EnhancedError carrying an
// ErrorCategory, so the CLI can log the category and tests can match on it:
//
//	err := errors.New(fmt.Errorf("line %d: bad color", n)).
//		Category(errors.CategoryMapping).
//		Context("file", path).
//		Build()
//
//	if errors.IsCategory(err, errors.CategoryMapping) { ... }
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryInput    ErrorCategory = "input"    // unreadable or corrupt bitmap
	CategoryMapping  ErrorCategory = "mapping"  // malformed mapping table
	CategoryConfig   ErrorCategory = "config"   // invalid options
	CategoryOutput   ErrorCategory = "output"   // output files could not be written
	CategoryGameData ErrorCategory = "gamedata" // manifest or game table errors
	CategoryOverlay  ErrorCategory = "overlay"  // overlay script evaluation
	CategoryGeneric  ErrorCategory = "generic"
)

// EnhancedError wraps an error with a category and context data.
type EnhancedError struct {
	Err      error          // Original error
	Category ErrorCategory  // Error category for better grouping
	Context  map[string]any // Additional context data
}

// Error implements the error interface. Context values are appended in key order.
func (ee *EnhancedError) Error() string {
	if len(ee.Context) == 0 {
		return ee.Err.Error()
	}
	keys := make([]string, 0, len(ee.Context))
	for k := range ee.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(ee.Err.Error())
	sb.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, ee.Context[k])
	}
	sb.WriteString(")")
	return sb.String()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another *EnhancedError by category, otherwise defers to the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return stderrors.Is(ee.Err, target)
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err *EnhancedError
}

// New starts building an enhanced error around err.
func New(err error) *ErrorBuilder {
	if err == nil {
		err = stderrors.New("unknown error")
	}
	return &ErrorBuilder{err: &EnhancedError{Err: err, Category: CategoryGeneric}}
}

// Newf starts building an enhanced error from a format string.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Category sets the error category.
func (b *ErrorBuilder) Category(c ErrorCategory) *ErrorBuilder {
	b.err.Category = c
	return b
}

// Context adds a context key/value pair.
func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]any)
	}
	b.err.Context[key] = value
	return b
}

// Build returns the finished error.
func (b *ErrorBuilder) Build() *EnhancedError {
	out := *b.err
	out.Context = maps.Clone(b.err.Context)
	return &out
}

// CategoryOf returns the category of the first EnhancedError in err's chain,
// or CategoryGeneric when there is none.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if As(err, &ee) {
		return ee.Category
	}
	return CategoryGeneric
}

// IsCategory reports whether err carries category c.
func IsCategory(err error, c ErrorCategory) bool {
	return Is(err, &EnhancedError{Category: c})
}

// Is is a thin wrapper around the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a thin wrapper around the standard library errors.As.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join is a thin wrapper around the standard library errors.Join.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
