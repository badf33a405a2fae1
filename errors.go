package propgrid

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeInvalidValue  ErrorType = "invalid_value"
	ErrorTypeInvalidState  ErrorType = "invalid_state"
	ErrorTypeInvalidConfig ErrorType = "invalid_config"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeStorage       ErrorType = "storage"
)

// PropertyError is the error returned by property mutations, type resolution,
// tree builders and collapse-state stores.
type PropertyError struct {
	Type     ErrorType      `json:"type"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Property string         `json:"property,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Cause    error          `json:"-"`
}

func (e *PropertyError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.Property != "" {
		return fmt.Sprintf("[%s:%s] property '%s': %s", e.Type, e.Code, e.Property, msg)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, msg)
}

func (e *PropertyError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to a PropertyError
func (e *PropertyError) WithDetails(details map[string]any) *PropertyError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail adds a single detail to a PropertyError
func (e *PropertyError) WithDetail(key string, value any) *PropertyError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a PropertyError
func (e *PropertyError) WithCause(cause error) *PropertyError {
	e.Cause = cause
	return e
}

// WithProperty names the property the error refers to.
func (e *PropertyError) WithProperty(name string) *PropertyError {
	e.Property = name
	return e
}

const (
	// Value errors
	ErrCodeValueRejected = "VALUE_REJECTED"
	ErrCodeValueNotMap   = "VALUE_NOT_MAP"

	// Tree state errors
	ErrCodeReadOnlyType     = "READ_ONLY_TYPE"
	ErrCodeNilChild         = "NIL_CHILD"
	ErrCodeDuplicateChild   = "DUPLICATE_CHILD"
	ErrCodeIndexOutOfRange  = "INDEX_OUT_OF_RANGE"
	ErrCodeCycle            = "CYCLE"
	ErrCodeReadOnlyProperty = "READ_ONLY_PROPERTY"

	// Builder errors
	ErrCodeTypeMissing     = "TYPE_MISSING"
	ErrCodeTypeMismatch    = "TYPE_MISMATCH"
	ErrCodeUnknownType     = "UNKNOWN_TYPE"
	ErrCodeInvalidDocument = "INVALID_DOCUMENT"

	// Storage errors
	ErrCodeStateNotFound = "STATE_NOT_FOUND"
	ErrCodeStorageFailed = "STORAGE_FAILED"
	ErrCodeCircuitOpen   = "CIRCUIT_OPEN"
)

// NewPropertyError creates a new PropertyError
func NewPropertyError(errorType ErrorType, code, message string) *PropertyError {
	return &PropertyError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewValueRejectedError reports a value the property type does not accept.
func NewValueRejectedError(property string, value any) *PropertyError {
	return &PropertyError{
		Type:     ErrorTypeInvalidValue,
		Code:     ErrCodeValueRejected,
		Message:  fmt.Sprintf("value %v (%T) is not assignable", value, value),
		Property: property,
		Details:  map[string]any{"value": value},
	}
}

// NewValueNotMapError reports a non-map value given to a grouping composite.
func NewValueNotMapError(property string, value any) *PropertyError {
	return &PropertyError{
		Type:     ErrorTypeInvalidValue,
		Code:     ErrCodeValueNotMap,
		Message:  fmt.Sprintf("expected map[string]any, got %T", value),
		Property: property,
		Details:  make(map[string]any),
	}
}

// NewReadOnlyTypeError reports an attempt to make a property editable while its
// type is read-only.
func NewReadOnlyTypeError(property string) *PropertyError {
	return &PropertyError{
		Type:     ErrorTypeInvalidState,
		Code:     ErrCodeReadOnlyType,
		Message:  "property type is read-only",
		Property: property,
		Details:  make(map[string]any),
	}
}

func NewNilChildError() *PropertyError {
	return NewPropertyError(ErrorTypeInvalidState, ErrCodeNilChild, "subproperty must not be nil")
}

func NewDuplicateChildError(property string) *PropertyError {
	return &PropertyError{
		Type:     ErrorTypeInvalidState,
		Code:     ErrCodeDuplicateChild,
		Message:  "subproperty is already a member of this list",
		Property: property,
		Details:  make(map[string]any),
	}
}

func NewIndexOutOfRangeError(index, length int) *PropertyError {
	return &PropertyError{
		Type:    ErrorTypeInvalidState,
		Code:    ErrCodeIndexOutOfRange,
		Message: fmt.Sprintf("index %d out of range [0, %d)", index, length),
		Details: map[string]any{
			"index":  index,
			"length": length,
		},
	}
}

func NewCycleError(property string) *PropertyError {
	return &PropertyError{
		Type:     ErrorTypeInvalidState,
		Code:     ErrCodeCycle,
		Message:  "composite cannot contain itself or one of its ancestors",
		Property: property,
		Details:  make(map[string]any),
	}
}

func NewReadOnlyPropertyError(property string) *PropertyError {
	return &PropertyError{
		Type:     ErrorTypeInvalidState,
		Code:     ErrCodeReadOnlyProperty,
		Message:  "property is read-only",
		Property: property,
		Details:  make(map[string]any),
	}
}

// NewTypeMissingError reports a leaf property declared without a type.
func NewTypeMissingError(property string) *PropertyError {
	return &PropertyError{
		Type:     ErrorTypeInvalidConfig,
		Code:     ErrCodeTypeMissing,
		Message:  "name of property type is missing for a simple property",
		Property: property,
		Details:  make(map[string]any),
	}
}

// NewTypeMismatchError reports a composed type on a leaf or a simple type on a
// composite.
func NewTypeMismatchError(property, message string) *PropertyError {
	return &PropertyError{
		Type:     ErrorTypeInvalidConfig,
		Code:     ErrCodeTypeMismatch,
		Message:  message,
		Property: property,
		Details:  make(map[string]any),
	}
}

func NewUnknownTypeError(typeName string) *PropertyError {
	return &PropertyError{
		Type:    ErrorTypeInvalidConfig,
		Code:    ErrCodeUnknownType,
		Message: fmt.Sprintf("property type %q could not be resolved", typeName),
		Details: map[string]any{"type": typeName},
	}
}

func NewInvalidDocumentError(message string, cause error) *PropertyError {
	return &PropertyError{
		Type:    ErrorTypeInvalidConfig,
		Code:    ErrCodeInvalidDocument,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewStateNotFoundError is returned by collapse-state stores for unknown keys.
func NewStateNotFoundError(key string) *PropertyError {
	return &PropertyError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeStateNotFound,
		Message: fmt.Sprintf("no collapse state stored under key %q", key),
		Details: map[string]any{"key": key},
	}
}

func NewStorageError(message string, cause error) *PropertyError {
	return &PropertyError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeStorageFailed,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

func NewCircuitOpenError(backend string) *PropertyError {
	return &PropertyError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeCircuitOpen,
		Message: "circuit breaker is open for " + backend,
		Details: map[string]any{"backend": backend},
	}
}

// ============================================================================
// Error checking utilities
// ============================================================================

func asPropertyError(err error) (*PropertyError, bool) {
	var pe *PropertyError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsInvalidValueError checks if an error is a rejected value error
func IsInvalidValueError(err error) bool {
	pe, ok := asPropertyError(err)
	return ok && pe.Type == ErrorTypeInvalidValue
}

// IsInvalidStateError checks if an error is a tree state violation
func IsInvalidStateError(err error) bool {
	pe, ok := asPropertyError(err)
	return ok && pe.Type == ErrorTypeInvalidState
}

// IsConfigError checks if an error comes from configuration or tree building
func IsConfigError(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return true
	}
	pe, ok := asPropertyError(err)
	return ok && pe.Type == ErrorTypeInvalidConfig
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	pe, ok := asPropertyError(err)
	return ok && pe.Type == ErrorTypeNotFound
}

// IsStorageError checks if an error is a storage error
func IsStorageError(err error) bool {
	pe, ok := asPropertyError(err)
	return ok && pe.Type == ErrorTypeStorage
}

// HasCode reports whether err wraps a PropertyError with the given code.
func HasCode(err error, code string) bool {
	pe, ok := asPropertyError(err)
	return ok && pe.Code == code
}
