package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

// Standard adapter errors
var (
	// ErrConnectionClosed is returned when attempting to use a closed connection
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotImplemented is returned when an operation is not supported by the store
	ErrNotImplemented = errors.New("operation not implemented")

	// ErrInvalidQuery is returned when a query is malformed or not allowed
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound is returned when a store or relation does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedType is returned for an unknown store kind
	ErrUnsupportedType = errors.New("unsupported database type")
)

// ErrorKind classifies every error surfaced by the gateway.
type ErrorKind string

const (
	KindConnection      ErrorKind = "ConnectionError"
	KindQuery           ErrorKind = "QueryError"
	KindBadRequest      ErrorKind = "BadRequest"
	KindNotFound        ErrorKind = "NotFound"
	KindNotImplemented  ErrorKind = "NotImplemented"
	KindConversion      ErrorKind = "ConversionError"
	KindUnsupportedType ErrorKind = "UnsupportedDatabaseType"
	KindInternal        ErrorKind = "Internal"
)

// DatabaseError wraps database-specific errors with additional context.
// This provides a consistent error structure across all database types.
type DatabaseError struct {
	DatabaseType dbcapabilities.DatabaseType
	Operation    string
	Kind         ErrorKind
	Cause        error
	Context      map[string]interface{}
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("[%s] %s: %v (context: %v)", e.DatabaseType, e.Operation, e.Cause, e.Context)
	}
	return fmt.Sprintf("[%s] %s: %v", e.DatabaseType, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// NewDatabaseError creates a new DatabaseError.
func NewDatabaseError(kind ErrorKind, dbType dbcapabilities.DatabaseType, operation string, cause error) *DatabaseError {
	return &DatabaseError{
		DatabaseType: dbType,
		Operation:    operation,
		Kind:         kind,
		Cause:        cause,
	}
}

// WithContext adds context to a DatabaseError.
func (e *DatabaseError) WithContext(key string, value interface{}) *DatabaseError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WrapError wraps an error with database context.
// Errors that already carry a kind are returned as-is.
func WrapError(kind ErrorKind, dbType dbcapabilities.DatabaseType, operation string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	if _, ok := classify(err); ok {
		return err
	}

	return NewDatabaseError(kind, dbType, operation, err)
}

// QueryFailed wraps a backend failure while running a query.
func QueryFailed(dbType dbcapabilities.DatabaseType, operation string, err error) error {
	return WrapError(KindQuery, dbType, operation, err)
}

// ConversionFailed reports a value that cannot be represented as JSON.
func ConversionFailed(dbType dbcapabilities.DatabaseType, format string, args ...interface{}) error {
	return NewDatabaseError(KindConversion, dbType, "convert", fmt.Errorf(format, args...))
}

// ConnectionError is returned when a connection error occurs.
type ConnectionError struct {
	DatabaseType dbcapabilities.DatabaseType
	Host         string
	Port         int
	Cause        error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("failed to connect to %s: %v", e.DatabaseType, e.Cause)
	}
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.DatabaseType, e.Host, e.Port, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(dbType dbcapabilities.DatabaseType, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{
		DatabaseType: dbType,
		Host:         host,
		Port:         port,
		Cause:        cause,
	}
}

// BadRequestError is a client error: malformed or disallowed input.
type BadRequestError struct {
	Message string
}

// Error implements the error interface.
func (e *BadRequestError) Error() string {
	return e.Message
}

// Is checks if the error is ErrInvalidQuery.
func (e *BadRequestError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// BadRequest creates a BadRequestError with a formatted message.
func BadRequest(format string, args ...interface{}) *BadRequestError {
	if len(args) == 0 {
		return &BadRequestError{Message: format}
	}
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a resource is not found.
type NotFoundError struct {
	ResourceType string
	ResourceName string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceName)
}

// Is checks if the error is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType string, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// UnsupportedOperationError is returned when an operation is not supported.
type UnsupportedOperationError struct {
	DatabaseType dbcapabilities.DatabaseType
	Operation    string
	Reason       string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.DatabaseType, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.DatabaseType, e.Operation)
}

// Is checks if the error is ErrNotImplemented.
func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrNotImplemented
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError.
func NewUnsupportedOperationError(dbType dbcapabilities.DatabaseType, operation string, reason string) *UnsupportedOperationError {
	return &UnsupportedOperationError{
		DatabaseType: dbType,
		Operation:    operation,
		Reason:       reason,
	}
}

// UnsupportedTypeError is returned when a configured store type is unknown.
type UnsupportedTypeError struct {
	Store string
	Type  string
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	if e.Store == "" {
		return fmt.Sprintf("unsupported database type %q", e.Type)
	}
	return fmt.Sprintf("store %q: unsupported database type %q", e.Store, e.Type)
}

// Is checks if the error is ErrUnsupportedType.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// CachedError is the duplicable form of an error, safe to hand to every
// caller sharing one cached computation.
type CachedError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *CachedError) Error() string {
	return e.Message
}

// ToCached converts any error to its duplicable representation.
func ToCached(err error) *CachedError {
	if err == nil {
		return nil
	}
	var cached *CachedError
	if errors.As(err, &cached) {
		return cached
	}
	return &CachedError{Kind: KindOf(err), Message: err.Error()}
}

func classify(err error) (ErrorKind, bool) {
	var (
		cached      *CachedError
		dbErr       *DatabaseError
		connErr     *ConnectionError
		badReq      *BadRequestError
		notFound    *NotFoundError
		unsupported *UnsupportedOperationError
		unknownType *UnsupportedTypeError
	)
	switch {
	case errors.As(err, &cached):
		return cached.Kind, true
	case errors.As(err, &badReq):
		return KindBadRequest, true
	case errors.As(err, &notFound):
		return KindNotFound, true
	case errors.As(err, &unsupported):
		return KindNotImplemented, true
	case errors.As(err, &unknownType):
		return KindUnsupportedType, true
	case errors.As(err, &connErr):
		return KindConnection, true
	case errors.As(err, &dbErr):
		return dbErr.Kind, true
	}
	return "", false
}

// KindOf classifies any error. Errors with no recognized type are Internal,
// except context deadline and cancellation which count as query failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if kind, ok := classify(err); ok {
		return kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindQuery
	}
	return KindInternal
}

// HTTPStatus maps an error kind to the response status code.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindBadRequest, KindUnsupportedType:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return KindOf(err) == KindConnection
}

// IsNotFound checks if an error reports a missing resource.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsBadRequest checks if an error is a client error.
func IsBadRequest(err error) bool {
	return KindOf(err) == KindBadRequest
}
