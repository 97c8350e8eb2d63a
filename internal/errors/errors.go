// Package errors defines the semantic error kinds the query pipeline can
// surface. Most failures — a layer timeout, an engine that could
// not run — are recovered locally and turned into empty results; only
// validation failures and internal invariant violations are meant to
// reach an adapter.
package errors

import (
	"fmt"
	"time"
)

// Kind is one of the five semantic error kinds the pipeline surfaces.
type Kind string

const (
	InvalidRequest Kind = "InvalidRequest"
	NotInitialized Kind = "NotInitialized"
	LayerTimeout   Kind = "LayerTimeout"
	LayerError     Kind = "LayerError"
	Internal       Kind = "Internal"
)

// QueryError is the structured error shape adapters receive:
// {code, message, requestId, layer?}.
type QueryError struct {
	Kind        Kind
	Message     string
	RequestID   string
	Layer       string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

func (e *QueryError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Layer, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error { return e.Underlying }

// New builds a QueryError of the given kind.
func New(kind Kind, message string) *QueryError {
	return &QueryError{Kind: kind, Message: message, Timestamp: time.Now()}
}

// Wrap builds a QueryError around an underlying error.
func Wrap(kind Kind, message string, err error) *QueryError {
	return &QueryError{Kind: kind, Message: message, Underlying: err, Timestamp: time.Now()}
}

// WithRequestID attaches the originating request's ID.
func (e *QueryError) WithRequestID(id string) *QueryError {
	e.RequestID = id
	return e
}

// WithLayer attaches the layer in which the failure occurred.
func (e *QueryError) WithLayer(layer string) *QueryError {
	e.Layer = layer
	return e
}

// WithRecoverable marks whether the orchestrator can continue past this
// error using another strategy.
func (e *QueryError) WithRecoverable(r bool) *QueryError {
	e.Recoverable = r
	return e
}

// IsRecoverable reports whether the orchestrator should treat this as an
// empty result and continue (LayerTimeout is always recoverable;
// LayerError is recoverable when another strategy can cover for it).
func (e *QueryError) IsRecoverable() bool {
	if e.Kind == LayerTimeout {
		return true
	}
	return e.Recoverable
}

// InvalidRequestf builds an InvalidRequest error: identifier and URI
// both empty, empty newName, negative budgets.
func InvalidRequestf(format string, args ...interface{}) *QueryError {
	return New(InvalidRequest, fmt.Sprintf(format, args...))
}

// Internalf builds an Internal error for invariant violations (e.g. a
// Definition emitted without a URI or Range).
func Internalf(format string, args ...interface{}) *QueryError {
	return New(Internal, fmt.Sprintf(format, args...))
}
