// Package datasource abstracts read and update access to named collections
// in the governed operational store. The engine treats documents as opaque
// mappings and never assumes a schema beyond the fields a rule names.
//
// Backends share an explicit lifecycle: construct, use, Close. Nothing in
// this repository reaches for an ambient global connection.
package datasource

import (
	"context"
	"fmt"
)

// Document is an opaque record from a collection.
type Document = map[string]any

// Filter selects documents by field equality. A nil or empty filter selects
// every document in the collection.
type Filter = map[string]any

// UpdateResult reports the outcome of an Update call.
type UpdateResult struct {
	// MatchedCount is the number of documents the filter matched.
	MatchedCount int64
}

// Adapter is the capability set the governance engine needs from the
// operational store: scoped reads, counts, and field-patch updates over
// named collections.
type Adapter interface {
	// Query returns the documents in collection matching filter. When
	// projection is non-empty, only the named fields are returned.
	Query(ctx context.Context, collection string, filter Filter, projection []string) ([]Document, error)

	// Count returns the number of documents in collection matching filter.
	Count(ctx context.Context, collection string, filter Filter) (int64, error)

	// Update applies patch (field set semantics) to every document matching
	// filter and reports how many documents matched.
	Update(ctx context.Context, collection string, filter Filter, patch map[string]any) (*UpdateResult, error)

	// Close releases the backend's resources.
	Close() error
}

// Seeder is implemented by backends that support inserting fixture data.
// It is a bootstrap concern, deliberately outside the Adapter contract the
// engine itself depends on.
type Seeder interface {
	Insert(ctx context.Context, collection string, docs ...Document) error
}

// UnavailableError indicates the store could not be reached or the call
// could not complete (connection, timeout, auth). The engine surfaces it to
// the caller and never retries on its own.
type UnavailableError struct {
	Backend   string // backend type ("memory", "sqlite", "mongo")
	Operation string // operation that failed ("query", "count", "update")
	Cause     error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("data source unavailable [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// NewUnavailableError creates a new UnavailableError.
func NewUnavailableError(backend, operation string, cause error) *UnavailableError {
	return &UnavailableError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// matches reports whether doc satisfies every equality clause in filter.
// Shared by the in-process backends; the Mongo backend pushes the filter
// down to the server instead.
func matches(doc Document, filter Filter) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

// project returns a copy of doc restricted to the named fields. An empty
// projection copies the whole document.
func project(doc Document, fields []string) Document {
	out := make(Document, len(doc))
	if len(fields) == 0 {
		for k, v := range doc {
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
