package filecat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the catalog's recoverable failure modes.
// Lookup APIs do not return ErrNotFound for a missing record - they return
// a nil record - but operations that require an existing record (adding a
// file to a missing dataset, resolving a named query) wrap it.
var (
	// ErrNotFound is returned when an operation requires a record that
	// does not exist.
	ErrNotFound = errors.New("filecat: not found")

	// ErrAlreadyExists is returned when a strict insert hits a
	// uniqueness violation (file creation, namespace creation, bulk
	// ingest of an existing file).
	ErrAlreadyExists = errors.New("filecat: already exists")

	// ErrInvalidName is returned by ParseName when the input carries no
	// namespace and no default namespace is available.
	ErrInvalidName = errors.New("filecat: invalid namespace:name specification")

	// ErrCircularDataset is returned when saving a dataset whose parent
	// chain loops back to the dataset itself.
	ErrCircularDataset = errors.New("filecat: circular dataset dependency")

	// ErrNamespaceNotEmpty is returned when deleting a namespace that
	// still contains files, datasets, or queries.
	ErrNamespaceNotEmpty = errors.New("filecat: namespace not empty")

	// ErrCancelled is returned when a per-operation deadline fires and
	// the in-flight statement is cancelled.
	ErrCancelled = errors.New("filecat: operation cancelled")
)

// IsNotFoundErr returns true if err is or wraps ErrNotFound.
func IsNotFoundErr(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExistsErr returns true if err is or wraps ErrAlreadyExists.
func IsAlreadyExistsErr(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsCancelledErr returns true if err is or wraps ErrCancelled.
func IsCancelledErr(err error) bool { return errors.Is(err, ErrCancelled) }

// CompileError reports a query that could not be compiled to SQL.
// Compilation failures are fully recovered: no statement is issued and no
// state changes.
type CompileError struct {
	Reason string // "unknown argument shape", "unknown operator", "literal type"
	Detail string
}

func (e *CompileError) Error() string {
	if e.Detail == "" {
		return "filecat: query compile: " + e.Reason
	}
	return "filecat: query compile: " + e.Reason + ": " + e.Detail
}

// IsCompileErr returns true if err is or wraps a CompileError.
func IsCompileErr(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// MetaValidationError carries per-key metadata validation failures.
// It serializes to the {"message", "metadata_errors"} envelope.
type MetaValidationError struct {
	Message string   `json:"message"`
	Errors  []string `json:"metadata_errors"`
}

func (e *MetaValidationError) Error() string {
	return fmt.Sprintf("filecat: %s (%d metadata errors)", e.Message, len(e.Errors))
}

// AsJSON renders the error envelope for transport to the caller.
func (e *MetaValidationError) AsJSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		return `{"message":"metadata validation failed","metadata_errors":[]}`
	}
	return string(b)
}

// StoreError wraps an opaque backend failure. Uniqueness violations and
// cancellations are mapped to their sentinel kinds before wrapping; only
// genuinely unexpected store failures surface as StoreError.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "filecat: store: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// PostgreSQL SQLSTATE codes consulted during error mapping.
const (
	pgUniqueViolation     = "23505" // unique_violation
	pgForeignKeyViolation = "23503" // foreign_key_violation
	pgUndefinedTable      = "42P01" // undefined_table
	pgQueryCanceled       = "57014" // query_canceled
)

// MapStoreError classifies a backend error from a write or query.
// Uniqueness violations become ErrAlreadyExists, cancelled statements and
// expired contexts become ErrCancelled, everything else wraps in
// StoreError. nil passes through.
func MapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrCancelled, op, err)
	}
	switch sqlState(err) {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s: %v", ErrAlreadyExists, op, err)
	case pgQueryCanceled:
		return fmt.Errorf("%w: %s: %v", ErrCancelled, op, err)
	}
	return &StoreError{Op: op, Err: err}
}

// sqlState extracts the SQLSTATE code from a PostgreSQL error.
// Works with both drivers this module touches via interface detection:
//   - pgx/pgconn: SQLState() string
//   - lib/pq: Code field exposed through an error interface
//
// Returns empty string if the error carries no SQLSTATE.
func sqlState(err error) string {
	type sqlStateErr interface{ SQLState() string }
	var se sqlStateErr
	if errors.As(err, &se) {
		return se.SQLState()
	}

	type codeErr interface{ Code() string }
	var ce codeErr
	if errors.As(err, &ce) {
		return ce.Code()
	}

	// Last resort: pull the code out of "... (SQLSTATE 23505)" text.
	s := err.Error()
	for _, prefix := range []string{"SQLSTATE ", "SQLSTATE: "} {
		if idx := strings.Index(s, prefix); idx >= 0 {
			start := idx + len(prefix)
			if start+5 <= len(s) {
				return s[start : start+5]
			}
		}
	}
	return ""
}
