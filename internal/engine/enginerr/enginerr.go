// Package enginerr defines the structured error taxonomy shared by the
// retrieval engine components. Every error carries a kind plus enough
// context to act on without string matching.
package enginerr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Kind string

const (
	// KindValidation covers malformed input rejected before any mutation.
	KindValidation Kind = "validation"
	// KindTenantIsolation marks an attempted cross-tenant read or write.
	// Never coerced into a softer failure.
	KindTenantIsolation Kind = "tenant_isolation"
	// KindLineage marks an illegal fork: missing or cross-tenant parent,
	// or a parent assignment that would close a cycle.
	KindLineage Kind = "lineage"
	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound Kind = "not_found"
	// KindIndexUnavailable marks an index that cannot answer right now,
	// e.g. maintenance in progress or an empty bootstrap.
	KindIndexUnavailable Kind = "index_unavailable"
	// KindInternal covers integrity violations detected defensively
	// (corrupted chains, depth overruns). Always a hard failure.
	KindInternal Kind = "internal"
)

type Error struct {
	Kind     Kind
	Op       string
	TenantID uuid.UUID
	EntityID uuid.UUID
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return "engine error"
	}
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.TenantID != uuid.Nil {
		msg += fmt.Sprintf(" tenant=%s", e.TenantID)
	}
	if e.EntityID != uuid.Nil {
		msg += fmt.Sprintf(" entity=%s", e.EntityID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Newf(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) WithTenant(id uuid.UUID) *Error {
	e.TenantID = id
	return e
}

func (e *Error) WithEntity(id uuid.UUID) *Error {
	e.EntityID = id
	return e
}

// KindOf extracts the kind from any error in the chain, or KindInternal
// when the error did not originate in the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
