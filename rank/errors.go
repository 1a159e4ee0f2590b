/*
errors.go - Centralized error types for the rank engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  The API layer maps them to HTTP status codes:
    ValidationError -> 400
    NotFoundError   -> 404
    ConflictError   -> 409

ERROR CATEGORIES:
  1. Validation errors - malformed or conflicting input
     (semester interval overlap, DateFrom >= DateTo)
  2. Not-found errors - a referenced entity is absent
     (member, event, section membership, semester aggregate, or no
     semester containing an event's date)
  3. Conflict errors - duplicate participation for the same (member, event),
     or a member joining a section they already belong to

USAGE:
  if rank.IsNotFound(err) { ... }

  var nf *rank.NotFoundError
  if errors.As(err, &nf) { log.Print(nf.Kind) }
*/
package rank

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is the base of every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrConflict is the base of every ConflictError.
	ErrConflict = errors.New("conflict")

	// ErrValidation is the base of every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError reports an absent entity. Kind names what was looked up
// ("member", "event", "semester", "section member", "section semester"),
// Key is the identifier or date that missed.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a duplicate participation for a (member, event) pair.
type ConflictError struct {
	MemberID   MemberID
	EventID    EventID
	ExistingID ParticipationID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("participation already exists for member %s at event %s (id: %s)",
		e.MemberID, e.EventID, e.ExistingID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// MembershipConflictError reports a member joining a section they
// already belong to.
type MembershipConflictError struct {
	MemberID  MemberID
	SectionID SectionID
}

func (e *MembershipConflictError) Error() string {
	return fmt.Sprintf("member %s already belongs to section %s", e.MemberID, e.SectionID)
}

func (e *MembershipConflictError) Unwrap() error { return ErrConflict }

// FieldError points a validation failure at a specific input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports malformed or conflicting input.
type ValidationError struct {
	Reason string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s (%d field errors)", e.Reason, len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
