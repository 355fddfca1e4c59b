// Package errs defines the error taxonomy shared by the adjudication
// domain packages. Handlers map these to HTTP status codes; services
// return them so callers can branch with errors.As.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// ValidationError reports rejected input. The message is safe to
// return to API clients.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing entity by resource name and identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InvalidStateTransitionError reports an attempt to move an entity
// between lifecycle states that are not adjacent in its state machine.
// From is the state observed at the time of the attempt, which may
// differ from the state the caller last saw.
type InvalidStateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot transition from %s to %s", e.Entity, e.From, e.To)
}

// InvalidTransition builds an InvalidStateTransitionError.
func InvalidTransition(entity, from, to string) error {
	return &InvalidStateTransitionError{Entity: entity, From: from, To: to}
}

// TariffNotFoundError reports that no negotiated tariff covers the
// (provider, service code) pair on the given date and no fallback applied.
type TariffNotFoundError struct {
	ProviderID    string
	ServiceCodeID string
	AsOf          string
}

func (e *TariffNotFoundError) Error() string {
	return fmt.Sprintf("no tariff for provider %s and service code %s effective %s",
		e.ProviderID, e.ServiceCodeID, e.AsOf)
}

// LimitExceededError reports that a claim would overdraw the annual
// coverage limit of the patient's package.
type LimitExceededError struct {
	Remaining decimal.Decimal
	Requested decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("annual coverage limit exceeded: %s requested, %s remaining",
		e.Requested.StringFixed(2), e.Remaining.StringFixed(2))
}

// ConcurrencyConflictError reports that a compare-and-set update lost
// a race with a concurrent writer.
type ConcurrencyConflictError struct {
	Entity string
	ID     string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
}

// HTTPStatus maps a domain error to an HTTP status code. Unrecognized
// errors map to 500.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		transition *InvalidStateTransitionError
		tariff     *TariffNotFoundError
		limit      *LimitExceededError
		conflict   *ConcurrencyConflictError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &transition), errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &tariff), errors.As(err, &limit):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
