package carrier

import (
	"errors"
	"fmt"
)

// Kind classifies a carrier error for the caller. Every kind resolves to a
// displayable message; none of them is retried automatically.
type Kind string

const (
	// KindValidation means the request could not be built or preconditions failed.
	KindValidation Kind = "validation"
	// KindAuth means the carrier rejected the configured credentials.
	KindAuth Kind = "auth"
	// KindRemote means the carrier rejected the shipment at business level.
	KindRemote Kind = "remote"
	// KindTransport means connectivity, timeout, or an unexpected protocol fault.
	KindTransport Kind = "transport"
	// KindDownload means the label document fetch failed after a successful booking.
	KindDownload Kind = "download"
)

// Error represents an error from a shipping carrier workflow.
type Error struct {
	Carrier    string
	Kind       Kind
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s error: %s: %v", e.Carrier, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s error: %s", e.Carrier, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for Error: two carrier errors match on kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a new carrier Error.
func NewError(carrier string, kind Kind, message string) *Error {
	return &Error{
		Carrier: carrier,
		Kind:    kind,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// ErrKind returns the kind of err if it is a carrier Error, or "" otherwise.
func ErrKind(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

// Sentinel errors for the label issuance workflow.
var (
	// ErrNoPackages indicates the shipment has no packages to book.
	ErrNoPackages = errors.New("shipment has no packages")

	// ErrMissingShipperAddress indicates the ship-from address is absent.
	ErrMissingShipperAddress = errors.New("shipper address is missing")

	// ErrAlreadyLabeled indicates the shipment already carries a tracking number.
	ErrAlreadyLabeled = errors.New("shipment already has a tracking number")

	// ErrWrongCarrier indicates the shipment is not assigned to this carrier.
	ErrWrongCarrier = errors.New("shipment uses a different carrier")

	// ErrNotShippable indicates the shipment state does not allow labeling.
	ErrNotShippable = errors.New("shipment is not in a shippable state")

	// ErrInvalidCredentials indicates the carrier credential check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPieceCountMismatch indicates the carrier returned a piece list whose
	// length differs from the number of packages submitted.
	ErrPieceCountMismatch = errors.New("piece count does not match package count")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrProductNotAllowed indicates the product code is outside the account catalog.
	ErrProductNotAllowed = errors.New("product not allowed for account")
)
