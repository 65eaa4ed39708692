package receta

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable tag identifying the category of a prescription error.
// Clients branch on kinds; messages are for humans.
type Kind string

const (
	KindInvalidID             Kind = "INVALID_ID"
	KindIncompleteFields      Kind = "INCOMPLETE_FIELDS"
	KindInvalidPatientID      Kind = "INVALID_PATIENT_ID"
	KindInvalidLicense        Kind = "INVALID_PHYSICIAN_LICENSE"
	KindInvalidIssueDate      Kind = "INVALID_ISSUE_DATE"
	KindInvalidProductLine    Kind = "INVALID_PRODUCT_LINE"
	KindUnlicensedPhysician   Kind = "UNLICENSED_PHYSICIAN"
	KindFutureIssueDate       Kind = "FUTURE_ISSUE_DATE"
	KindExpiredPrescription   Kind = "EXPIRED_PRESCRIPTION"
	KindContentMismatch       Kind = "CONTENT_MISMATCH"
	KindShortDocument         Kind = "SUSPICIOUSLY_SHORT_DOCUMENT"
	KindInvalidAttachment     Kind = "INVALID_ATTACHMENT"
	KindMissingAttachment     Kind = "MISSING_ATTACHMENT"
	KindStorageMisconfigured  Kind = "STORAGE_MISCONFIGURED"
	KindNotFound              Kind = "NOT_FOUND"
	KindUpstreamUnavailable   Kind = "UPSTREAM_UNAVAILABLE"
	KindInvalidStatus         Kind = "INVALID_STATUS"
)

// Error is a categorized prescription error. Validation kinds map to
// 4xx responses, upstream kinds to 5xx.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain; empty when the error is
// not a prescription Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusCode maps an error kind to its HTTP status.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamUnavailable, KindStorageMisconfigured:
		return http.StatusInternalServerError
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
