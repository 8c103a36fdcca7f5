package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeStateConflict     Code = "STATE_CONFLICT"
	CodePromoRejected     Code = "PROMO_REJECTED"
	CodeSubmission        Code = "SUBMISSION_FAILED"
	CodePaymentInitiation Code = "PAYMENT_INITIATION_FAILED"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeBusy              Code = "SESSION_BUSY"
	CodeRateLimit         Code = "RATE_LIMITED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code is presented over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// ExposesMessage lets the error's own message replace PublicMessage.
	ExposesMessage bool
}

type trait uint8

const (
	retryable trait = 1 << iota
	withDetails
	ownMessage
)

func present(status int, message string, traits trait) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Retryable:      traits&retryable != 0,
		PublicMessage:  message,
		DetailsAllowed: traits&withDetails != 0,
		ExposesMessage: traits&ownMessage != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:        present(http.StatusBadRequest, "validation failed", withDetails|ownMessage),
	CodeUnauthorized:      present(http.StatusUnauthorized, "authentication required", ownMessage),
	CodeForbidden:         present(http.StatusForbidden, "access denied", ownMessage),
	CodeNotFound:          present(http.StatusNotFound, "resource not found", ownMessage),
	CodeConflict:          present(http.StatusConflict, "conflict detected", withDetails|ownMessage),
	CodeStateConflict:     present(http.StatusUnprocessableEntity, "state transition disallowed", withDetails|ownMessage),
	CodePromoRejected:     present(http.StatusUnprocessableEntity, "promo code rejected", withDetails|ownMessage),
	CodeSubmission:        present(http.StatusBadGateway, "order could not be placed", retryable|withDetails|ownMessage),
	CodePaymentInitiation: present(http.StatusBadGateway, "payment could not be started", retryable|withDetails|ownMessage),
	CodeIdempotency:       present(http.StatusConflict, "idempotency key reused", withDetails|ownMessage),
	CodeBusy:              present(http.StatusConflict, "another request for this session is in progress", retryable),
	CodeRateLimit:         present(http.StatusTooManyRequests, "too many requests", retryable|ownMessage),
	CodeInternal:          present(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:        present(http.StatusServiceUnavailable, "dependency unavailable", retryable|withDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// ClientMessage is the message written to the response body.
func (e *Error) ClientMessage() string {
	meta := MetadataFor(e.Code())
	if meta.ExposesMessage && e.Message() != "" {
		return e.message
	}
	return meta.PublicMessage
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Resolve returns the coded error in err's chain, wrapping untyped errors as
// CodeInternal.
func Resolve(err error) *Error {
	if typed := As(err); typed != nil {
		return typed
	}
	if err == nil {
		err = stdErrors.New("unknown error")
	}
	return Wrap(CodeInternal, err, "unexpected error")
}

// CodeOf returns the outermost code in the chain, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}
