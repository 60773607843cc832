package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata carries the HTTP mapping and the English/Swedish fallback copy of a code.
type Metadata struct {
	HTTPStatus      int
	Retryable       bool
	PublicMessage   string
	PublicMessageSv string
	DetailsAllowed  bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:      http.StatusBadRequest,
		PublicMessage:   "validation failed",
		PublicMessageSv: "valideringen misslyckades",
		DetailsAllowed:  true,
	},
	CodeUnauthorized: {
		HTTPStatus:      http.StatusUnauthorized,
		PublicMessage:   "authentication required",
		PublicMessageSv: "inloggning krävs",
	},
	CodeForbidden: {
		HTTPStatus:      http.StatusForbidden,
		PublicMessage:   "access denied",
		PublicMessageSv: "åtkomst nekad",
	},
	CodeNotFound: {
		HTTPStatus:      http.StatusNotFound,
		PublicMessage:   "resource not found",
		PublicMessageSv: "resursen hittades inte",
	},
	CodeConflict: {
		HTTPStatus:      http.StatusConflict,
		PublicMessage:   "conflict detected",
		PublicMessageSv: "konflikt upptäcktes",
	},
	CodeStateConflict: {
		HTTPStatus:      http.StatusUnprocessableEntity,
		PublicMessage:   "state transition disallowed",
		PublicMessageSv: "statusövergången är inte tillåten",
		DetailsAllowed:  true,
	},
	CodeRateLimit: {
		HTTPStatus:      http.StatusTooManyRequests,
		PublicMessage:   "rate limit exceeded",
		PublicMessageSv: "för många förfrågningar",
	},
	CodeInternal: {
		HTTPStatus:      http.StatusInternalServerError,
		Retryable:       true,
		PublicMessage:   "internal server error",
		PublicMessageSv: "internt serverfel",
	},
	CodeDependency: {
		HTTPStatus:      http.StatusServiceUnavailable,
		Retryable:       true,
		PublicMessage:   "dependency unavailable",
		PublicMessageSv: "tjänsten är inte tillgänglig",
		DetailsAllowed:  true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code      Code
	message   string
	messageSv string
	details   any
	cause     error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// NewBilingual builds an error carrying both the English and the Swedish message.
func NewBilingual(code Code, message, messageSv string) *Error {
	return &Error{code: code, message: message, messageSv: messageSv}
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

// MessageSv returns the Swedish message, if one was attached.
func (e *Error) MessageSv() string {
	if e == nil {
		return ""
	}
	return e.messageSv
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

// WithSwedish attaches the Swedish variant of the public message.
func (e *Error) WithSwedish(message string) *Error {
	if e == nil {
		return nil
	}
	e.messageSv = message
	return e
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

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
