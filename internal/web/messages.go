package web

// # Error Codes Reference
//
// Every error response carries a code that users can quote to support.
//
//	DIA001 - Unknown dialect: the format name or extension has no binding
//	DIA002 - Invalid dialect: the dialect breaks its own rules
//	REC001 - Malformed record: a line has more fields than the header
//	REC002 - Unterminated quote: the input ends inside a quoted field
//	REC003 - Unrepresentable: the target dialect cannot write a record so it
//	         reads back unchanged
//	ENC001 - Encoding: bytes are not valid in the dialect's encoding, or a
//	         value cannot be represented in it
//	REQ001 - Body too large: the request exceeds UPLOAD_MAX_BODY_SIZE
//	REQ002 - Bad request: a required parameter is missing or invalid
//	REQ003 - Timeout: the request was cancelled or timed out
//	BUSY001 - Busy: every conversion slot is taken
//	ERR000 - Anything else; the technical error is in the server log

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/dialect"
)

// UserMessage is the client-facing side of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
	Status  int
}

// badRequestError reports a missing or malformed request parameter.
type badRequestError struct {
	param  string
	reason string
}

func (e *badRequestError) Error() string {
	return fmt.Sprintf("parameter %s: %s", e.param, e.reason)
}

func missingParam(name string) error {
	return &badRequestError{param: name, reason: "required"}
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts err to a user message. Errors are matched by type, so
// wrapped errors map the same as bare ones.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		unknown   *dialect.UnknownDialectError
		malformed *codec.MalformedRecordError
		parse     *codec.ParseError
		enc       *codec.EncodingError
		tooLarge  *http.MaxBytesError
		badReq    *badRequestError
	)
	switch {
	case errors.As(err, &unknown):
		return UserMessage{
			Message: fmt.Sprintf("No dialect is bound to %q", unknown.Name),
			Action:  "Use a dialect name or extension listed by /api/dialects",
			Code:    "DIA001",
			Status:  http.StatusBadRequest,
		}
	case errors.Is(err, dialect.ErrInvalidDialect):
		return UserMessage{
			Message: "The dialect configuration is invalid",
			Action:  "Check the dialect definition",
			Code:    "DIA002",
			Status:  http.StatusBadRequest,
		}
	case errors.As(err, &malformed):
		return UserMessage{
			Message: fmt.Sprintf("Line %d has %d fields but the header has %d", malformed.Line, malformed.Got, malformed.Expected),
			Action:  "Check that the delimiter matches the file and that values containing it are quoted",
			Code:    "REC001",
			Status:  http.StatusUnprocessableEntity,
		}
	case errors.As(err, &parse):
		return UserMessage{
			Message: fmt.Sprintf("Unterminated quoted field starting on line %d", parse.Line),
			Action:  "Close the quote or escape quote characters inside the value",
			Code:    "REC002",
			Status:  http.StatusUnprocessableEntity,
		}
	case errors.Is(err, codec.ErrUnrepresentable):
		return UserMessage{
			Message: "A record cannot be written in the target dialect without losing it",
			Action:  "Pick a target dialect that quotes fields",
			Code:    "REC003",
			Status:  http.StatusUnprocessableEntity,
		}
	case errors.As(err, &enc):
		return UserMessage{
			Message: fmt.Sprintf("Text is not valid %s at byte %d", enc.Encoding, enc.Offset),
			Action:  "Save the file in the dialect's encoding or pick a dialect that matches it",
			Code:    "ENC001",
			Status:  http.StatusUnprocessableEntity,
		}
	case errors.As(err, &tooLarge):
		return UserMessage{
			Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
			Action:  "Split the file into smaller parts",
			Code:    "REQ001",
			Status:  http.StatusRequestEntityTooLarge,
		}
	case errors.As(err, &badReq):
		return UserMessage{
			Message: fmt.Sprintf("Parameter %q is %s", badReq.param, badReq.reason),
			Action:  "Fix the query string and retry",
			Code:    "REQ002",
			Status:  http.StatusBadRequest,
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return UserMessage{
			Message: "The request was cancelled or timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "REQ003",
			Status:  http.StatusServiceUnavailable,
		}
	case errors.Is(err, ErrBusy):
		return UserMessage{
			Message: "The server is busy with other conversions",
			Action:  "Please wait a moment before trying again",
			Code:    "BUSY001",
			Status:  http.StatusServiceUnavailable,
		}
	}
	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
