package response

import (
	"freightops/internal/apperr"
	"net/http"
)

// Envelope is the standard API response format: {"ok": true, "data": ...} on
// success, {"ok": false, "message": ..., "code": ...} on failure.
type Envelope struct {
	OK      bool        `json:"ok"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ListData wraps paginated collection payloads.
type ListData struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success wraps data in the success envelope.
func Success(data interface{}) Envelope {
	return Envelope{OK: true, Data: data}
}

// Fail builds an error envelope with a stable machine code.
func Fail(code, message string) Envelope {
	return Envelope{OK: false, Message: message, Code: code}
}

// FromError maps an application error onto its HTTP status and envelope.
// Errors without a taxonomy kind are masked as a generic 500.
func FromError(err error) (int, Envelope) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindUnknown {
		return http.StatusInternalServerError, Fail("internal_error", "unexpected internal error")
	}
	return apperr.HTTPStatus(kind), Fail(apperr.CodeOf(err), apperr.MessageOf(err))
}
