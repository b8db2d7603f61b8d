package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/isometry/ldap-collector/internal/ldap"
)

// ErrorKindTimeout is reported when a harvest exceeds its deadline.
const ErrorKindTimeout = "timeout"

// ErrorBody is the JSON body of a failed harvest request.
type ErrorBody struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CauseCategory string `json:"cause_category,omitempty"`
}

// errorResponse maps a harvest error to an HTTP status and body. A deadline
// wins over the kind of the error it interrupted.
func errorResponse(err error) (int, ErrorBody) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorBody{Error: ErrorKindTimeout, Message: err.Error()}
	}

	kind := ldap.KindOf(err)
	body := ErrorBody{Error: string(kind), Message: err.Error()}
	if category := ldap.CategoryOf(err); category != ldap.ErrorCategoryUnknown {
		body.CauseCategory = string(category)
	}

	switch kind {
	case ldap.ErrorKindConnectionExhausted:
		return http.StatusServiceUnavailable, body
	case ldap.ErrorKindRetrievalFailed:
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}
