package api

import (
	"context"
	"errors"
	"net/http"

	"duck-olap/internal/domain"
)

// Error is the JSON body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	Stage string `json:"stage,omitempty"`
	// SchemaDocument is set when the run failed after synthesis.
	SchemaDocument string `json:"schema_document,omitempty"`
}

// httpStatusFromDomainError maps pipeline errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var discovery *domain.DiscoveryError
	var connection *domain.ConnectionError
	var execution *domain.ExecutionError
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &execution):
		return http.StatusUnprocessableEntity
	case errors.As(err, &discovery):
		switch {
		case errors.As(err, &notFound):
			return http.StatusNotFound
		case errors.As(err, &validation):
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	case errors.As(err, &connection):
		return http.StatusBadGateway
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) Error {
	return Error{Error: err.Error(), Code: httpStatusFromDomainError(err), Stage: domain.Stage(err)}
}
