package httpadapter

import (
	"net/http"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError keeps the caller-supplied label for expected failures and
// hides diagnostics behind a generic message for everything else.
func writeDomainError(w http.ResponseWriter, label string, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal error, see server logs"
	}
	writeError(w, status, label, message)
}
