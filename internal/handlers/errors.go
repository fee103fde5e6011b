package handlers

import (
	"errors"
	"net/http"

	"github.com/docflow/apiserver/internal/auth"
	"github.com/docflow/apiserver/internal/services"
	"github.com/docflow/apiserver/internal/store"
	"go.uber.org/zap"
)

// writeServiceError maps the error taxonomy onto status codes. Anything it
// does not recognise is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, auth.ErrMissingToken):
		writeError(w, http.StatusUnauthorized, "missing token")
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrEditForbidden):
		writeError(w, http.StatusForbidden, "sent documents cannot be edited")
	case errors.Is(err, services.ErrDeleteForbidden):
		writeError(w, http.StatusForbidden, "sent documents cannot be deleted")
	case errors.Is(err, services.ErrAlreadySent):
		writeError(w, http.StatusBadRequest, "document already sent")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, store.ErrDuplicateCode):
		writeError(w, http.StatusConflict, "document code already exists")
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
