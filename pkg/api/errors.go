package api

import (
	"errors"
	"net/http"

	"github.com/solvenote/solvenote/pkg/credits"
	"github.com/solvenote/solvenote/pkg/httputil"
	"github.com/solvenote/solvenote/pkg/observability"
)

// noCreditsMessage is the error text clients match on to show the upgrade prompt
const noCreditsMessage = "No credits remaining"

// writeServiceError maps a credit service error to a status code. Store
// failures are logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := observability.FromContext(r.Context()).WithError(err).WithField("operation", op)

	switch {
	case errors.Is(err, credits.ErrEmptyUserID):
		httputil.WriteBadRequest(w, err.Error())
	case credits.IsInfrastructure(err):
		logger.Error("credit store unavailable")
		httputil.WriteInternalError(w)
	default:
		logger.Error("request failed")
		httputil.WriteInternalError(w)
	}
}
