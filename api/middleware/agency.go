package middleware

import (
	"net/http"

	"github.com/kbrayane/immoflow-backend/api/responses"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
)

// AgencyContext rejects requests whose token carries no agency claim. Billing
// routes always act on behalf of one agency; superadmin tooling uses the
// admin routes instead.
func AgencyContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AgencyIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "agency context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
