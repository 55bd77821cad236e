package middleware

import (
	"net/http"

	rampguard "github.com/zestpay/rampguard"
)

// RequireUnlocked rejects requests whose identifier is currently locked out
// after repeated verification failures, answering 423 before the handler
// runs. Requests with no extractable identifier pass through.
func RequireUnlocked(engine *rampguard.Engine, subject string, extract Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnavailable(w)
				return
			}

			var identifier string
			if extract != nil {
				identifier, _ = extract(r)
			}
			if identifier == "" {
				next.ServeHTTP(w, r)
				return
			}

			locked, err := engine.IsAuthLocked(r.Context(), subject, identifier)
			if err != nil {
				writeUnavailable(w)
				return
			}
			if locked {
				writeJSON(w, http.StatusLocked, deniedBody{Message: "account temporarily locked"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
