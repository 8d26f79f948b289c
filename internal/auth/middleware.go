package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

const bearerPrefix = "Bearer "

// Validator проверяет bearer-токен.
type Validator interface {
	Validate(token string) (string, error)
}

// Middleware пропускает запрос дальше только с валидным bearer-токеном.
func Middleware(validator Validator, logger *log.Entry) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "auth")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				writeUnauthorized(w)
				return
			}

			subject, err := validator.Validate(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), subject)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "Unauthorized"})
}
