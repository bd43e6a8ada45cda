package middleware

import (
	"context"
	"net/http"
	"time"

	"keijiban-backend/constants"
	"keijiban-backend/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const requestIDKey contextKey = "request_id"

// responseWriter capture le code de statut et la taille de la réponse
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// RequestID propage ou génère l'en-tête X-Request-ID
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(constants.HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(constants.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// GetRequestID retourne l'identifiant de requête du contexte
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Logging journalise chaque requête et signale les erreurs serveur sur Slack
func Logging(slack *services.SlackService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			requestID := GetRequestID(r.Context())
			event := log.WithLevel(levelFor(rw.statusCode)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Int("size", rw.size).
				Dur("duration", time.Since(start)).
				Str("request_id", requestID)
			event.Msg("requête HTTP")

			if rw.statusCode >= http.StatusInternalServerError && slack.Enabled() {
				critical := services.CriticalError{
					Method:    r.Method,
					Path:      r.URL.Path,
					Status:    rw.statusCode,
					RequestID: requestID,
					UserAgent: r.UserAgent(),
				}
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := slack.SendCriticalError(ctx, critical); err != nil {
						log.Error().Err(err).Msg("❌ Erreur lors de l'envoi de la notification Slack")
					}
				}()
			}
		})
	}
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
