package devserver

import (
	"encoding/json"
	"finance-tracker-client/internal/model"
	"log/slog"
	"net/http"
)

func writeData(w http.ResponseWriter, statusCode int, data any) {
	writeEnvelope(w, statusCode, model.Envelope[any]{Successful: true, Data: data})
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, translationKey string) {
	writeEnvelope(w, statusCode, model.Envelope[any]{Successful: false, TranslationKey: translationKey})
}

func writeEnvelope(w http.ResponseWriter, statusCode int, envelope model.Envelope[any]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		slog.Error("[DevServer] ошибка кодирования ответа", slog.Any("error", err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "request.invalid-body")
		return err
	}
	return nil
}

func unauthorizedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendErrorResponse(w, http.StatusUnauthorized, "auth.unauthorized")
	})
}
