package rpcontract

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// response is the envelope for successful responses: {"result": ...}.
type response struct {
	Result any `json:"result"`
}

// errorResponse is the envelope for error responses: {"error": {...}}.
type errorResponse struct {
	Error *Error `json:"error"`
}

// WriteResult writes result wrapped in the success envelope.
func WriteResult(w http.ResponseWriter, result any, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response{Result: result}); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// WriteError maps err with AsError and writes it in the error envelope
// using the code's HTTP status.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e := AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code.HTTPStatus())
	if encErr := json.NewEncoder(w).Encode(errorResponse{Error: e}); encErr != nil {
		// Headers already sent.
		logger.Error("failed to encode error response",
			slog.String("code", string(e.Code)),
			slog.String("message", e.Message),
			slog.Any("error", encErr))
	}
}
