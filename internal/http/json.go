package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/target/auth-bff/internal/errors"
)

const maxJSONBody = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))

	if err := dec.Decode(dst); err != nil {
		WriteError(w, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid JSON body"))
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// errorBody is the single error shape every endpoint answers with.
type errorBody struct {
	Error string `json:"error"`
}

// WriteError writes {"error": message} with the status derived from err.
// Only AppError messages reach the client; anything else becomes a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, apperrors.HTTPStatus(err), errorBody{Error: apperrors.PublicMessage(err)})
}
