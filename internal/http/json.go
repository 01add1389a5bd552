package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape of every API response. Details carries
// field-level validation errors or the provider error kind.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, Message: "Invalid JSON body", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and body.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteSuccess writes a success envelope around data.
func WriteSuccess(w http.ResponseWriter, code int, data any) {
	WriteJSON(w, code, Envelope{Success: true, Data: data})
}

// WriteSuccessMessage writes a success envelope with a message and no data.
func WriteSuccessMessage(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, Envelope{Success: true, Message: message})
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	Message string
	Details any
	Err     error
}

// WriteError writes a failure envelope using ErrorParams. Message takes
// precedence over Err so internal error text is never shown unless the
// caller opts in.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	msg := p.Message
	if msg == "" && p.Err != nil {
		msg = p.Err.Error()
	}
	WriteJSON(w, p.Code, Envelope{Success: false, Message: msg, Details: p.Details})
}
