package httpx

import (
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
)

type Envelope map[string]any

func WriteJSON(w http.ResponseWriter, status int, data Envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}

	js = append(js, '\n')

	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func Success(w http.ResponseWriter, r *http.Request, status int, message Envelope) {
	if message == nil {
		message = make(Envelope, 1)
	}
	message["success"] = true

	err := WriteJSON(w, status, message, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to write success response", "status", status, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Message writes a success envelope carrying a single human readable message.
func Message(w http.ResponseWriter, r *http.Request, status int, message string) {
	Success(w, r, status, Envelope{"message": message})
}
