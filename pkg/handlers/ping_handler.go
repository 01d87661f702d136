package handlers

import "net/http"

// PingHandler answers healthchecks with a bare "pong".
func PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
