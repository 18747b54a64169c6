package handlers

import "net/http"

// Health reports liveness and database reachability.
func Health(ping func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ping(); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
