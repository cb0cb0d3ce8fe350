package toolserver

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves the same Dispatch call over HTTP POST: one framed JSON
// Request body in, one framed JSON Response body out. Unlike stdio,
// concurrent in-flight requests are fully supported -- Registry.Dispatch
// holds no shared mutable state across calls.
func HTTPHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusOK, Response{Ok: false, ErrorType: ErrKindParse, Error: "parse failure: " + err.Error()})
			return
		}

		resp := registry.Dispatch(r.Context(), req)
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
