package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
// On failure it writes the error response itself and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, requestBody(
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid request body: "+err.Error()))
	return false
}
