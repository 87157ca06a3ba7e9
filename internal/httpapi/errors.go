package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/hollowmap/docdb/internal/docdb"
)

// errorResponse is the JSON body spec.md §6 specifies for a failed
// request: {"error": "..."}.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError is the boundary's single error-to-status mapping
// function, grounded on kailas-cloud/vecdex's writeError/
// handleDomainError split: every handler funnels errors through here
// instead of deciding its own status code.
func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	var de *docdb.Error
	if e, ok := err.(*docdb.Error); ok {
		de = e
	} else if u, ok := err.(interface{ Unwrap() error }); ok {
		if e, ok := u.Unwrap().(*docdb.Error); ok {
			de = e
		}
	}
	if de == nil {
		return http.StatusInternalServerError, "internal error"
	}
	switch de.Kind {
	case docdb.KindNotFound:
		return http.StatusNotFound, "Key not found"
	case docdb.KindMalformed:
		return http.StatusBadRequest, de.Error()
	case docdb.KindUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case docdb.KindCancelled:
		return http.StatusRequestTimeout, "request cancelled"
	case docdb.KindTransientStorage:
		return http.StatusServiceUnavailable, "storage temporarily unavailable"
	case docdb.KindFatalStorage:
		return http.StatusInternalServerError, "internal storage error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
