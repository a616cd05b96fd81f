// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	appErrors "github.com/unclebandit/outreach/internal/errors"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error code to its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := appErrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch {
	case appErrors.IsNotFound(err):
		status = http.StatusNotFound
	case code == appErrors.CodeRunInvalidState, code == appErrors.CodeSenderExists:
		status = http.StatusConflict
	case code == appErrors.CodeValidation:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Error: code, Message: err.Error()})
}

// decodeBody decodes an optional JSON body into v. An empty body is not an
// error.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return appErrors.NewValidation("body", err.Error())
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, appErrors.NewValidation("limit", "must be a non-negative integer")
	}
	return n, nil
}

// queryArchived reports whether ?archived= asks for archived records.
func queryArchived(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("archived"))
	return ok
}
