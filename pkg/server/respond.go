package server

import (
	"encoding/json"
	"net/http"

	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/source/postgres"
)

// errorBody is the JSON envelope of every failed request.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as an envelope with the status its code maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	body := errorBody{
		Status:  "error",
		Message: errors.UserMessage(err),
		Error:   string(code),
	}
	if code == errors.ErrCodeInternal && errors.GetCode(err) == "" {
		body.Message = "internal server error"
	}
	writeJSON(w, errors.HTTPStatus(err), body)
}

// writeInsertError reports a failed insert with the driver's diagnostic.
func writeInsertError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	details := errors.UserMessage(err)
	if postgres.SQLState(err) != "" {
		details = postgres.DescribeError(err)
	}
	writeJSON(w, errors.HTTPStatus(err), errorBody{
		Status:  "error",
		Message: "failed to insert row",
		Error:   string(code),
		Details: details,
	})
}

func notFound(path string) error {
	return errors.New(errors.ErrCodeNotFound, "no route for %s", path)
}
