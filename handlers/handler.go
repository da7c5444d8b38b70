// Package handlers exposes the board and account services over HTTP.
// Every response body is a services.Result envelope.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/services"
	"taskboard/utilities"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	board    *services.BoardService
	accounts *services.Accounts
	store    Pinger
}

func New(board *services.BoardService, accounts *services.Accounts, store Pinger) *Handler {
	return &Handler{board: board, accounts: accounts, store: store}
}

func statusFor(res *services.Result, okStatus int) int {
	if res.Success {
		return okStatus
	}
	switch res.Code {
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeUnauthorized:
		return http.StatusForbidden
	case services.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		utilities.LogError(err, "writeJSON: failed to encode response")
	}
}

// writeResult maps a service outcome to a response. Infrastructure errors
// are logged and reported as 500 without their details.
func writeResult(w http.ResponseWriter, where string, res *services.Result, err error, okStatus int) {
	if err != nil {
		utilities.LogError(err, where)
		writeJSON(w, http.StatusInternalServerError, &services.Result{
			Success: false,
			Message: "internal server error",
		})
		return
	}
	if !res.Success {
		utilities.LogDebug("%s: %s (%s)", where, res.Message, res.Code)
	}
	writeJSON(w, statusFor(res, okStatus), res)
}

func writeFailure(w http.ResponseWriter, f *services.Failure) {
	res := f.Result()
	writeJSON(w, statusFor(res, http.StatusOK), res)
}

// decodeBody reads a JSON payload into v.
func decodeBody(r *http.Request, v any) *services.Failure {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON payload"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		return &services.Failure{Code: services.CodeValidation, Message: msg}
	}
	return nil
}

func invalidParam(format string, args ...any) *services.Failure {
	return &services.Failure{Code: services.CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func scopeFrom(r *http.Request) services.Scope {
	vars := mux.Vars(r)
	return services.Scope{WorkspaceID: vars["workspace_id"], ListID: vars["list_id"]}
}
