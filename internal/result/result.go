// Package result holds the HTTP response shape shared by cmd/mathserver's
// endpoints: a status code, a JSON body, and an internal
// log message kept separate from whatever the client sees — grounded on
// server/result/result.go's Result/WriteResponse idiom.
package result

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// ErrorResponse is the JSON body of any non-2xx Result.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// Result is a deferred HTTP response: built by a handler, written by the
// Endpoint wrapper once, and logged exactly once regardless of how many
// times a handler constructs intermediate Results.
type Result struct {
	Status      int
	IsErr       bool
	InternalMsg string

	resp interface{}
	hdrs [][2]string
}

// OK wraps respObj in an HTTP-200 Result.
func OK(respObj interface{}, internalMsg string, args ...interface{}) Result {
	return Result{Status: http.StatusOK, resp: respObj, InternalMsg: fmt.Sprintf(internalMsg, args...)}
}

// BadRequest returns an HTTP-400 Result whose body is userMsg.
func BadRequest(userMsg string, internalMsg string, args ...interface{}) Result {
	return errResult(http.StatusBadRequest, userMsg, internalMsg, args...)
}

// Unauthorized returns an HTTP-401 Result with a WWW-Authenticate header,
// matching server/result.Unauthorized's bearer-scheme convention.
func Unauthorized(userMsg string, internalMsg string, args ...interface{}) Result {
	if userMsg == "" {
		userMsg = "a valid bearer token is required"
	}
	r := errResult(http.StatusUnauthorized, userMsg, internalMsg, args...)
	r.hdrs = append(r.hdrs, [2]string{"WWW-Authenticate", `Bearer realm="mathserver"`})
	return r
}

// InternalServerError returns a generic HTTP-500 Result; the real cause is
// only ever recorded in internalMsg, never exposed to the client.
func InternalServerError(internalMsg string, args ...interface{}) Result {
	return errResult(http.StatusInternalServerError, "an internal server error occurred", internalMsg, args...)
}

// NotFound returns an HTTP-404 Result.
func NotFound(internalMsg string, args ...interface{}) Result {
	return errResult(http.StatusNotFound, "the requested resource was not found", internalMsg, args...)
}

func errResult(status int, userMsg, internalMsg string, args ...interface{}) Result {
	return Result{
		Status:      status,
		IsErr:       true,
		InternalMsg: fmt.Sprintf(internalMsg, args...),
		resp:        ErrorResponse{Error: userMsg, Status: status},
	}
}

// WriteResponse marshals and writes r to w. It panics if r was never
// assigned a Status, the same defensive contract as the teacher's Result.
func (r Result) WriteResponse(w http.ResponseWriter) {
	if r.Status == 0 {
		panic("result: not populated")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	for _, h := range r.hdrs {
		w.Header().Set(h[0], h[1])
	}

	var body []byte
	if r.Status != http.StatusNoContent {
		var err error
		body, err = json.Marshal(r.resp)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(r.Status)
	if body != nil {
		w.Write(body)
	}
}

// Log writes r's internal message to the standard logger, tagged with the
// request method/path and final status — grounded on server/result's
// "log once, regardless of how the result was built" discipline.
func (r Result) Log(method, path string) {
	log.Printf("%s %s -> %d: %s", method, path, r.Status, r.InternalMsg)
}
