// Package api holds cmd/mathserver's HTTP handlers: an API struct bundling
// the dependencies every endpoint needs, with each HTTP* method returning
// an http.HandlerFunc built from an EndpointFunc — grounded on
// server/endpoints.go's API/Endpoint/EndpointFunc shape, adapted from a
// user-facing game API to mathexpr's evaluate/derive/history surface.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dekarrin/mathexpr/ast"
	"github.com/dekarrin/mathexpr/backend"
	"github.com/dekarrin/mathexpr/cmd/mathserver/history"
	"github.com/dekarrin/mathexpr/internal/render"
	"github.com/dekarrin/mathexpr/internal/result"
	"github.com/dekarrin/mathexpr/parser"
	"github.com/dekarrin/mathexpr/transform"
)

// API holds the dependencies shared by every mathserver endpoint.
type API struct {
	// Registry supplies the back-ends /evaluate and /derive compile
	// against.
	Registry *backend.Registry

	// History records every /evaluate and /derive request that reaches the
	// parser; requests rejected before that are not recorded. A no-op Store
	// (from history.Open("")) silently drops records.
	History *history.Store

	// UnauthDelay throttles 401/500 responses, the same brute-force
	// deterrent server/endpoints.go's Endpoint wrapper applies.
	UnauthDelay time.Duration
}

// EndpointFunc produces the Result an endpoint should send.
type EndpointFunc func(req *http.Request) result.Result

// Endpoint wraps ep as an http.HandlerFunc: it recovers panics (including
// the §4.8 evalPanic runtime-error contract), throttles unauthorized/
// erroring responses, writes the Result, and logs it exactly once.
func (api API) Endpoint(ep EndpointFunc) http.HandlerFunc {
	delay := api.UnauthDelay
	if delay == 0 {
		delay = time.Second
	}

	return func(w http.ResponseWriter, req *http.Request) {
		var r result.Result
		func() {
			defer func() {
				if p := recover(); p != nil {
					r = result.InternalServerError("panic: %v", p)
				}
			}()
			r = ep(req)
		}()

		if r.Status == http.StatusUnauthorized || r.Status == http.StatusInternalServerError {
			time.Sleep(delay)
		}

		r.WriteResponse(w)
		r.Log(req.Method, req.URL.Path)
	}
}

// evalRequest is the shared JSON body of /evaluate and /derive: an
// expression plus the variable bindings it references.
type evalRequest struct {
	Expression string             `json:"expression"`
	Variables  map[string]float64 `json:"variables"`
	Backend    string             `json:"backend"`
}

// evalResponse is /evaluate's success body.
type evalResponse struct {
	Result  string `json:"result"`
	Backend string `json:"backend"`
}

// deriveRequest is /derive's body: an expression, bindings, and the name
// of the variable to differentiate with respect to.
type deriveRequest struct {
	Expression    string             `json:"expression"`
	Variables     map[string]float64 `json:"variables"`
	WithRespectTo string             `json:"with_respect_to"`
	Backend       string             `json:"backend"`
}

// deriveResponse is /derive's success body: the simplified derivative in
// infix form, and its value at the given bindings.
type deriveResponse struct {
	Derivative string `json:"derivative"`
	Result     string `json:"result"`
	Backend    string `json:"backend"`
}

// HTTPEvaluate returns the handler for POST /evaluate.
func (api API) HTTPEvaluate() http.HandlerFunc {
	return api.Endpoint(api.epEvaluate)
}

func (api API) epEvaluate(req *http.Request) result.Result {
	var body evalRequest
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if strings.TrimSpace(body.Expression) == "" {
		return result.BadRequest("expression: property is empty or missing from request", "empty expression")
	}

	backendName, opts := api.bindVars(body.Variables)
	if body.Backend != "" {
		backendName = body.Backend
	}

	fn, err := parser.Parse(body.Expression, opts...)
	if err != nil {
		api.recordEntry(req, "evaluate", body.Expression, "", backendName, err)
		return result.BadRequest(err.Error(), "evaluate %q: %s", body.Expression, err.Error())
	}

	value, err := api.eval(fn, backendName)
	if err != nil {
		api.recordEntry(req, "evaluate", body.Expression, "", backendName, err)
		return result.BadRequest(err.Error(), "evaluate %q: %s", body.Expression, err.Error())
	}

	rendered := render.FormatNumber(value)
	api.recordEntry(req, "evaluate", body.Expression, rendered, backendName, nil)
	return result.OK(evalResponse{Result: rendered, Backend: backendName}, "evaluated %q -> %s", body.Expression, rendered)
}

// HTTPDerive returns the handler for POST /derive.
func (api API) HTTPDerive() http.HandlerFunc {
	return api.Endpoint(api.epDerive)
}

func (api API) epDerive(req *http.Request) result.Result {
	var body deriveRequest
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if strings.TrimSpace(body.Expression) == "" {
		return result.BadRequest("expression: property is empty or missing from request", "empty expression")
	}
	if body.WithRespectTo == "" {
		return result.BadRequest("with_respect_to: property is empty or missing from request", "empty with_respect_to")
	}

	backendName, opts := api.bindVars(body.Variables)
	if body.Backend != "" {
		backendName = body.Backend
	}

	fn, err := parser.Parse(body.Expression, opts...)
	if err != nil {
		api.recordEntry(req, "derive", body.Expression, "", backendName, err)
		return result.BadRequest(err.Error(), "derive %q: %s", body.Expression, err.Error())
	}

	wrt, ok := fn.Provider(body.WithRespectTo)
	if !ok {
		err := fmt.Errorf("%q is not a bound variable", body.WithRespectTo)
		api.recordEntry(req, "derive", body.Expression, "", backendName, err)
		return result.BadRequest(err.Error(), "derive %q: %s", body.Expression, err.Error())
	}

	derivRoot, err := transform.Differentiate(fn.Root, wrt)
	if err != nil {
		api.recordEntry(req, "derive", body.Expression, "", backendName, err)
		return result.BadRequest(err.Error(), "derive %q: %s", body.Expression, err.Error())
	}
	derivRoot = transform.Simplify(derivRoot)

	value, err := api.eval(ast.NewFunction(derivRoot), backendName)
	if err != nil {
		api.recordEntry(req, "derive", body.Expression, "", backendName, err)
		return result.BadRequest(err.Error(), "derive %q: %s", body.Expression, err.Error())
	}

	rendered := render.FormatNumber(value)
	resp := deriveResponse{
		Derivative: render.FormatInfix(derivRoot),
		Result:     rendered,
		Backend:    backendName,
	}
	api.recordEntry(req, "derive", body.Expression, rendered, backendName, nil)
	return result.OK(resp, "differentiated %q wrt %q -> %s", body.Expression, body.WithRespectTo, resp.Derivative)
}

// HTTPHistory returns the handler for GET /history.
func (api API) HTTPHistory() http.HandlerFunc {
	return api.Endpoint(api.epHistory)
}

func (api API) epHistory(req *http.Request) result.Result {
	limit := 20
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return result.BadRequest("limit: must be a positive integer", "bad limit %q", v)
		}
		limit = n
	}

	entries, err := api.History.Recent(req.Context(), limit)
	if err != nil {
		return result.InternalServerError("history query: %s", err.Error())
	}
	return result.OK(entries, "returned %d history entries", len(entries))
}

// HTTPHealthz returns the handler for GET /healthz.
func (api API) HTTPHealthz() http.HandlerFunc {
	return api.Endpoint(func(req *http.Request) result.Result {
		return result.OK(map[string]string{"status": "ok"}, "health check")
	})
}

// bindVars builds parser options binding each of vars to a fresh, stable
// address and returns the default back-end name (the registry's best).
func (api API) bindVars(vars map[string]float64) (string, []parser.Option) {
	opts := make([]parser.Option, 0, len(vars))
	for name, v := range vars {
		val := ast.Real(v)
		opts = append(opts, parser.WithProvider(name, &val))
	}
	return api.Registry.Best(), opts
}

// eval compiles fn with the named back-end and evaluates it, recovering
// the §4.8 evalPanic runtime-error contract as an ordinary error.
func (api API) eval(fn *ast.Function, backendName string) (value ast.Real, err error) {
	ev, err := api.Registry.Build(backendName, fn)
	if err != nil {
		return 0, err
	}
	defer ev.Close()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("evaluation failed: %v", p)
		}
	}()
	return ev.Eval(), nil
}

// recordEntry persists one request attempt to the history store. Recording
// is best-effort: a failure here must never mask the real evaluation
// outcome, so it is only logged.
func (api API) recordEntry(req *http.Request, op, expr, rendered, backendName string, evalErr error) {
	entry := history.Entry{
		Operation:  op,
		Expression: expr,
		Result:     rendered,
		Backend:    backendName,
	}
	if evalErr != nil {
		entry.Err = evalErr.Error()
	}
	if _, err := api.History.Record(req.Context(), entry); err != nil {
		log.Printf("history record failed: %s", err)
	}
}

// v must be a pointer to a type.
func parseJSON(req *http.Request, v interface{}) error {
	contentType := req.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
		return fmt.Errorf("request content-type is not application/json")
	}

	bodyData, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}

	if err := json.Unmarshal(bodyData, v); err != nil {
		return fmt.Errorf("malformed JSON in request")
	}
	return nil
}
