// Package middle holds cmd/mathserver's HTTP middleware: panic recovery and
// bearer-token authentication, grounded on server/middle/middle.go and
// server/token.go's AuthHandler.
package middle

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dekarrin/mathexpr/internal/result"
)

// Middleware wraps a handler with additional behavior.
type Middleware func(next http.Handler) http.Handler

// DontPanic recovers any panic escaping the wrapped handler and turns it
// into a generic HTTP-500, matching server/middle.DontPanic's contract.
func DontPanic() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					r := result.InternalServerError("panic: %v\n%s", p, debug.Stack())
					r.WriteResponse(w)
					r.Log(req.Method, req.URL.Path)
				}
			}()
			next.ServeHTTP(w, req)
		})
	}
}

// unauthedDelay is slept before writing a 401, the same brute-force
// throttle server/endpoints.go's Endpoint wrapper applies to 401/403/500.
const unauthedDelay = time.Second

// RequireBearer returns Middleware that rejects any request without a
// Authorization: Bearer <jwt> header signed with secret, unless secret is
// empty (auth disabled). This is a deliberate simplification of
// server/token.go's user-database-backed AuthHandler: mathexpr has no user
// accounts, so every valid bearer token carries the same access — there is
// nothing to look up per-subject.
func RequireBearer(secret []byte) Middleware {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			tok, err := bearerToken(req)
			if err != nil {
				reject(w, req, err)
				return
			}
			if _, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err != nil {
				reject(w, req, err)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func reject(w http.ResponseWriter, req *http.Request, err error) {
	r := result.Unauthorized("", "bearer auth failed: %s", err.Error())
	time.Sleep(unauthedDelay)
	r.WriteResponse(w)
	r.Log(req.Method, req.URL.Path)
}

func bearerToken(req *http.Request) (string, error) {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if header == "" {
		return "", fmt.Errorf("no authorization header present")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(strings.TrimSpace(parts[0]), "bearer") {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	return strings.TrimSpace(parts[1]), nil
}
