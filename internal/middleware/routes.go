package middleware

import "net/http"

// UnmatchedRoute labels requests that no registered route serves.
const UnmatchedRoute = "unmatched"

// RouteResolver reports the pattern that would serve a request.
// *http.ServeMux satisfies it.
type RouteResolver interface {
	Handler(r *http.Request) (http.Handler, string)
}

// routeLabel bounds metric and statistics labels to the registered patterns.
func routeLabel(routes RouteResolver, r *http.Request) string {
	if routes == nil {
		return r.URL.Path
	}
	if _, pattern := routes.Handler(r); pattern != "" {
		return pattern
	}
	return UnmatchedRoute
}
