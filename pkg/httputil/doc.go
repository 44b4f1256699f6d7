// Package httputil provides the JSON response helpers, request parsing and
// middleware shared by the status server handlers.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteNotFoundError(w, "plugin not found: "+guid)
//	httputil.WriteServiceUnavailable(w, "no chainloader run has completed yet")
//
// # Request Parsing
//
//	guid, ok := httputil.PluginGUIDOrError(w, r)
//	depth, err := httputil.QueryInt(r, "depth", -1)
//	transitive, err := httputil.QueryBool(r, "transitive", true)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware(log),
//		httputil.LoggingMiddleware(log),
//	)
package httputil
