// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteBadRequest(w, "invalid input")
//	httputil.WriteNotFound(w, "no such interface")
//
// # Request Parsing
//
// Path and query parameters:
//
//	name, ok := httputil.ParsePathStringOrError(w, r, "interface")
//	k, err := httputil.ParseQueryInt(r, "k", 10)
//
// # Middleware
//
// Compose the standard middleware stack:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//	)(mux)
package httputil
