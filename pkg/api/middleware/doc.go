// Package middleware provides the HTTP middleware for the chainviz API.
//
// Every middleware has the shape func(http.Handler) http.Handler so they
// chain directly:
//
//	handler := middleware.Metrics(registry)(mux)
//	handler = middleware.CORS(cors)(handler)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.RequestID()(handler)
//	handler = middleware.PanicRecovery(logger)(handler)
//
// Metrics should sit closest to the mux: it labels requests by the matched
// route pattern, which the mux records on the request it is handed.
package middleware
