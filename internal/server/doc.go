// Package server exposes audits over HTTP.
//
// Routes:
//
//	POST   /api/v1/audit        run an audit on an uploaded CSV (multipart field "file")
//	GET    /api/v1/audit/{id}   fetch a stored audit
//	DELETE /api/v1/audit/{id}   delete a stored audit
//	GET    /api/v1/audits       list stored audit ids (optional ?prefix=)
//	GET    /health              liveness probe
//	GET    /metrics             Prometheus metrics
//
// Errors are returned as {"error", "code", "message"}. Bad configuration maps
// to 400, an unreadable dataset to 422, an unknown audit to 404 and any other
// failure to 500 with a generic message.
package server
