// Package server exposes the dashboard over a JSON HTTP API.
//
// Routes:
//
//	GET    /health
//	GET    /api/candidates?search=&status=
//	POST   /api/candidates
//	PATCH  /api/candidates/{id}/status
//	DELETE /api/candidates/{id}
//	POST   /api/resumes              (multipart field "file")
//	GET    /api/stats
//	GET    /api/realtime
//	POST   /api/realtime/reconnect
//	GET    /api/events               (server-sent events, when a hub is set)
//	GET    /resumes/{name}           (local resume directory only)
//
// Errors are returned as {"error": "..."}.
package server
