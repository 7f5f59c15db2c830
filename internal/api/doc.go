// Package api hosts the HTTP server, middleware, and REST handlers for saved
// content. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/content to save text, code or links; links are queued for
//     preview and tag enrichment.
//   - GET /v1/content?user_id=&q=&limit= to search a user's items.
//   - GET and DELETE /v1/content/{id} scoped to the caller's user.
package api
