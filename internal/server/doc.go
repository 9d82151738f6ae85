// Package server implements the HTTP server using Echo framework.
//
// Routes: observability (health/metrics), read-only sentiment API, operator
// queue triage, and the websocket subscriber channel.
// Handlers split by domain: handlers_api.go, handlers_health.go, handlers_ws.go.
package server
