// Package api implements the HTTP surface shared by the Winston master and
// node daemons.
//
// This package provides:
//   - GET /io/... dispatched to an rpc.Router, with text/plain responses
//   - A bounded worker pool in front of the RPC routes
//   - GET /health, GET /metrics and GET /api/v1/system for monitoring
//   - A WebSocket hub at /ws streaming value and trigger events
//   - GET /api/v1/triggers/executions for the trigger execution log
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// Only the RPC routes are mandatory; everything else is mounted when its
// dependency is present, so the node daemon serves /io, /health and
// /metrics alone.
//
// There is no authentication. Daemons are expected to run on a trusted
// network.
package api
