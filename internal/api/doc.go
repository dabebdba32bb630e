// Package api implements the HTTP server for mC Connect Core.
//
// This package provides:
//   - POST /webhook, the fleet platform's event callback
//   - Admin REST endpoints for display registration, activation, frame
//     previews, the event log and promotion reloads
//   - A WebSocket hub that broadcasts screen changes to dashboards
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
//	Fleet platform ──POST /webhook──→ Dispatcher ──→ Controllers
//	Dashboard ──REST (JWT)──→ Provisioner / Registry / Event log
//	Controllers ──transitions──→ Hub ──WebSocket──→ Dashboard
//
// The webhook is unauthenticated: the fleet platform cannot attach a
// token. It only ever answers 200 or 400.
package api
