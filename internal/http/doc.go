// Package http provides HTTP handlers and middleware for the calendar sync
// service.
//
// The router exposes the following endpoints:
//   - POST /calendar/webhook: receives provider push notifications. The
//     channel is identified by the `X-Goog-Channel-ID` header, with
//     `X-Goog-Resource-ID` and `X-Goog-Resource-State` alongside. Responds
//     200 as soon as the notification is accepted; unknown channels get 404
//     and expired channels 410 after their registration is torn down.
//   - POST /calendar/watch: registers a watch channel for the user named in
//     the `watchRequest` body, replacing any previous registration.
//   - DELETE /calendar/watch/{user_id}: stops and removes the user's watch
//     channel.
//   - GET /calendar/sync/status/{user_id}: reports the user's sync health as
//     the `statusDTO` payload defined in watch_handler.go.
//   - GET /healthz: liveness probe.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
