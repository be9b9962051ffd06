// Package http provides HTTP handlers and middleware for the tutoring
// agency API.
//
// The router exposes the following endpoints:
//   - GET /sessions, POST /sessions: list and book sessions exchanging
//     the `sessionDTO` payload defined in session_handler.go. A POST
//     body carrying a `recurrence` rule books a whole series in one
//     all-or-nothing request.
//   - GET /sessions/{id}: fetch one session.
//   - PUT /sessions/{id}/status: drive the session lifecycle. Cancelling
//     requires a reason; completing accepts an optional rating and
//     feedback.
//   - PUT /sessions/{id}/schedule: move a session to a new date or time
//     slot, re-running conflict detection.
//   - DELETE /sessions/{id}: cancel a session (shorthand for a status
//     change into Cancelled).
//   - GET /payments?startDate&endDate[&tutorId]: per tutor payment
//     aggregates of completed sessions over an inclusive date range.
//   - GET /payments/tutors/{id}?startDate&endDate: one tutor's completed
//     session history and totals.
//   - PUT /payments/tutors/{id}/rate: change a tutor's hourly rate.
//
// Request/response DTOs live alongside their respective handlers so
// tests and documentation share the same ground truth.
package http
