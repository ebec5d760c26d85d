// Package session binds one model registry and one embedding trigger table to
// the lifetime of a generation backend. It is structured into small files by
// concern:
//
//   - session.go: Session type, constructor, model queries.
//   - config.go: Config and defaults.
//   - prepare.go: prompt preparation and backend log ingestion.
//   - status.go: Status reporting.
//   - events.go: EventPublisher and the in-memory publisher used by tests.
//   - errors.go: error types and helpers (IsModelNotFound, IsUnknownImplementation).
//   - metrics.go: Prometheus collectors fed by the session.
//
// All caches live on the Session; two sessions never share state.
package session
