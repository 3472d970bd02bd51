// Package services holds the application services behind the HTTP handlers.
//
// ExportService turns a validated API request into an engine export or
// preview and optionally keeps a copy of each artifact. HealthService
// reports liveness, readiness and version information.
//
// Services depend on small interfaces, not on concrete engine types, so
// handlers and tests can swap them with testify mocks.
package services
