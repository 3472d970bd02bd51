// Package http implements the HTTP handlers of the export service. Handlers
// only deal with HTTP concerns: they decode and validate requests, call the
// service layer and write the response.
//
// # Routes
//
//	POST /api/export            run an export and stream the artifact
//	POST /api/export/preview    flatten and project without rendering
//	GET  /api/export/formats    formats with a registered sink
//	GET  /api/artifacts         list persisted artifacts
//	GET  /api/artifacts/{name}  download a persisted artifact
//	POST /api/logs              forward a client-side log entry
//	GET  /api/health[/ready|/live], /api/version
//
// # Error Handling
//
// Every failure is written as RFC 7807 problem details through
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/export/no-data",
//	    "title": "No Data",
//	    "status": 422,
//	    "detail": "There is no data to export for the selected scope.",
//	    "instance": "/api/export",
//	    "trace_id": "..."
//	}
package http
