// Package app wires the export server together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, environment)
//	2. Initialize logging and OpenTelemetry
//	3. Create the WebSocket hub and the export sinks (CSV, Excel, PDF)
//	4. Build the orchestrator with the hub as its notifier
//	5. Create the export and health services, plus the artifact store when
//	   persistence is enabled
//	6. Mount handlers and middleware on a chi router
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Tests build the application with New and an explicit config, then drive
// Router directly or Start it on a random port.
//
// # Graceful Shutdown
//
// Run returns on SIGINT, SIGTERM or context cancellation. Stop drains
// in-flight requests within the configured shutdown timeout, then
// disconnects WebSocket clients, closes the print browser and flushes
// telemetry.
//
// Initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
