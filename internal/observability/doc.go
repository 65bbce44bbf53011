// Package observability provides logging and metrics support for the lab
// manager service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithComponent(logger, "person_service")
//	logger.Info().Int("person_id", id).Msg("person created")
//
// # Metrics
//
//	metrics := observability.NewMetrics("labmanager")
//	metrics.RecordPersonCreated()
//	metrics.RecordExport("bibtex", 12, 0.03)
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - correlation_id: identifier propagated across services
//   - component: emitting component
//   - person_id: Person identifier
//   - publication_id: Publication identifier
//
// All components are safe for concurrent use from multiple goroutines.
package observability
