// Package tracing provides OpenTelemetry tracing helpers for feedsync.
//
// Spans are created through the global tracer provider. Setup installs an
// SDK provider so spans carry real trace IDs and are propagated on outgoing
// requests; nothing is exported unless an exporter option is passed. Tests
// install an in-memory exporter from go.opentelemetry.io/otel/sdk/trace/tracetest.
//
// Example usage:
//
//	ctx, span := tracing.StartSpan(ctx, "syncer.SyncFeed",
//	    attribute.String("feed", feed.Label()))
//	defer span.End()
//
//	client := &http.Client{Transport: tracing.NewTransport(nil)}
package tracing
