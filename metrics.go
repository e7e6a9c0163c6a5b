package gorestx

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("github.com/restxlabs/gorestx",
		metric.WithInstrumentationVersion(buildVersion))

	tracer = otel.Tracer("github.com/restxlabs/gorestx")
)

var (
	// requestsSent tracks the number of logical requests dispatched by clients.
	requestsSent, _ = meter.Int64Counter("gorestx.requests")

	// transportRetries tracks attempts that failed with a transient transport
	// error and were retried.
	transportRetries, _ = meter.Int64Counter("gorestx.transport_retries")

	// authRefreshes tracks forced re-authentications triggered by a 401 response.
	authRefreshes, _ = meter.Int64Counter("gorestx.auth_refreshes")
)
