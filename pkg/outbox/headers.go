package outbox

import (
	"context"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tuanvumaihuynh/stock-cart/internal/identity"
	"github.com/tuanvumaihuynh/stock-cart/pkg/correlationid"
)

// BuildHeaders captures the trace context, correlation ID and acting user from ctx
// so they survive the trip through the outbox table and the broker.
func BuildHeaders(ctx context.Context) map[string]string {
	headers := map[string]string{}

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := correlationid.FromContext(ctx); ok {
		headers[correlationid.Header] = correlationID
	}
	if userID, ok := identity.UserFromContext(ctx); ok {
		headers[identity.Header] = userID.String()
	}

	return headers
}

// ExtractContextFromHeaders restores what [BuildHeaders] captured onto ctx.
func ExtractContextFromHeaders(ctx context.Context, headers map[string]string) context.Context {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := headers[correlationid.Header]; ok {
		ctx = correlationid.NewContext(ctx, correlationID)
	}
	if userID, err := uuid.Parse(headers[identity.Header]); err == nil {
		ctx = identity.NewContext(ctx, userID)
	}

	return ctx
}

// ContextFromRecord restores the correlation ID and acting user from Kafka record headers.
// Trace context is handled by the kotel hooks on the consumer.
func ContextFromRecord(ctx context.Context, rec *kgo.Record) context.Context {
	for _, header := range rec.Headers {
		switch header.Key {
		case correlationid.Header:
			ctx = correlationid.NewContext(ctx, string(header.Value))
		case identity.Header:
			if userID, err := uuid.ParseBytes(header.Value); err == nil {
				ctx = identity.NewContext(ctx, userID)
			}
		}
	}
	return ctx
}
