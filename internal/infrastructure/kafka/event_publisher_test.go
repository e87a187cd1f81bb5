package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-reservations/internal/application/reservation"
)

func TestBuildMessage_ClaveYPayload(t *testing.T) {
	ev := reservation.Event{
		Type:          reservation.EventExpired,
		ReservationID: "r-9",
		Status:        "EXPIRED",
		OccurredAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	msg, err := buildMessage(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, "r-9", string(msg.Key))

	var back reservation.Event
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, reservation.EventExpired, back.Type)
	assert.Equal(t, "reservation.expired", headerCarrier{headers: &msg.Headers}.Get("event-type"))
}

func TestBuildMessage_PropagaTraza(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg, err := buildMessage(ctx, reservation.Event{Type: reservation.EventCreated, ReservationID: "r-1"})
	require.NoError(t, err)
	assert.Contains(t, headerCarrier{headers: &msg.Headers}.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestHeaderCarrier_SetReemplaza(t *testing.T) {
	headers := []kafkago.Header{{Key: "a", Value: []byte("1")}}
	c := headerCarrier{headers: &headers}
	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}
