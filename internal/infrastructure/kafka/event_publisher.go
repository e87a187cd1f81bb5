package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/stock-reservations/internal/application/reservation"
)

var _ reservation.EventPublisher = (*EventPublisher)(nil)

// EventPublisher publica los eventos del ciclo de vida de reservas en un topic de Kafka.
// La clave del mensaje es el ID de la reserva: todos los eventos de una reserva caen en la misma partición.
type EventPublisher struct {
	writer *kafkago.Writer
}

// NewEventPublisher crea el writer sobre brokers/topic.
func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	return &EventPublisher{writer: &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// Publish serializa el evento y lo escribe con el contexto de traza en los headers.
func (p *EventPublisher) Publish(ctx context.Context, event reservation.Event) error {
	msg, err := buildMessage(ctx, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", event.Type, err)
	}
	return nil
}

// Close cierra el writer.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(ctx context.Context, event reservation.Event) (kafkago.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encode event: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(event.ReservationID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &msg.Headers})
	return msg, nil
}

// headerCarrier adapta los headers de kafka-go a propagation.TextMapCarrier.
type headerCarrier struct {
	headers *[]kafkago.Header
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafkago.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
