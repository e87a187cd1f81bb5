package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
)

const tracerName = "github.com/jhoicas/stock-reservations/internal/application/reservation"

// ItemOutcome resultado de la operación de stock de una línea.
type ItemOutcome string

const (
	ItemReserved ItemOutcome = "RESERVED"
	ItemFailed   ItemOutcome = "FAILED"
	ItemReleased ItemOutcome = "RELEASED"
)

// ItemResult estado por línea; Err solo se llena cuando Outcome es FAILED.
type ItemResult struct {
	Item    entity.ReservationItem
	Outcome ItemOutcome
	Err     error
}

// CreateResult reserva creada (nil si falló) y el estado de cada línea.
type CreateResult struct {
	Reservation *entity.Reservation
	Items       []ItemResult
}

// TransitionResult resultado de confirm/cancel/releaseExpired.
// Applied es false cuando la llamada fue un no-op (reserva ya terminal o inexistente).
type TransitionResult struct {
	Reservation *entity.Reservation
	Applied     bool
	FailedItems []ItemResult
}

// LifecycleService máquina de estados de las reservas: PENDING -> CONFIRMED | CANCELLED | EXPIRED.
// Toda transición se reclama con una escritura condicionada a la versión de la reserva antes de mover stock,
// así confirm y releaseExpired concurrentes sobre el mismo ID nunca aplican ambos.
type LifecycleService struct {
	stock     StockService
	store     repository.ReservationRepository
	cfg       Config
	publisher EventPublisher
	observer  Observer
	tracer    trace.Tracer
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configura dependencias opcionales del servicio.
type Option func(*LifecycleService)

// WithPublisher publica eventos de cada transición aplicada.
func WithPublisher(p EventPublisher) Option {
	return func(s *LifecycleService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithObserver registra contadores del ciclo de vida.
func WithObserver(o Observer) Option {
	return func(s *LifecycleService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock reemplaza time.Now (tests de expiración).
func WithClock(now func() time.Time) Option {
	return func(s *LifecycleService) { s.now = now }
}

// WithIDGenerator reemplaza la generación de IDs de reserva.
func WithIDGenerator(gen func() string) Option {
	return func(s *LifecycleService) { s.newID = gen }
}

// NewLifecycleService construye el servicio.
func NewLifecycleService(stock StockService, store repository.ReservationRepository, cfg Config, log zerolog.Logger, opts ...Option) *LifecycleService {
	def := DefaultConfig()
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if cfg.RetainTerminal <= 0 {
		cfg.RetainTerminal = def.RetainTerminal
	}
	if cfg.PendingGrace <= 0 {
		cfg.PendingGrace = def.PendingGrace
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = def.SettleTimeout
	}
	s := &LifecycleService{
		stock:     stock,
		store:     store,
		cfg:       cfg,
		publisher: noopPublisher{},
		observer:  noopObserver{},
		tracer:    otel.Tracer(tracerName),
		log:       log,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storageTTL vida del registro en el almacén. Una PENDING vive hasta ExpiresAt más PendingGrace: el
// descarte por TTL llega PendingGrace después del vencimiento, tiempo en el que el reaper debe liberarla.
// Un estado terminal vive RetainTerminal.
func (s *LifecycleService) storageTTL(r *entity.Reservation, now time.Time) time.Duration {
	if r.Status.IsTerminal() {
		return s.cfg.RetainTerminal
	}
	ttl := r.ExpiresAt.Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	return ttl + s.cfg.PendingGrace
}

// settleContext contexto de los movimientos de stock que siguen a un reclamo ya escrito (o a una
// compensación): conserva valores y traza del llamador, ignora su cancelación y se acota con SettleTimeout.
func (s *LifecycleService) settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SettleTimeout)
}

func validateItems(items []entity.ReservationItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: la reserva requiere al menos un ítem", domain.ErrInvalidInput)
	}
	for _, it := range items {
		if strings.TrimSpace(it.SKU) == "" {
			return fmt.Errorf("%w: sku requerido", domain.ErrInvalidInput)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: sku %s", domain.ErrInvalidQuantity, it.SKU)
		}
	}
	return nil
}

// Create reserva cada ítem y persiste una reserva PENDING con ExpiresAt = now + DefaultTTL.
// Se intentan todas las líneas; si alguna falla se liberan las ya reservadas (lista de compensación)
// y se devuelve *domain.ReservationFailedError con los SKUs fallidos. El resultado por línea se devuelve siempre.
func (s *LifecycleService) Create(ctx context.Context, items []entity.ReservationItem) (*CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Create")
	defer span.End()
	span.SetAttributes(attribute.Int("reservation.items", len(items)))

	if err := validateItems(items); err != nil {
		s.observer.ObserveOutcome("create", "invalid")
		return nil, err
	}

	result := &CreateResult{Items: make([]ItemResult, len(items))}
	var compensations []int
	var failedSKUs []string
	var firstErr error
	for i, item := range items {
		result.Items[i] = ItemResult{Item: item}
		if _, err := s.stock.Reserve(ctx, item.SKU, item.Quantity); err != nil {
			result.Items[i].Outcome = ItemFailed
			result.Items[i].Err = err
			failedSKUs = append(failedSKUs, item.SKU)
			if firstErr == nil {
				firstErr = err
			}
			s.log.Info().Err(err).Str("sku", item.SKU).Int64("quantity", item.Quantity).Msg("no se pudo reservar la línea")
			continue
		}
		result.Items[i].Outcome = ItemReserved
		compensations = append(compensations, i)
	}

	if firstErr != nil {
		s.compensate(ctx, result, compensations)
		s.observer.ObserveOutcome("create", "rejected")
		err := &domain.ReservationFailedError{FailedSKUs: failedSKUs, Cause: firstErr}
		span.RecordError(err)
		span.SetStatus(codes.Error, "reservation rejected")
		return result, err
	}

	now := s.now()
	r := &entity.Reservation{
		ID:        s.newID(),
		Items:     append([]entity.ReservationItem(nil), items...),
		Status:    entity.ReservationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cfg.DefaultTTL),
		Version:   1,
	}
	if err := s.store.Put(ctx, r, s.storageTTL(r, now)); err != nil {
		s.compensate(ctx, result, compensations)
		s.observer.ObserveOutcome("create", "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "store put failed")
		return result, fmt.Errorf("guardar reserva: %w", err)
	}

	result.Reservation = r
	span.SetAttributes(attribute.String("reservation.id", r.ID))
	s.observer.ObserveOutcome("create", "created")
	s.log.Info().Str("reservation_id", r.ID).Int("items", len(items)).Time("expires_at", r.ExpiresAt).Msg("reserva creada")
	s.publish(ctx, EventCreated, r, nil)
	return result, nil
}

// compensate libera, en orden inverso, las líneas reservadas en el paso hacia adelante. Best effort:
// TryRelease ya registra la causa de cada fallo y la línea conserva el estado RESERVED.
func (s *LifecycleService) compensate(ctx context.Context, result *CreateResult, reserved []int) {
	ctx, cancel := s.settleContext(ctx)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "reservation.compensation.Release")
	defer span.End()
	for i := len(reserved) - 1; i >= 0; i-- {
		idx := reserved[i]
		item := result.Items[idx].Item
		if !s.stock.TryRelease(ctx, item.SKU, item.Quantity) {
			span.SetStatus(codes.Error, "compensation incomplete")
			s.log.Error().Str("sku", item.SKU).Int64("quantity", item.Quantity).Msg("compensación fallida: stock queda reservado")
			s.observer.ObserveOutcome("compensate", "failed")
			continue
		}
		result.Items[idx].Outcome = ItemReleased
		s.observer.ObserveOutcome("compensate", "released")
	}
}

// Confirm pasa la reserva a CONFIRMED enlazando orderID y mueve el stock de reservado a vendido.
// Errores: ErrNotFound, ErrInvalidState (no PENDING), ErrReservationExpired (ExpiresAt alcanzado aunque siga PENDING).
// Los fallos por ítem al confirmar stock se registran y se devuelven en FailedItems; no abortan el resto.
func (s *LifecycleService) Confirm(ctx context.Context, id, orderID string) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Confirm", trace.WithAttributes(
		attribute.String("reservation.id", id),
		attribute.String("order.id", orderID),
	))
	defer span.End()

	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order_id requerido", domain.ErrInvalidInput)
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail(span, "confirm", err)
	}
	now := s.now()
	if r.Status != entity.ReservationStatusPending {
		return nil, s.fail(span, "confirm", fmt.Errorf("%w: reserva %s en estado %s", domain.ErrInvalidState, id, r.Status))
	}
	if r.IsExpired(now) {
		return nil, s.fail(span, "confirm", fmt.Errorf("%w (reserva %s)", domain.ErrReservationExpired, id))
	}

	next := r.Transition(entity.ReservationStatusConfirmed, orderID, now)
	if err := s.claim(ctx, r, next, now); err != nil {
		return nil, s.fail(span, "confirm", err)
	}

	// El reclamo ya es definitivo: cancelar al llamador no puede dejar el stock a medio mover.
	settleCtx, cancel := s.settleContext(ctx)
	defer cancel()
	failed := s.applyToItems(settleCtx, next, "confirm", s.stock.Confirm)
	s.observer.ObserveOutcome("confirm", "confirmed")
	s.log.Info().Str("reservation_id", id).Str("order_id", orderID).Int("failed_items", len(failed)).Msg("reserva confirmada")
	s.publish(settleCtx, EventConfirmed, next, failed)
	return &TransitionResult{Reservation: next, Applied: true, FailedItems: failed}, nil
}

// Cancel libera el stock de una reserva PENDING y la marca CANCELLED.
// Sobre una reserva ya terminal es un no-op exitoso; una reserva inexistente devuelve ErrNotFound.
func (s *LifecycleService) Cancel(ctx context.Context, id string) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Cancel", trace.WithAttributes(attribute.String("reservation.id", id)))
	defer span.End()

	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail(span, "cancel", err)
	}
	res, err := s.release(ctx, r, entity.ReservationStatusCancelled)
	if err != nil {
		return nil, s.fail(span, "cancel", err)
	}
	return res, nil
}

// ReleaseExpired igual que Cancel pero marca EXPIRED. La invoca el reaper; es idempotente:
// una reserva inexistente o ya terminal no se toca y el stock nunca se acredita dos veces.
func (s *LifecycleService) ReleaseExpired(ctx context.Context, id string) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.ReleaseExpired", trace.WithAttributes(attribute.String("reservation.id", id)))
	defer span.End()

	r, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.observer.ObserveOutcome("expire", "noop")
		return &TransitionResult{}, nil
	}
	if err != nil {
		return nil, s.fail(span, "expire", err)
	}
	if !r.Status.IsTerminal() && !r.IsExpired(s.now()) {
		return nil, s.fail(span, "expire", fmt.Errorf("%w: reserva %s aún vigente", domain.ErrInvalidState, id))
	}
	res, err := s.release(ctx, r, entity.ReservationStatusExpired)
	if errors.Is(err, domain.ErrNotFound) {
		return &TransitionResult{}, nil
	}
	if err != nil {
		return nil, s.fail(span, "expire", err)
	}
	return res, nil
}

// release transición común de Cancel y ReleaseExpired.
func (s *LifecycleService) release(ctx context.Context, r *entity.Reservation, status entity.ReservationStatus) (*TransitionResult, error) {
	op := operationFor(status)
	if r.Status.IsTerminal() {
		s.observer.ObserveOutcome(op, "noop")
		return &TransitionResult{Reservation: r}, nil
	}

	now := s.now()
	next := r.Transition(status, "", now)
	if err := s.claim(ctx, r, next, now); err != nil {
		// Otra transición ganó la carrera: para cancel/expire eso es un no-op, no un error.
		if errors.Is(err, domain.ErrInvalidState) {
			s.observer.ObserveOutcome(op, "noop")
			current, getErr := s.store.Get(ctx, r.ID)
			if getErr != nil {
				current = nil
			}
			return &TransitionResult{Reservation: current}, nil
		}
		return nil, err
	}

	settleCtx, cancel := s.settleContext(ctx)
	defer cancel()
	failed := s.applyToItems(settleCtx, next, op, s.stock.Release)
	s.observer.ObserveOutcome(op, strings.ToLower(string(status)))
	s.log.Info().Str("reservation_id", r.ID).Str("status", string(status)).Int("failed_items", len(failed)).Msg("reserva liberada")
	eventType := EventCancelled
	if status == entity.ReservationStatusExpired {
		eventType = EventExpired
	}
	s.publish(settleCtx, eventType, next, failed)
	return &TransitionResult{Reservation: next, Applied: true, FailedItems: failed}, nil
}

// claim escribe la transición condicionada a la versión leída. Si la versión cambió, relee para
// distinguir una transición concurrente (ErrInvalidState) de una reserva que ya no existe (ErrNotFound).
func (s *LifecycleService) claim(ctx context.Context, current, next *entity.Reservation, now time.Time) error {
	ok, err := s.store.CompareAndSwap(ctx, current.Version, next, s.storageTTL(next, now))
	if err != nil {
		return fmt.Errorf("transición de reserva %s: %w", current.ID, err)
	}
	if ok {
		return nil
	}
	latest, err := s.store.Get(ctx, current.ID)
	if err != nil {
		return err
	}
	if latest.Status.IsTerminal() {
		return fmt.Errorf("%w: reserva %s ya está en estado %s", domain.ErrInvalidState, current.ID, latest.Status)
	}
	return fmt.Errorf("%w: reserva %s", domain.ErrConcurrentModification, current.ID)
}

// applyToItems ejecuta op sobre cada línea sin detenerse ante fallos y devuelve las líneas fallidas.
func (s *LifecycleService) applyToItems(ctx context.Context, r *entity.Reservation, op string,
	fn func(ctx context.Context, sku string, qty int64) (*entity.StockRecord, error)) []ItemResult {
	var failed []ItemResult
	for _, item := range r.Items {
		if _, err := fn(ctx, item.SKU, item.Quantity); err != nil {
			s.log.Error().Err(err).
				Str("reservation_id", r.ID).
				Str("op", op).
				Str("sku", item.SKU).
				Int64("quantity", item.Quantity).
				Msg("fallo de stock en línea de reserva; se continúa con las demás")
			s.observer.ObserveOutcome(op, "item_failed")
			failed = append(failed, ItemResult{Item: item, Outcome: ItemFailed, Err: err})
		}
	}
	return failed
}

// IsValid true si la reserva existe, está PENDING y now < ExpiresAt.
func (s *LifecycleService) IsValid(ctx context.Context, id string) (bool, error) {
	r, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.IsValid(s.now()), nil
}

// Get lectura de una reserva.
func (s *LifecycleService) Get(ctx context.Context, id string) (*entity.Reservation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.store.Get(ctx, id)
}

// Now reloj del servicio (lo comparten el reaper y los handlers).
func (s *LifecycleService) Now() time.Time { return s.now() }

func (s *LifecycleService) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.ErrorCode(err))
	s.observer.ObserveOutcome(op, strings.ToLower(domain.ErrorCode(err)))
	return err
}

func (s *LifecycleService) publish(ctx context.Context, typ EventType, r *entity.Reservation, failed []ItemResult) {
	ev := Event{
		Type:          typ,
		ReservationID: r.ID,
		Status:        string(r.Status),
		OrderID:       r.OrderID,
		Items:         r.Items,
		ExpiresAt:     r.ExpiresAt,
		OccurredAt:    s.now(),
	}
	for _, f := range failed {
		ev.FailedSKUs = append(ev.FailedSKUs, f.Item.SKU)
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("reservation_id", r.ID).Str("event", string(typ)).Msg("no se pudo publicar el evento")
	}
}

func operationFor(status entity.ReservationStatus) string {
	if status == entity.ReservationStatusExpired {
		return "expire"
	}
	return "cancel"
}
