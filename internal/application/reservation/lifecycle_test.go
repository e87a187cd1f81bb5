package reservation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/stock-reservations/internal/application/inventory"
	"github.com/jhoicas/stock-reservations/internal/application/reservation"
	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
	"github.com/jhoicas/stock-reservations/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []reservation.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev reservation.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []reservation.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]reservation.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	clock     *fakeClock
	stock     *memory.StockRecordStore
	store     *memory.ReservationStore
	publisher *recordingPublisher
	svc       *reservation.LifecycleService
}

const ttl = 15 * time.Minute

func newFixture(t *testing.T, stock map[string]int64) *fixture {
	t.Helper()
	f := &fixture{
		clock:     &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
		stock:     memory.NewStockRecordStore(),
		publisher: &recordingPublisher{},
	}
	f.store = memory.NewReservationStore(f.clock.Now)
	for sku, qty := range stock {
		require.NoError(t, f.stock.Create(context.Background(), &entity.StockRecord{
			ID: "id-" + sku, SKU: sku, QuantityAvailable: qty, Version: 1,
		}))
	}
	f.svc = f.newService(f.stock, f.store, reservation.Config{DefaultTTL: ttl, RetainTerminal: time.Hour})
	return f
}

func (f *fixture) record(t *testing.T, sku string) *entity.StockRecord {
	t.Helper()
	rec, err := f.stock.GetBySKU(context.Background(), sku)
	require.NoError(t, err)
	return rec
}

func (f *fixture) create(t *testing.T, items ...entity.ReservationItem) *entity.Reservation {
	t.Helper()
	res, err := f.svc.Create(context.Background(), items)
	require.NoError(t, err)
	require.NotNil(t, res.Reservation)
	return res.Reservation
}

// softDelete marca el registro como borrado: las operaciones de stock posteriores sobre el SKU fallan.
func (f *fixture) softDelete(t *testing.T, sku string) {
	t.Helper()
	rec := f.record(t, sku)
	next := rec.Clone()
	next.Deleted = true
	next.Version++
	ok, err := f.stock.CompareAndSwap(context.Background(), rec.Version, next)
	require.NoError(t, err)
	require.True(t, ok)
}

// newService servicio sobre repositorios envueltos, con el reloj y el publicador del fixture.
func (f *fixture) newService(stock repository.StockRecordRepository, store repository.ReservationRepository, cfg reservation.Config) *reservation.LifecycleService {
	policy := appinv.RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond, BackoffMultiplier: 2}
	exec := appinv.NewOptimisticExecutor(stock, policy, zerolog.Nop())
	return reservation.NewLifecycleService(appinv.NewStockUseCase(stock, exec, zerolog.Nop()), store, cfg, zerolog.Nop(),
		reservation.WithClock(f.clock.Now),
		reservation.WithPublisher(f.publisher),
	)
}

func item(sku string, qty int64) entity.ReservationItem {
	return entity.ReservationItem{ProductID: "p-" + sku, VariantID: "v-" + sku, SKU: sku, Quantity: qty}
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_ReservaTodasLasLineas(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5, "B1": 4})

	res, err := f.svc.Create(context.Background(), []entity.ReservationItem{item("A1", 3), item("B1", 1)})
	require.NoError(t, err)

	r := res.Reservation
	require.NotNil(t, r)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, entity.ReservationStatusPending, r.Status)
	assert.Equal(t, f.clock.Now().Add(ttl), r.ExpiresAt)
	assert.Equal(t, int64(1), r.Version)
	for _, it := range res.Items {
		assert.Equal(t, reservation.ItemReserved, it.Outcome)
	}

	assert.Equal(t, int64(2), f.record(t, "A1").QuantityAvailable)
	assert.Equal(t, int64(3), f.record(t, "A1").QuantityReserved)
	assert.Equal(t, int64(3), f.record(t, "B1").QuantityAvailable)

	stored, err := f.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Items, stored.Items)
	assert.Equal(t, []reservation.EventType{reservation.EventCreated}, f.publisher.types())
}

func TestCreate_FalloParcialCompensaLineasReservadas(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5, "B1": 1, "C1": 2})

	res, err := f.svc.Create(context.Background(), []entity.ReservationItem{item("A1", 2), item("B1", 3), item("C1", 2)})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var failed *domain.ReservationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, []string{"B1"}, failed.FailedSKUs)

	require.NotNil(t, res)
	assert.Nil(t, res.Reservation)
	require.Len(t, res.Items, 3)
	assert.Equal(t, reservation.ItemReleased, res.Items[0].Outcome)
	assert.Equal(t, reservation.ItemFailed, res.Items[1].Outcome)
	assert.ErrorIs(t, res.Items[1].Err, domain.ErrInsufficientStock)
	assert.Equal(t, reservation.ItemReleased, res.Items[2].Outcome)

	for sku, want := range map[string]int64{"A1": 5, "B1": 1, "C1": 2} {
		rec := f.record(t, sku)
		assert.Equal(t, want, rec.QuantityAvailable, "stock de %s restaurado", sku)
		assert.Equal(t, int64(0), rec.QuantityReserved, "sin reservas colgadas en %s", sku)
	}
	assert.Empty(t, f.publisher.types(), "una reserva rechazada no publica eventos")
}

func TestCreate_SKUInexistenteReportaNotFound(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})

	_, err := f.svc.Create(context.Background(), []entity.ReservationItem{item("A1", 1), item("ZZ", 1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(5), f.record(t, "A1").QuantityAvailable)
}

func TestCreate_ValidacionAntesDeTocarStock(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})

	_, err := f.svc.Create(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Create(context.Background(), []entity.ReservationItem{item("A1", 1), item("A1", 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, int64(5), f.record(t, "A1").QuantityAvailable, "ninguna línea se reserva si la entrada es inválida")
}

type failingPutStore struct {
	*memory.ReservationStore
}

func (failingPutStore) Put(context.Context, *entity.Reservation, time.Duration) error {
	return errors.New("redis caído")
}

func TestCreate_FalloAlPersistirCompensa(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	exec := appinv.NewOptimisticExecutor(f.stock, appinv.DefaultRetryPolicy(), zerolog.Nop())
	svc := reservation.NewLifecycleService(appinv.NewStockUseCase(f.stock, exec, zerolog.Nop()),
		failingPutStore{f.store}, reservation.DefaultConfig(), zerolog.Nop())

	res, err := svc.Create(context.Background(), []entity.ReservationItem{item("A1", 2)})
	require.Error(t, err)
	assert.Nil(t, res.Reservation)
	assert.Equal(t, reservation.ItemReleased, res.Items[0].Outcome)
	assert.Equal(t, int64(5), f.record(t, "A1").QuantityAvailable)
}

// ──────────────────────────────────────────────────────────────────────────────
// Confirm
// ──────────────────────────────────────────────────────────────────────────────

func TestConfirm_MueveReservadoAVendido(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	r := f.create(t, item("A1", 3))

	res, err := f.svc.Confirm(context.Background(), r.ID, "order-1")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Empty(t, res.FailedItems)
	assert.Equal(t, entity.ReservationStatusConfirmed, res.Reservation.Status)
	assert.Equal(t, "order-1", res.Reservation.OrderID)

	rec := f.record(t, "A1")
	assert.Equal(t, int64(2), rec.QuantityAvailable)
	assert.Equal(t, int64(0), rec.QuantityReserved)
	assert.Equal(t, int64(3), rec.QuantitySold)

	stored, err := f.store.Get(context.Background(), r.ID)
	require.NoError(t, err, "la reserva confirmada se retiene para enlazar la orden")
	assert.Equal(t, "order-1", stored.OrderID)
	assert.Equal(t, int64(2), stored.Version)
}

func TestConfirm_TrasExpiracionSeRechaza(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	r := f.create(t, item("A1", 3))

	f.clock.Advance(ttl)
	_, err := f.svc.Confirm(context.Background(), r.ID, "order-1")
	require.ErrorIs(t, err, domain.ErrReservationExpired)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, "RESERVATION_EXPIRED", domain.ErrorCode(err))

	rec := f.record(t, "A1")
	assert.Equal(t, int64(0), rec.QuantitySold)
	assert.Equal(t, int64(3), rec.QuantityReserved, "el stock sigue retenido hasta que pase el reaper")
}

func TestConfirm_EstadoNoPendiente(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	r := f.create(t, item("A1", 1))
	_, err := f.svc.Cancel(context.Background(), r.ID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), r.ID, "order-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.NotErrorIs(t, err, domain.ErrReservationExpired)
}

func TestConfirm_ReservaInexistenteYOrderVacio(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})

	_, err := f.svc.Confirm(context.Background(), "missing", "order-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	r := f.create(t, item("A1", 1))
	_, err = f.svc.Confirm(context.Background(), r.ID, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfirm_FalloDeLineaNoAbortaLasDemas(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5, "B1": 5})
	r := f.create(t, item("A1", 2), item("B1", 2))

	// El registro de A1 desaparece (borrado lógico) entre la reserva y la confirmación.
	f.softDelete(t, "A1")

	res, err := f.svc.Confirm(context.Background(), r.ID, "order-9")
	require.NoError(t, err)
	require.Len(t, res.FailedItems, 1)
	assert.Equal(t, "A1", res.FailedItems[0].Item.SKU)
	assert.ErrorIs(t, res.FailedItems[0].Err, domain.ErrNotFound)
	assert.Equal(t, int64(2), f.record(t, "B1").QuantitySold, "B1 se confirma aunque A1 falle")
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancel / ReleaseExpired
// ──────────────────────────────────────────────────────────────────────────────

func TestCancel_IdempotenteNoAcreditaDosVeces(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	r := f.create(t, item("A1", 3))

	first, err := f.svc.Cancel(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, entity.ReservationStatusCancelled, first.Reservation.Status)

	second, err := f.svc.Cancel(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, second.Applied)

	rec := f.record(t, "A1")
	assert.Equal(t, int64(5), rec.QuantityAvailable)
	assert.Equal(t, int64(0), rec.QuantityReserved)
	assert.Equal(t, []reservation.EventType{reservation.EventCreated, reservation.EventCancelled}, f.publisher.types())
}

func TestCancel_ReservaInexistente(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReleaseExpired_DosVecesMismoEstado(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	r := f.create(t, item("A1", 4))
	f.clock.Advance(ttl + time.Second)

	first, err := f.svc.ReleaseExpired(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, entity.ReservationStatusExpired, first.Reservation.Status)
	afterFirst := *f.record(t, "A1")

	second, err := f.svc.ReleaseExpired(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	afterSecond := *f.record(t, "A1")

	assert.Equal(t, int64(5), afterFirst.QuantityAvailable)
	assert.Equal(t, afterFirst.QuantityAvailable, afterSecond.QuantityAvailable)
	assert.Equal(t, afterFirst.QuantityReserved, afterSecond.QuantityReserved)
	assert.Equal(t, afterFirst.Version, afterSecond.Version, "la segunda llamada no escribe stock")
}

func TestReleaseExpired_ReservaVigenteNoSeExpira(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	r := f.create(t, item("A1", 1))

	_, err := f.svc.ReleaseExpired(context.Background(), r.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, int64(1), f.record(t, "A1").QuantityReserved)
}

func TestReleaseExpired_InexistenteEsNoop(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.svc.ReleaseExpired(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestReleaseExpired_TrasConfirmNoLiberaStock(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	r := f.create(t, item("A1", 3))
	_, err := f.svc.Confirm(context.Background(), r.ID, "order-1")
	require.NoError(t, err)

	f.clock.Advance(ttl + time.Second)
	res, err := f.svc.ReleaseExpired(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	rec := f.record(t, "A1")
	assert.Equal(t, int64(2), rec.QuantityAvailable)
	assert.Equal(t, int64(3), rec.QuantitySold)
}

// Confirm y Cancel concurrentes sobre la misma reserva: exactamente una transición se aplica.
func TestTransiciones_ConcurrentesSoloUnaGana(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t, map[string]int64{"A1": 5})
		r := f.create(t, item("A1", 3))

		var wg sync.WaitGroup
		var confirmErr, cancelErr error
		var cancelRes *reservation.TransitionResult
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, confirmErr = f.svc.Confirm(context.Background(), r.ID, "order-1")
		}()
		go func() {
			defer wg.Done()
			<-start
			cancelRes, cancelErr = f.svc.Cancel(context.Background(), r.ID)
		}()
		close(start)
		wg.Wait()

		require.NoError(t, cancelErr)
		rec := f.record(t, "A1")
		assert.True(t, rec.IsConsistent())
		if confirmErr == nil {
			assert.False(t, cancelRes.Applied)
			assert.Equal(t, int64(3), rec.QuantitySold)
			assert.Equal(t, int64(2), rec.QuantityAvailable)
		} else {
			assert.ErrorIs(t, confirmErr, domain.ErrInvalidState)
			assert.True(t, cancelRes.Applied)
			assert.Equal(t, int64(0), rec.QuantitySold)
			assert.Equal(t, int64(5), rec.QuantityAvailable)
		}
		assert.Equal(t, int64(0), rec.QuantityReserved)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// IsValid / eventos
// ──────────────────────────────────────────────────────────────────────────────

func TestIsValid(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	r := f.create(t, item("A1", 1))
	ctx := context.Background()

	ok, err := f.svc.IsValid(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	f.clock.Advance(ttl)
	ok, err = f.svc.IsValid(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, ok, "now == expiresAt ya no es válida")

	ok, err = f.svc.IsValid(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublicacion_FalloNoRevierteTransicion(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	f.publisher.err = errors.New("broker no disponible")

	r := f.create(t, item("A1", 2))
	res, err := f.svc.Cancel(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, int64(5), f.record(t, "A1").QuantityAvailable)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancelación del llamador
// ──────────────────────────────────────────────────────────────────────────────

// ctxStrictStock falla las lecturas con un contexto terminado, como el pool de Postgres.
type ctxStrictStock struct {
	*memory.StockRecordStore
	afterRead func(sku string)
}

func (s *ctxStrictStock) GetBySKU(ctx context.Context, sku string) (*entity.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := s.StockRecordStore.GetBySKU(ctx, sku)
	if s.afterRead != nil {
		s.afterRead(sku)
	}
	return rec, err
}

// cancelOnClaimStore cancela el contexto del llamador justo después de una transición escrita.
type cancelOnClaimStore struct {
	*memory.ReservationStore
	cancel context.CancelFunc
}

func (s *cancelOnClaimStore) CompareAndSwap(ctx context.Context, expectedVersion int64, next *entity.Reservation, ttl time.Duration) (bool, error) {
	ok, err := s.ReservationStore.CompareAndSwap(ctx, expectedVersion, next, ttl)
	if ok && s.cancel != nil {
		s.cancel()
	}
	return ok, err
}

func TestTransiciones_CancelarTrasElReclamoNoDejaStockRetenido(t *testing.T) {
	cases := []struct {
		name      string
		run       func(ctx context.Context, svc *reservation.LifecycleService, id string) (*reservation.TransitionResult, error)
		expire    bool
		status    entity.ReservationStatus
		available int64
		sold      int64
	}{
		{
			name: "expire",
			run: func(ctx context.Context, svc *reservation.LifecycleService, id string) (*reservation.TransitionResult, error) {
				return svc.ReleaseExpired(ctx, id)
			},
			expire:    true,
			status:    entity.ReservationStatusExpired,
			available: 5,
		},
		{
			name: "cancel",
			run: func(ctx context.Context, svc *reservation.LifecycleService, id string) (*reservation.TransitionResult, error) {
				return svc.Cancel(ctx, id)
			},
			status:    entity.ReservationStatusCancelled,
			available: 5,
		},
		{
			name: "confirm",
			run: func(ctx context.Context, svc *reservation.LifecycleService, id string) (*reservation.TransitionResult, error) {
				return svc.Confirm(ctx, id, "order-1")
			},
			status:    entity.ReservationStatusConfirmed,
			available: 2,
			sold:      3,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, map[string]int64{"A1": 5})
			r := f.create(t, item("A1", 3))
			if tc.expire {
				f.clock.Advance(ttl + time.Second)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			store := &cancelOnClaimStore{ReservationStore: f.store, cancel: cancel}
			svc := f.newService(&ctxStrictStock{StockRecordStore: f.stock}, store,
				reservation.Config{DefaultTTL: ttl, RetainTerminal: time.Hour})

			res, err := tc.run(ctx, svc, r.ID)
			require.NoError(t, err)
			require.Error(t, ctx.Err(), "el contexto se canceló entre el reclamo y el stock")
			assert.True(t, res.Applied)
			assert.Empty(t, res.FailedItems)
			assert.Equal(t, tc.status, res.Reservation.Status)

			rec := f.record(t, "A1")
			assert.Equal(t, int64(0), rec.QuantityReserved, "sin stock retenido por una reserva terminal")
			assert.Equal(t, tc.available, rec.QuantityAvailable)
			assert.Equal(t, tc.sold, rec.QuantitySold)
		})
	}
}

func TestCreate_CompensaAunqueElLlamadorCancele(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5, "B1": 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stock := &ctxStrictStock{StockRecordStore: f.stock, afterRead: func(sku string) {
		if sku == "B1" {
			cancel()
		}
	}}
	svc := f.newService(stock, f.store, reservation.Config{DefaultTTL: ttl, RetainTerminal: time.Hour})

	res, err := svc.Create(ctx, []entity.ReservationItem{item("A1", 2), item("B1", 3)})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.Error(t, ctx.Err())
	assert.Equal(t, reservation.ItemReleased, res.Items[0].Outcome)

	rec := f.record(t, "A1")
	assert.Equal(t, int64(5), rec.QuantityAvailable)
	assert.Equal(t, int64(0), rec.QuantityReserved)
}

// ──────────────────────────────────────────────────────────────────────────────
// Retención en el almacén
// ──────────────────────────────────────────────────────────────────────────────

func TestAlmacen_PendienteSeDescartaTrasElMargen(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	grace := 10 * time.Minute
	svc := f.newService(f.stock, f.store, reservation.Config{DefaultTTL: ttl, RetainTerminal: 24 * time.Hour, PendingGrace: grace})

	res, err := svc.Create(context.Background(), []entity.ReservationItem{item("A1", 1)})
	require.NoError(t, err)
	id := res.Reservation.ID

	f.clock.Advance(ttl + grace - time.Second)
	_, err = f.store.Get(context.Background(), id)
	require.NoError(t, err, "el reaper aún puede leerla dentro del margen")

	f.clock.Advance(time.Second)
	_, err = f.store.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound, "la retención de terminales no alarga la vida de una PENDING")
}

func TestAlmacen_TerminalSeRetieneRetainTerminal(t *testing.T) {
	f := newFixture(t, map[string]int64{"A1": 5})
	svc := f.newService(f.stock, f.store, reservation.Config{DefaultTTL: ttl, RetainTerminal: 2 * time.Hour, PendingGrace: time.Minute})

	res, err := svc.Create(context.Background(), []entity.ReservationItem{item("A1", 1)})
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), res.Reservation.ID)
	require.NoError(t, err)

	f.clock.Advance(2*time.Hour - time.Second)
	_, err = f.store.Get(context.Background(), res.Reservation.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.store.Get(context.Background(), res.Reservation.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
