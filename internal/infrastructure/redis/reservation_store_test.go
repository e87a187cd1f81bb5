package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
)

func TestClaves_CompartenHashTag(t *testing.T) {
	s := NewReservationStore(nil, "")
	assert.Equal(t, "{stockres}:reservation:r-1", s.key("r-1"))
	assert.Equal(t, "{stockres}:reservation:expiry", s.indexKey())

	custom := NewReservationStore(nil, "shop-eu")
	assert.Equal(t, "{shop-eu}:reservation:r-1", custom.key("r-1"))
}

func TestCodec_ConservaVersionParaElScript(t *testing.T) {
	expires := time.Date(2026, 5, 1, 10, 15, 0, 0, time.UTC)
	r := &entity.Reservation{
		ID:        "r-1",
		Items:     []entity.ReservationItem{{ProductID: "p", VariantID: "v", SKU: "A1", Quantity: 2}},
		Status:    entity.ReservationStatusPending,
		ExpiresAt: expires,
		Version:   3,
	}
	raw, err := encode(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version":3`, "casScript lee el campo version del JSON")

	back, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, r.Items, back.Items)
	assert.True(t, expires.Equal(back.ExpiresAt))

	_, err = decode([]byte("{"))
	assert.Error(t, err)
}

func TestExpiryScore_EnMilisegundos(t *testing.T) {
	r := &entity.Reservation{ExpiresAt: time.UnixMilli(1_700_000_000_123)}
	assert.Equal(t, float64(1_700_000_000_123), expiryScore(r))
}

func TestPositive(t *testing.T) {
	assert.Equal(t, time.Duration(0), positive(-time.Second))
	assert.Equal(t, time.Minute, positive(time.Minute))
}

func TestValidacion_SinTocarRedis(t *testing.T) {
	s := NewReservationStore(nil, "")
	assert.ErrorIs(t, s.Put(context.Background(), &entity.Reservation{}, time.Minute), domain.ErrInvalidInput)
	_, err := s.CompareAndSwap(context.Background(), 1, nil, time.Minute)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Adaptador contra un Redis en memoria
// ──────────────────────────────────────────────────────────────────────────────

func newMiniStore(t *testing.T) (*ReservationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewReservationStore(client, "test"), mr
}

func pending(id string, expires time.Time) *entity.Reservation {
	return &entity.Reservation{
		ID:        id,
		Items:     []entity.ReservationItem{{SKU: "A1", Quantity: 1}},
		Status:    entity.ReservationStatusPending,
		ExpiresAt: expires,
		Version:   1,
	}
}

func indexMembers(t *testing.T, mr *miniredis.Miniredis, s *ReservationStore) []string {
	t.Helper()
	if !mr.Exists(s.indexKey()) {
		return nil
	}
	members, err := mr.ZMembers(s.indexKey())
	require.NoError(t, err)
	return members
}

func TestReservationStore_PutIndexaSoloPendientes(t *testing.T) {
	s, mr := newMiniStore(t)
	ctx := context.Background()
	now := time.Now()

	r := pending("r-1", now.Add(15*time.Minute))
	require.NoError(t, s.Put(ctx, r, 20*time.Minute))
	assert.Equal(t, 20*time.Minute, mr.TTL(s.key("r-1")))
	assert.Equal(t, []string{"r-1"}, indexMembers(t, mr, s))

	got, err := s.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusPending, got.Status)
	assert.Equal(t, r.Items, got.Items)

	done := *r
	done.Status = entity.ReservationStatusCancelled
	require.NoError(t, s.Put(ctx, &done, time.Hour))
	assert.Empty(t, indexMembers(t, mr, s), "una reserva terminal sale del índice")

	confirmed := pending("r-2", now.Add(time.Minute))
	confirmed.Status = entity.ReservationStatusConfirmed
	require.NoError(t, s.Put(ctx, confirmed, time.Hour))
	assert.Empty(t, indexMembers(t, mr, s))
}

func TestReservationStore_CompareAndSwapPorVersion(t *testing.T) {
	s, mr := newMiniStore(t)
	ctx := context.Background()
	now := time.Now()

	r := pending("r-1", now.Add(15*time.Minute))
	require.NoError(t, s.Put(ctx, r, 20*time.Minute))

	next := r.Transition(entity.ReservationStatusConfirmed, "order-1", now)
	ok, err := s.CompareAndSwap(ctx, 1, next, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL(s.key("r-1")))
	assert.Empty(t, indexMembers(t, mr, s), "la confirmación quita la reserva del índice en el mismo script")

	expired := r.Transition(entity.ReservationStatusExpired, "", now)
	ok, err = s.CompareAndSwap(ctx, 1, expired, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "una segunda escritura sobre la versión 1 se rechaza")

	stored, err := s.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusConfirmed, stored.Status)
	assert.Equal(t, "order-1", stored.OrderID)
	assert.Equal(t, int64(2), stored.Version)

	ok, err = s.CompareAndSwap(ctx, 1, pending("missing", now), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "sin clave no hay nada que reemplazar")
	assert.False(t, mr.Exists(s.key("missing")))
}

func TestReservationStore_CompareAndSwapMantieneIndicePendiente(t *testing.T) {
	s, mr := newMiniStore(t)
	ctx := context.Background()
	now := time.Now()

	r := pending("r-1", now.Add(time.Minute))
	require.NoError(t, s.Put(ctx, r, 2*time.Minute))

	extended := *r
	extended.ExpiresAt = now.Add(30 * time.Minute)
	extended.Version = 2
	ok, err := s.CompareAndSwap(ctx, 1, &extended, 40*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	score, err := mr.ZScore(s.indexKey(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, expiryScore(&extended), score)
}

func TestReservationStore_ListExpiredPurgaEntradasObsoletas(t *testing.T) {
	s, mr := newMiniStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Put(ctx, pending("r-old", now.Add(-time.Minute)), 10*time.Minute))
	require.NoError(t, s.Put(ctx, pending("r-new", now.Add(10*time.Minute)), 20*time.Minute))

	// Clave descartada por TTL con la entrada del índice todavía presente.
	require.NoError(t, s.Put(ctx, pending("r-gone", now.Add(-2*time.Minute)), time.Second))
	mr.FastForward(2 * time.Second)

	// Reserva ya terminal cuyo índice no se actualizó.
	terminal := pending("r-done", now.Add(-3*time.Minute))
	require.NoError(t, s.Put(ctx, terminal, 10*time.Minute))
	terminal.Status = entity.ReservationStatusExpired
	raw, err := encode(terminal)
	require.NoError(t, err)
	require.NoError(t, mr.Set(s.key("r-done"), string(raw)))

	ids, err := s.ListExpired(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-old"}, ids)
	assert.ElementsMatch(t, []string{"r-old", "r-new"}, indexMembers(t, mr, s))

	again, err := s.ListExpired(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-old"}, again)
}

func TestReservationStore_ListExpiredRespetaLimite(t *testing.T) {
	s, _ := newMiniStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"r-1", "r-2", "r-3"} {
		require.NoError(t, s.Put(ctx, pending(id, now.Add(-time.Duration(3-i)*time.Minute)), time.Hour))
	}
	ids, err := s.ListExpired(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-1", "r-2"}, ids, "las más antiguas primero")

	none, err := s.ListExpired(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReservationStore_DeleteYExists(t *testing.T) {
	s, mr := newMiniStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, pending("r-1", time.Now().Add(time.Minute)), time.Hour))
	ok, err := s.Exists(ctx, "r-1")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := s.Delete(ctx, "r-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, indexMembers(t, mr, s))

	deleted, err = s.Delete(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	ok, err = s.Exists(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "r-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
